// Package cli provides the Cobra-based command line for the storefront.
package cli

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/logger"
)

// Execute runs the root command against the process arguments
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds the command tree. Flags and STOREFRONT_* variables
// override values loaded from the environment and .env.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Browse products, build a cart and check out",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if file := v.GetString("config"); file != "" {
				v.SetConfigFile(file)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("failed to read config file: %w", err)
				}
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("port", "", "HTTP port for serve")
	flags.String("services-url", "", "base URL of the store services")
	flags.String("backend", "", "cart persistence backend: memory|file|redis|postgres")
	flags.String("store-file", "", "directory for the file backend")
	flags.String("log-level", "", "log level")
	flags.String("log-format", "", "log format: json|text")

	for _, name := range []string{"config", "port", "services-url", "backend", "store-file", "log-level", "log-format"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root.AddCommand(newServeCommand(v))
	root.AddCommand(newShellCommand(v))

	return root
}

// overrides maps explicitly set flags, env vars and config file keys onto the config
func overrides(v *viper.Viper) config.Option {
	return func(c *config.Config) {
		if s := v.GetString("port"); s != "" {
			c.Server.Port = s
		}
		if s := v.GetString("services-url"); s != "" {
			c.Services.BaseURL = s
		}
		if s := v.GetString("backend"); s != "" {
			c.Persistence.Backend = strings.ToLower(s)
		}
		if s := v.GetString("store-file"); s != "" {
			c.Persistence.FilePath = s
		}
		if s := v.GetString("log-level"); s != "" {
			c.Logging.Level = s
		}
		if s := v.GetString("log-format"); s != "" {
			c.Logging.Format = s
		}
	}
}

func loadConfig(v *viper.Viper) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(overrides(v))
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}
