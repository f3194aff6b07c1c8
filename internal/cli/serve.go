package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/your-org/storefront/internal/app"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP storefront",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(v)
			if err != nil {
				return err
			}

			log.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			server := a.Server()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start()
			}()

			// Wait for interrupt signal to gracefully shutdown
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errCh:
				return err
			case <-quit:
			}

			log.Info("👋 Shutting down gracefully...")

			// Give in-flight requests 30 seconds to finish
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := server.Stop(ctx); err != nil {
				log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
				return err
			}

			log.Info("✅ Server shutdown completed")
			return nil
		},
	}
}
