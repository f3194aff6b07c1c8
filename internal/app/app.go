// Package app wires configuration, persistence, remote services and the
// per-shopper storefronts into something a presentation can drive.
package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/storefront"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/infrastructure/persistence"
	"github.com/your-org/storefront/internal/infrastructure/remote"
	httpserver "github.com/your-org/storefront/internal/interfaces/http"
	"github.com/your-org/storefront/internal/pkg/auth"
)

// App owns every long-lived dependency
type App struct {
	Config   *config.Config
	Log      *logrus.Logger
	Registry *storefront.Registry

	redis   *redis.Client
	checks  map[string]httpserver.HealthCheck
	closers []func() error
}

// New connects the configured backends and builds the shopper registry
func New(cfg *config.Config, log *logrus.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Log:    log,
		checks: make(map[string]httpserver.HealthCheck),
	}

	if cfg.UsesRedis() {
		client, err := redis.NewConnection(cfg, log)
		if err != nil {
			return nil, err
		}
		a.redis = client
		a.checks["redis"] = client.Health
		a.closers = append(a.closers, client.Close)
	}

	kv, err := a.openStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	signer := auth.NewRequestSigner(cfg.JWT, cfg.App.Name)
	if signer.Enabled() {
		log.Info("🔏 Remote requests will be signed")
	}

	client := remote.NewClient(cfg.Services, signer, log)
	deps := storefront.Dependencies{
		Catalog: catalog.NewService(client, log),
		Orders:  client,
		Gateway: cfg.Gateway,
	}
	adapter := persistence.NewAdapter(kv, cfg.Persistence.Namespace, log)

	a.Registry = storefront.NewRegistry(func(shopperID string) *storefront.Service {
		return storefront.NewService(shopperID, adapter.ForShopper(shopperID), deps, log)
	},
		storefront.WithIdleTimeout(cfg.Sessions.IdleTimeout),
		storefront.WithMaxSessions(cfg.Sessions.MaxSessions),
	)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go a.Registry.Run(sweepCtx, cfg.Sessions.SweepInterval, log)
	a.closers = append(a.closers, func() error {
		stopSweep()
		return nil
	})

	log.WithFields(logrus.Fields{
		"backend":  cfg.Persistence.Backend,
		"services": cfg.Services.BaseURL,
	}).Info("✅ Storefront ready")

	return a, nil
}

func (a *App) openStore() (persistence.KV, error) {
	cfg := a.Config

	switch cfg.Persistence.Backend {
	case config.BackendMemory:
		return persistence.NewMemoryKV(), nil

	case config.BackendFile:
		kv, err := persistence.NewFileKV(cfg.Persistence.FilePath)
		if err != nil {
			return nil, err
		}
		a.Log.WithField("path", cfg.Persistence.FilePath).Info("📁 Carts are stored on disk")
		return kv, nil

	case config.BackendRedis:
		return a.redis, nil

	case config.BackendPostgres:
		db, err := postgres.NewConnection(cfg, a.Log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db.Health

		if err := postgres.NewMigration(db.GetDB(), a.Log).RunAutoMigrations(); err != nil {
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		return postgres.NewDocumentStore(db.GetDB()), nil
	}

	return nil, fmt.Errorf("unknown persistence backend %q", cfg.Persistence.Backend)
}

// Storefront returns the storefront for one shopper
func (a *App) Storefront(ctx context.Context, shopperID string) *storefront.Service {
	return a.Registry.Get(ctx, shopperID)
}

// Server builds the HTTP UI host
func (a *App) Server() *httpserver.Server {
	var rdb *goredis.Client
	if a.redis != nil {
		rdb = a.redis.GetClient()
	}
	return httpserver.NewServer(a.Config, a.Registry, rdb, a.checks, a.Log)
}

// Close releases every backend connection
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
