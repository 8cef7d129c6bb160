// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, notification,
// metrics, authentication) that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/pkg/auth"
	"github.com/mobby57/memoLib-sub019/pkg/database"
	"github.com/mobby57/memoLib-sub019/pkg/lifecycle"
	"github.com/mobby57/memoLib-sub019/pkg/notify"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Database is nil when the memory store is configured. Verifier is nil
// when authentication is disabled.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Notifier  notify.System
	Metrics   *prometheus.Registry
	Verifier  auth.Verifier
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	return NewWithLogger(cfg, slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// NewWithLogger is New with a caller-supplied logger.
func NewWithLogger(cfg *config.Config, logger *slog.Logger) (*Infrastructure, error) {
	lc := lifecycle.New()

	var db database.System
	if cfg.Store == config.StorePostgres {
		var err error
		db, err = database.New(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("database init failed: %w", err)
		}
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	notifier, err := notify.New(&cfg.Notify, logger)
	if err != nil {
		return nil, fmt.Errorf("notify init failed: %w", err)
	}

	var verifier auth.Verifier
	if cfg.Auth.Enabled() {
		verifier, err = auth.NewOIDC(context.Background(), &cfg.Auth)
		if err != nil {
			return nil, fmt.Errorf("auth init failed: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Notifier:  notifier,
		Metrics:   reg,
		Verifier:  verifier,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.Database != nil {
		if err := i.Database.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("database start failed: %w", err)
		}
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Notifier.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("notify start failed: %w", err)
	}
	return nil
}
