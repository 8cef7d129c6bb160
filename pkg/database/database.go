// Package database owns the Postgres connection pool and ties its
// readiness and shutdown to the lifecycle coordinator.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/mobby57/memoLib-sub019/pkg/lifecycle"
)

// ErrNotReady is returned by Check when a ping fails.
var ErrNotReady = errors.New("database not ready")

// System is the pool plus its lifecycle hooks.
type System interface {
	Connection() *sql.DB
	// Start pings the pool during startup and closes it on shutdown.
	Start(lc *lifecycle.Coordinator) error
	// Ready reflects the outcome of the most recent Check.
	Ready() bool
	Check(ctx context.Context) error
}

type pool struct {
	db          *sql.DB
	logger      *slog.Logger
	pingTimeout time.Duration
	healthy     atomic.Bool
}

// New configures a pool from cfg. No connection is made until Start or
// Check.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &pool{
		db:          db,
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		pingTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (p *pool) Connection() *sql.DB { return p.db }

func (p *pool) Ready() bool { return p.healthy.Load() }

func (p *pool) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.pingTimeout)
	defer cancel()

	err := p.db.PingContext(ctx)
	p.healthy.Store(err == nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

func (p *pool) Start(lc *lifecycle.Coordinator) error {
	lc.RegisterReadiness("database", p)
	lc.OnStartup(func() { p.open(lc.Context()) })
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		p.close()
	})
	return nil
}

func (p *pool) open(ctx context.Context) {
	started := time.Now()
	if err := p.Check(ctx); err != nil {
		p.logger.Error("database unreachable", "error", err)
		return
	}
	p.logger.Info("database connected", "elapsed", time.Since(started))
}

func (p *pool) close() {
	p.healthy.Store(false)
	if err := p.db.Close(); err != nil {
		p.logger.Error("database close failed", "error", err)
		return
	}
	p.logger.Info("database closed")
}
