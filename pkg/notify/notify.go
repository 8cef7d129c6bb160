// Package notify publishes committed state transitions to downstream listeners.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mobby57/memoLib-sub019/pkg/lifecycle"
)

// Transition describes one committed status change.
type Transition struct {
	TenantID   string    `json:"tenantId"`
	UnitID     string    `json:"unitId"`
	Seq        int       `json:"seq"`
	FromStatus string    `json:"fromStatus,omitempty"`
	ToStatus   string    `json:"toStatus"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier delivers transitions. Delivery is best effort; callers log failures
// rather than undo the committed transition.
type Notifier interface {
	Notify(ctx context.Context, t Transition) error
}

// System is a Notifier with lifecycle hooks.
type System interface {
	Notifier
	Start(lc *lifecycle.Coordinator) error
}

// New returns a Redis publisher when a URL is configured, otherwise a logging notifier.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "notify")

	if cfg.RedisURL == "" {
		return NewLog(logger), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.DialTimeout = cfg.DialTimeoutDuration()

	return NewRedis(redis.NewClient(opts), cfg.Channel, logger), nil
}

// Redis publishes transitions as JSON on a pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
	ready   atomic.Bool
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, channel string, logger *slog.Logger) *Redis {
	return &Redis{client: client, channel: channel, logger: logger}
}

func (r *Redis) Notify(ctx context.Context, t Transition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transition: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish transition: %w", err)
	}
	return nil
}

// Ready reports whether the startup ping succeeded.
func (r *Redis) Ready() bool {
	return r.ready.Load()
}

func (r *Redis) Start(lc *lifecycle.Coordinator) error {
	lc.RegisterReadiness("notify", r)

	lc.OnStartup(func() {
		if err := r.client.Ping(lc.Context()).Err(); err != nil {
			r.logger.Error("redis ping failed", "error", err)
			return
		}
		r.ready.Store(true)
		r.logger.Info("redis notifier ready", "channel", r.channel)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		r.ready.Store(false)
		if err := r.client.Close(); err != nil {
			r.logger.Error("redis close failed", "error", err)
		}
	})

	return nil
}

// Log writes transitions to the structured logger.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging notifier.
func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, t Transition) error {
	l.logger.InfoContext(ctx, "transition",
		"tenant_id", t.TenantID,
		"unit_id", t.UnitID,
		"seq", t.Seq,
		"from", t.FromStatus,
		"to", t.ToStatus,
		"actor", t.Actor,
	)
	return nil
}

func (l *Log) Start(lc *lifecycle.Coordinator) error {
	return nil
}
