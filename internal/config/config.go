// Package config loads the service configuration from TOML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/mobby57/memoLib-sub019/internal/analyze"
	"github.com/mobby57/memoLib-sub019/internal/channels"
	"github.com/mobby57/memoLib-sub019/internal/classify"
	"github.com/mobby57/memoLib-sub019/internal/pipeline"
	"github.com/mobby57/memoLib-sub019/pkg/auth"
	"github.com/mobby57/memoLib-sub019/pkg/database"
	"github.com/mobby57/memoLib-sub019/pkg/notify"
	"github.com/mobby57/memoLib-sub019/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvMemolibEnv             = "MEMOLIB_ENV"
	EnvMemolibShutdownTimeout = "MEMOLIB_SHUTDOWN_TIMEOUT"
	EnvMemolibVersion         = "MEMOLIB_VERSION"
	EnvMemolibStore           = "MEMOLIB_STORE"
)

// Unit and audit store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

var databaseEnv = &database.Env{
	Host:            "MEMOLIB_DB_HOST",
	Port:            "MEMOLIB_DB_PORT",
	Name:            "MEMOLIB_DB_NAME",
	User:            "MEMOLIB_DB_USER",
	Password:        "MEMOLIB_DB_PASSWORD",
	SSLMode:         "MEMOLIB_DB_SSL_MODE",
	MaxOpenConns:    "MEMOLIB_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "MEMOLIB_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "MEMOLIB_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "MEMOLIB_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "MEMOLIB_STORAGE_PROVIDER",
	ContainerName:    "MEMOLIB_STORAGE_CONTAINER_NAME",
	ConnectionString: "MEMOLIB_STORAGE_CONNECTION_STRING",
}

var channelsEnv = &channels.Env{
	MaxPayloadSize:   "MEMOLIB_CHANNELS_MAX_PAYLOAD_SIZE",
	MaxBatch:         "MEMOLIB_CHANNELS_MAX_BATCH",
	BatchConcurrency: "MEMOLIB_CHANNELS_BATCH_CONCURRENCY",
	Archive:          "MEMOLIB_CHANNELS_ARCHIVE",
}

var pipelineEnv = &pipeline.Env{
	Retries:             "MEMOLIB_PIPELINE_RETRIES",
	InitialBackoff:      "MEMOLIB_PIPELINE_INITIAL_BACKOFF",
	MaxBackoff:          "MEMOLIB_PIPELINE_MAX_BACKOFF",
	StageTimeout:        "MEMOLIB_PIPELINE_STAGE_TIMEOUT",
	ConfidenceThreshold: "MEMOLIB_PIPELINE_CONFIDENCE_THRESHOLD",
	Classifier:          "MEMOLIB_PIPELINE_CLASSIFIER",
	RulesFile:           "MEMOLIB_PIPELINE_RULES_FILE",
	Analysis: &analyze.Env{
		VIPSenders: "MEMOLIB_PIPELINE_VIP_SENDERS",
	},
}

var aiEnv = &classify.AIEnv{
	BaseURL:           "MEMOLIB_AI_BASE_URL",
	Model:             "MEMOLIB_AI_MODEL",
	Token:             "MEMOLIB_AI_TOKEN",
	Timeout:           "MEMOLIB_AI_TIMEOUT",
	RequestsPerSecond: "MEMOLIB_AI_REQUESTS_PER_SECOND",
	Burst:             "MEMOLIB_AI_BURST",
}

var notifyEnv = &notify.Env{
	RedisURL: "MEMOLIB_NOTIFY_REDIS_URL",
	Channel:  "MEMOLIB_NOTIFY_CHANNEL",
}

var authEnv = &auth.Env{
	Issuer:   "MEMOLIB_AUTH_ISSUER",
	ClientID: "MEMOLIB_AUTH_CLIENT_ID",
}

// Config is the root configuration for the memoLib service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Store           string            `toml:"store"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Channels        channels.Config   `toml:"channels"`
	Pipeline        pipeline.Config   `toml:"pipeline"`
	AI              classify.AIConfig `toml:"ai"`
	Notify          notify.Config     `toml:"notify"`
	Metrics         MetricsConfig     `toml:"metrics"`
	Auth            auth.Config       `toml:"auth"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the MEMOLIB_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvMemolibEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.Store != "" {
		c.Store = overlay.Store
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Channels.Merge(&overlay.Channels)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.AI.Merge(&overlay.AI)
	c.Notify.Merge(&overlay.Notify)
	c.Metrics.Merge(&overlay.Metrics)
	c.Auth.Merge(&overlay.Auth)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Store == StorePostgres {
		if err := c.Database.Finalize(databaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Channels.Finalize(channelsEnv); err != nil {
		return fmt.Errorf("channels: %w", err)
	}
	if err := c.Pipeline.Finalize(pipelineEnv); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if c.Pipeline.Classifier == classify.KindAI {
		if err := c.AI.Finalize(aiEnv); err != nil {
			return fmt.Errorf("ai: %w", err)
		}
	}
	if err := c.Notify.Finalize(notifyEnv); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	if err := c.Metrics.Finalize(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Store == "" {
		c.Store = StorePostgres
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvMemolibShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvMemolibVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvMemolibStore); v != "" {
		c.Store = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvMemolibEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
