package channels

import (
	"fmt"
	"os"
	"strconv"

	"github.com/mobby57/memoLib-sub019/pkg/formatting"
)

// Config bounds webhook ingestion.
type Config struct {
	MaxPayloadSize   string `toml:"max_payload_size"`
	MaxBatch         int    `toml:"max_batch"`
	BatchConcurrency int    `toml:"batch_concurrency"`
	Archive          bool   `toml:"archive"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxPayloadSize   string
	MaxBatch         string
	BatchConcurrency string
	Archive          string
}

// MaxPayloadBytes returns MaxPayloadSize in bytes.
func (c *Config) MaxPayloadBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxPayloadSize)
	return n
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Archive is only ever
// switched on by an overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxPayloadSize != "" {
		c.MaxPayloadSize = overlay.MaxPayloadSize
	}
	if overlay.MaxBatch != 0 {
		c.MaxBatch = overlay.MaxBatch
	}
	if overlay.BatchConcurrency != 0 {
		c.BatchConcurrency = overlay.BatchConcurrency
	}
	if overlay.Archive {
		c.Archive = true
	}
}

func (c *Config) loadDefaults() {
	if c.MaxPayloadSize == "" {
		c.MaxPayloadSize = "10MB"
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = 100
	}
	if c.BatchConcurrency == 0 {
		c.BatchConcurrency = 8
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxPayloadSize != "" {
		if v := os.Getenv(env.MaxPayloadSize); v != "" {
			c.MaxPayloadSize = v
		}
	}
	if env.MaxBatch != "" {
		if v := os.Getenv(env.MaxBatch); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxBatch = n
			}
		}
	}
	if env.BatchConcurrency != "" {
		if v := os.Getenv(env.BatchConcurrency); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.BatchConcurrency = n
			}
		}
	}
	if env.Archive != "" {
		if v := os.Getenv(env.Archive); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.Archive = b
			}
		}
	}
}

func (c *Config) validate() error {
	n, err := formatting.ParseBytes(c.MaxPayloadSize)
	if err != nil {
		return fmt.Errorf("invalid max_payload_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("max_payload_size must be positive")
	}
	if c.MaxBatch < 1 {
		return fmt.Errorf("max_batch must be at least 1")
	}
	if c.BatchConcurrency < 1 {
		return fmt.Errorf("batch_concurrency must be at least 1")
	}
	return nil
}
