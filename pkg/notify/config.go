package notify

import (
	"fmt"
	"os"
	"time"
)

// Config selects where transition notifications are published.
// An empty RedisURL selects the logging notifier.
type Config struct {
	RedisURL    string `toml:"redis_url"`
	Channel     string `toml:"channel"`
	PoolSize    int    `toml:"pool_size"`
	DialTimeout string `toml:"dial_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	RedisURL string
	Channel  string
}

// DialTimeoutDuration returns DialTimeout as a time.Duration.
func (c *Config) DialTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DialTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if env.RedisURL != "" {
			if v := os.Getenv(env.RedisURL); v != "" {
				c.RedisURL = v
			}
		}
		if env.Channel != "" {
			if v := os.Getenv(env.Channel); v != "" {
				c.Channel = v
			}
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.RedisURL != "" {
		c.RedisURL = overlay.RedisURL
	}
	if overlay.Channel != "" {
		c.Channel = overlay.Channel
	}
	if overlay.PoolSize != 0 {
		c.PoolSize = overlay.PoolSize
	}
	if overlay.DialTimeout != "" {
		c.DialTimeout = overlay.DialTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Channel == "" {
		c.Channel = "memolib:transitions"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.DialTimeout == "" {
		c.DialTimeout = "5s"
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.DialTimeout); err != nil {
		return fmt.Errorf("invalid dial_timeout: %w", err)
	}
	return nil
}
