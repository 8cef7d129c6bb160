package classify

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// AIConfig configures the chat-completion classifier.
type AIConfig struct {
	BaseURL           string  `toml:"base_url"`
	Model             string  `toml:"model"`
	Token             string  `toml:"token"`
	Timeout           string  `toml:"timeout"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// AIEnv maps config fields to environment variable names for override injection.
type AIEnv struct {
	BaseURL           string
	Model             string
	Token             string
	Timeout           string
	RequestsPerSecond string
	Burst             string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *AIConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AIConfig) Finalize(env *AIEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AIConfig) Merge(overlay *AIConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.RequestsPerSecond != 0 {
		c.RequestsPerSecond = overlay.RequestsPerSecond
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
}

func (c *AIConfig) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2
	}
	if c.Burst == 0 {
		c.Burst = 4
	}
}

func (c *AIConfig) loadEnv(env *AIEnv) {
	if v := os.Getenv(env.BaseURL); env.BaseURL != "" && v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(env.Model); env.Model != "" && v != "" {
		c.Model = v
	}
	if v := os.Getenv(env.Token); env.Token != "" && v != "" {
		c.Token = v
	}
	if v := os.Getenv(env.Timeout); env.Timeout != "" && v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(env.RequestsPerSecond); env.RequestsPerSecond != "" && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv(env.Burst); env.Burst != "" && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Burst = n
		}
	}
}

func (c *AIConfig) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1")
	}
	return nil
}
