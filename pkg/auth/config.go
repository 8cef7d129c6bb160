package auth

import "os"

// Config enables bearer-token authentication for reviewer actions.
// An empty Issuer disables it.
type Config struct {
	Issuer   string `toml:"issuer"`
	ClientID string `toml:"client_id"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Issuer   string
	ClientID string
}

// Enabled reports whether an issuer is configured.
func (c *Config) Enabled() bool {
	return c.Issuer != ""
}

// Finalize applies environment variable overrides and validation.
func (c *Config) Finalize(env *Env) error {
	if env != nil {
		if env.Issuer != "" {
			if v := os.Getenv(env.Issuer); v != "" {
				c.Issuer = v
			}
		}
		if env.ClientID != "" {
			if v := os.Getenv(env.ClientID); v != "" {
				c.ClientID = v
			}
		}
	}
	if c.Enabled() && c.ClientID == "" {
		return ErrClientIDRequired
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
}
