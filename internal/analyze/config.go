package analyze

import (
	"fmt"
	"maps"
	"os"
	"strings"
)

// Config holds the required fields per classification label.
type Config struct {
	RequiredFields  map[string][]string `toml:"required_fields"`
	DefaultRequired []string            `toml:"default_required"`
	VIPSenders      []string            `toml:"vip_senders"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	VIPSenders string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil && env.VIPSenders != "" {
		if v := os.Getenv(env.VIPSenders); v != "" {
			c.VIPSenders = strings.Split(v, ",")
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Label entries are merged
// individually so an overlay may redefine a single label.
func (c *Config) Merge(overlay *Config) {
	if len(overlay.RequiredFields) > 0 {
		if c.RequiredFields == nil {
			c.RequiredFields = make(map[string][]string)
		}
		maps.Copy(c.RequiredFields, overlay.RequiredFields)
	}
	if overlay.DefaultRequired != nil {
		c.DefaultRequired = overlay.DefaultRequired
	}
	if len(overlay.VIPSenders) > 0 {
		c.VIPSenders = overlay.VIPSenders
	}
}

func (c *Config) loadDefaults() {
	defaults := map[string][]string{
		"billing":          {FieldContact, "reference"},
		"appointment":      {FieldContact},
		"new_case":         {FieldContact},
		"document_request": {FieldContact},
	}
	if c.RequiredFields == nil {
		c.RequiredFields = make(map[string][]string, len(defaults))
	}
	for label, fields := range defaults {
		if _, ok := c.RequiredFields[label]; !ok {
			c.RequiredFields[label] = fields
		}
	}
	if c.DefaultRequired == nil {
		c.DefaultRequired = []string{}
	}
}

func (c *Config) validate() error {
	for label, fields := range c.RequiredFields {
		for _, f := range fields {
			if strings.TrimSpace(f) == "" {
				return fmt.Errorf("required_fields.%s contains an empty field name", label)
			}
		}
	}
	return nil
}
