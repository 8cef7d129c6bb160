package middleware

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"
)

// CORSConfig is the cross-origin policy applied by CORS.
type CORSConfig struct {
	Enabled          bool     `toml:"enabled"`
	Origins          []string `toml:"origins"`
	AllowedMethods   []string `toml:"allowed_methods"`
	AllowedHeaders   []string `toml:"allowed_headers"`
	AllowCredentials bool     `toml:"allow_credentials"`
	MaxAge           int      `toml:"max_age"`
}

// CORSEnv names the environment variables that override CORSConfig.
type CORSEnv struct {
	Enabled          string
	Origins          string
	AllowedMethods   string
	AllowedHeaders   string
	AllowCredentials string
	MaxAge           string
}

var (
	defaultCORSMethods = []string{"GET", "POST", "OPTIONS"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-Message-ID", RequestIDHeader}
)

// Finalize fills defaults, applies env when non-nil, and rejects a
// wildcard origin combined with credentials.
func (c *CORSConfig) Finalize(env *CORSEnv) error {
	if len(c.AllowedMethods) == 0 {
		c.AllowedMethods = slices.Clone(defaultCORSMethods)
	}
	if len(c.AllowedHeaders) == 0 {
		c.AllowedHeaders = slices.Clone(defaultCORSHeaders)
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 3600
	}

	if env != nil {
		lookup(env.Enabled, strconv.ParseBool, &c.Enabled)
		lookup(env.AllowCredentials, strconv.ParseBool, &c.AllowCredentials)
		lookup(env.MaxAge, strconv.Atoi, &c.MaxAge)
		lookup(env.Origins, splitList, &c.Origins)
		lookup(env.AllowedMethods, splitList, &c.AllowedMethods)
		lookup(env.AllowedHeaders, splitList, &c.AllowedHeaders)
	}

	if c.AllowCredentials && slices.Contains(c.Origins, "*") {
		return errors.New("allow_credentials cannot be combined with origin *")
	}
	return nil
}

// Merge takes both booleans from overlay unconditionally and every other
// field only when set.
func (c *CORSConfig) Merge(overlay *CORSConfig) {
	c.Enabled = overlay.Enabled
	c.AllowCredentials = overlay.AllowCredentials

	for _, f := range []struct{ dst, src *[]string }{
		{&c.Origins, &overlay.Origins},
		{&c.AllowedMethods, &overlay.AllowedMethods},
		{&c.AllowedHeaders, &overlay.AllowedHeaders},
	} {
		if *f.src != nil {
			*f.dst = *f.src
		}
	}
	if overlay.MaxAge > 0 {
		c.MaxAge = overlay.MaxAge
	}
}

// lookup parses the named variable into dst. Unset or unparseable values
// leave dst alone.
func lookup[T any](name string, parse func(string) (T, error), dst *T) {
	if name == "" {
		return
	}
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return
	}
	if v, err := parse(raw); err == nil {
		*dst = v
	}
}

func splitList(s string) ([]string, error) {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, nil
}
