package database

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config describes a Postgres connection and its pool.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
}

// Env holds the environment variable name for each Config field. Empty
// names are skipped.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration { return parseDuration(c.ConnMaxLifetime) }
func (c *Config) ConnTimeoutDuration() time.Duration     { return parseDuration(c.ConnTimeout) }

// Dsn is the keyword/value form handed to the pgx stdlib driver.
func (c *Config) Dsn() string {
	pairs := []string{
		"host=" + c.Host,
		"port=" + strconv.Itoa(c.Port),
		"dbname=" + c.Name,
		"user=" + c.User,
		"password=" + c.Password,
		"sslmode=" + c.SSLMode,
	}
	return strings.Join(pairs, " ")
}

// URL is the postgres:// form golang-migrate expects.
func (c *Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// Finalize fills defaults, applies env when non-nil, then validates.
func (c *Config) Finalize(env *Env) error {
	c.defaults()
	if env != nil {
		c.stringFields(env).each(func(dst *string, name string) {
			if v := os.Getenv(name); name != "" && v != "" {
				*dst = v
			}
		})
		c.intFields(env).each(func(dst *int, name string) {
			if name == "" {
				return
			}
			if n, err := strconv.Atoi(os.Getenv(name)); err == nil {
				*dst = n
			}
		})
	}
	return c.validate()
}

// Merge copies every non-zero overlay field onto c.
func (c *Config) Merge(overlay *Config) {
	src := overlay.stringFields(nil)
	for i, f := range c.stringFields(nil) {
		if *src[i].dst != "" {
			*f.dst = *src[i].dst
		}
	}
	srcInts := overlay.intFields(nil)
	for i, f := range c.intFields(nil) {
		if *srcInts[i].dst != 0 {
			*f.dst = *srcInts[i].dst
		}
	}
}

type binding[T any] struct {
	dst *T
	env string
}

type bindings[T any] []binding[T]

func (b bindings[T]) each(fn func(dst *T, env string)) {
	for _, f := range b {
		fn(f.dst, f.env)
	}
}

func (c *Config) stringFields(env *Env) bindings[string] {
	if env == nil {
		env = &Env{}
	}
	return bindings[string]{
		{&c.Host, env.Host},
		{&c.Name, env.Name},
		{&c.User, env.User},
		{&c.Password, env.Password},
		{&c.SSLMode, env.SSLMode},
		{&c.ConnMaxLifetime, env.ConnMaxLifetime},
		{&c.ConnTimeout, env.ConnTimeout},
	}
}

func (c *Config) intFields(env *Env) bindings[int] {
	if env == nil {
		env = &Env{}
	}
	return bindings[int]{
		{&c.Port, env.Port},
		{&c.MaxOpenConns, env.MaxOpenConns},
		{&c.MaxIdleConns, env.MaxIdleConns},
	}
}

func (c *Config) defaults() {
	c.Host = cmp.Or(c.Host, "localhost")
	c.Port = cmp.Or(c.Port, 5432)
	c.SSLMode = cmp.Or(c.SSLMode, "disable")
	c.MaxOpenConns = cmp.Or(c.MaxOpenConns, 25)
	c.MaxIdleConns = cmp.Or(c.MaxIdleConns, 5)
	c.ConnMaxLifetime = cmp.Or(c.ConnMaxLifetime, "15m")
	c.ConnTimeout = cmp.Or(c.ConnTimeout, "5s")
}

func (c *Config) validate() error {
	switch {
	case c.Name == "":
		return errors.New("name required")
	case c.User == "":
		return errors.New("user required")
	case c.MaxIdleConns > c.MaxOpenConns:
		return fmt.Errorf("max_idle_conns (%d) exceeds max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		return fmt.Errorf("invalid conn_timeout: %w", err)
	}
	return nil
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
