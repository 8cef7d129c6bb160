package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mobby57/memoLib-sub019/internal/analyze"
	"github.com/mobby57/memoLib-sub019/pkg/retry"
)

// Config holds controller tuning and the classifier and analyzer selection.
type Config struct {
	Retries             int            `toml:"retries"`
	InitialBackoff      string         `toml:"initial_backoff"`
	BackoffMultiplier   float64        `toml:"backoff_multiplier"`
	MaxBackoff          string         `toml:"max_backoff"`
	StageTimeout        string         `toml:"stage_timeout"`
	ConfidenceThreshold float64        `toml:"confidence_threshold"`
	Classifier          string         `toml:"classifier"`
	RulesFile           string         `toml:"rules_file"`
	Analysis            analyze.Config `toml:"analysis"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Retries             string
	InitialBackoff      string
	MaxBackoff          string
	StageTimeout        string
	ConfidenceThreshold string
	Classifier          string
	RulesFile           string
	Analysis            *analyze.Env
}

// Policy returns the retry policy applied to each stage.
func (c *Config) Policy() retry.Policy {
	initial, _ := time.ParseDuration(c.InitialBackoff)
	maxBackoff, _ := time.ParseDuration(c.MaxBackoff)
	timeout, _ := time.ParseDuration(c.StageTimeout)

	return retry.Policy{
		Attempts:   c.Retries,
		Initial:    initial,
		Multiplier: c.BackoffMultiplier,
		Max:        maxBackoff,
		Timeout:    timeout,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	var analysisEnv *analyze.Env
	if env != nil {
		c.loadEnv(env)
		analysisEnv = env.Analysis
	}
	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Analysis.Finalize(analysisEnv); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Retries != 0 {
		c.Retries = overlay.Retries
	}
	if overlay.InitialBackoff != "" {
		c.InitialBackoff = overlay.InitialBackoff
	}
	if overlay.BackoffMultiplier != 0 {
		c.BackoffMultiplier = overlay.BackoffMultiplier
	}
	if overlay.MaxBackoff != "" {
		c.MaxBackoff = overlay.MaxBackoff
	}
	if overlay.StageTimeout != "" {
		c.StageTimeout = overlay.StageTimeout
	}
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.Classifier != "" {
		c.Classifier = overlay.Classifier
	}
	if overlay.RulesFile != "" {
		c.RulesFile = overlay.RulesFile
	}
	c.Analysis.Merge(&overlay.Analysis)
}

func (c *Config) loadDefaults() {
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.InitialBackoff == "" {
		c.InitialBackoff = "200ms"
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = 2
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "5s"
	}
	if c.StageTimeout == "" {
		c.StageTimeout = "30s"
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = 0.6
	}
	if c.Classifier == "" {
		c.Classifier = "rules"
	}
}

func (c *Config) loadEnv(env *Env) {
	if v := os.Getenv(env.Retries); env.Retries != "" && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Retries = n
		}
	}
	if v := os.Getenv(env.InitialBackoff); env.InitialBackoff != "" && v != "" {
		c.InitialBackoff = v
	}
	if v := os.Getenv(env.MaxBackoff); env.MaxBackoff != "" && v != "" {
		c.MaxBackoff = v
	}
	if v := os.Getenv(env.StageTimeout); env.StageTimeout != "" && v != "" {
		c.StageTimeout = v
	}
	if v := os.Getenv(env.ConfidenceThreshold); env.ConfidenceThreshold != "" && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv(env.Classifier); env.Classifier != "" && v != "" {
		c.Classifier = v
	}
	if v := os.Getenv(env.RulesFile); env.RulesFile != "" && v != "" {
		c.RulesFile = v
	}
}

func (c *Config) validate() error {
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be at least 1")
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be within [0, 1]")
	}
	for name, v := range map[string]string{
		"initial_backoff": c.InitialBackoff,
		"max_backoff":     c.MaxBackoff,
		"stage_timeout":   c.StageTimeout,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
