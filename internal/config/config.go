// Package config loads the pipeline's flat key/value configuration, with
// environment overrides taking precedence over a YAML file, which in turn
// takes precedence over built-in defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the configuration surface.
type Config struct {
	ExemplarThresholdSeconds int     `yaml:"exemplar_threshold_seconds"`
	ExemplarEnabled          bool    `yaml:"exemplar_enabled"`
	SlowThresholdSeconds     int     `yaml:"slow_threshold_seconds"`
	DefaultPlatform          string  `yaml:"default_platform"`
	DefaultModel             string  `yaml:"default_model"`
	RetryAttempts            int     `yaml:"retry_attempts"`
	APITimeoutSeconds        int     `yaml:"api_timeout"`
	APIRetryDelaySeconds     float64 `yaml:"api_retry_delay"`
	MaxProcessingTimeSeconds int     `yaml:"max_processing_time_seconds"`
	LogLevel                 string  `yaml:"log_level"`
	LogFile                  string  `yaml:"log_file"`
	MaxPromptLength          int     `yaml:"max_prompt_length"`
	SanitizeInputs           bool    `yaml:"sanitize_inputs"`
	RateLimitDelaySeconds    float64 `yaml:"rate_limit_delay"`
	BatchPollIntervalSeconds int     `yaml:"batch_poll_interval_seconds"`
	BatchMaxWaitSeconds      int     `yaml:"batch_max_wait_seconds"`
}

// ValidPlatforms lists platform enum values accepted for default_platform.
var ValidPlatforms = []string{"claude", "openai", "gemini", "xai", "openrouter", "zai", "auto"}

// ValidLogLevels lists the accepted log_level values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// DefaultConfig returns the built-in defaults, grounded on the original
// project's settings table.
func DefaultConfig() *Config {
	return &Config{
		ExemplarThresholdSeconds: 30,
		ExemplarEnabled:          true,
		SlowThresholdSeconds:     60,
		DefaultPlatform:          "claude",
		DefaultModel:             "claude-3-sonnet",
		RetryAttempts:            3,
		APITimeoutSeconds:        60,
		APIRetryDelaySeconds:     1.0,
		MaxProcessingTimeSeconds: 300,
		LogLevel:                 "info",
		LogFile:                  "",
		MaxPromptLength:          10000,
		SanitizeInputs:           true,
		RateLimitDelaySeconds:    0.5,
		BatchPollIntervalSeconds: 30,
		BatchMaxWaitSeconds:      24 * 60 * 60,
	}
}

// Load reads a YAML config file, falling back silently to defaults if it
// does not exist, then applies COMPUTER_-prefixed environment overrides.
// The returned warnings list one entry per invalid override value kept
// at its default (§6); the caller is responsible for logging them, since
// the logger isn't constructed yet at config-load time.
func Load(path string) (*Config, []string, error) {
	cfg := DefaultConfig()
	var warnings []string

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides(&warnings)
			return cfg, warnings, nil
		}
		return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides(&warnings)
	return cfg, warnings, nil
}

// Save writes the configuration back out as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides mirrors the COMPUTER_<KEY> convention from the
// original project's settings module. A key whose environment value
// fails to parse is left at its current value and appended to warnings.
func (c *Config) applyEnvOverrides(warnings *[]string) {
	warn := func(key, val string) {
		if warnings != nil {
			*warnings = append(*warnings, fmt.Sprintf("invalid value %q for %s, keeping default", val, key))
		}
	}

	if v := os.Getenv("COMPUTER_EXEMPLAR_THRESHOLD_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ExemplarThresholdSeconds = n
		} else {
			warn("COMPUTER_EXEMPLAR_THRESHOLD_SECONDS", v)
		}
	}
	if v := os.Getenv("COMPUTER_EXEMPLAR_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ExemplarEnabled = b
		} else {
			warn("COMPUTER_EXEMPLAR_ENABLED", v)
		}
	}
	if v := os.Getenv("COMPUTER_SLOW_THRESHOLD_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SlowThresholdSeconds = n
		} else {
			warn("COMPUTER_SLOW_THRESHOLD_SECONDS", v)
		}
	}
	if v := os.Getenv("COMPUTER_DEFAULT_PLATFORM"); v != "" {
		if isValidPlatform(v) {
			c.DefaultPlatform = v
		} else {
			warn("COMPUTER_DEFAULT_PLATFORM", v)
		}
	}
	if v := os.Getenv("COMPUTER_DEFAULT_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("COMPUTER_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RetryAttempts = n
		} else {
			warn("COMPUTER_RETRY_ATTEMPTS", v)
		}
	}
	if v := os.Getenv("COMPUTER_API_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.APITimeoutSeconds = n
		} else {
			warn("COMPUTER_API_TIMEOUT", v)
		}
	}
	if v := os.Getenv("COMPUTER_API_RETRY_DELAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.APIRetryDelaySeconds = f
		} else {
			warn("COMPUTER_API_RETRY_DELAY", v)
		}
	}
	if v := os.Getenv("COMPUTER_MAX_PROCESSING_TIME_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxProcessingTimeSeconds = n
		} else {
			warn("COMPUTER_MAX_PROCESSING_TIME_SECONDS", v)
		}
	}
	if v := os.Getenv("COMPUTER_LOG_LEVEL"); v != "" {
		if isValidLogLevel(v) {
			c.LogLevel = v
		} else {
			warn("COMPUTER_LOG_LEVEL", v)
		}
	}
	if v := os.Getenv("COMPUTER_LOG_FILE"); v != "" {
		c.LogFile = v
	}
}

func isValidPlatform(p string) bool {
	for _, v := range ValidPlatforms {
		if v == p {
			return true
		}
	}
	return false
}

func isValidLogLevel(l string) bool {
	for _, v := range ValidLogLevels {
		if v == l {
			return true
		}
	}
	return false
}

// ExemplarThreshold returns the exemplar cutoff as a duration.
func (c *Config) ExemplarThreshold() time.Duration {
	return time.Duration(c.ExemplarThresholdSeconds) * time.Second
}

// SlowThreshold returns the slow cutoff as a duration.
func (c *Config) SlowThreshold() time.Duration {
	return time.Duration(c.SlowThresholdSeconds) * time.Second
}

// APITimeout returns the per-call provider timeout as a duration.
func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSeconds) * time.Second
}

// APIRetryDelay returns the initial retry backoff as a duration.
func (c *Config) APIRetryDelay() time.Duration {
	return time.Duration(c.APIRetryDelaySeconds * float64(time.Second))
}

// MaxProcessingTime returns the local-fallback wall-clock ceiling.
func (c *Config) MaxProcessingTime() time.Duration {
	return time.Duration(c.MaxProcessingTimeSeconds) * time.Second
}

// BatchPollInterval returns the batch status poll cadence.
func (c *Config) BatchPollInterval() time.Duration {
	return time.Duration(c.BatchPollIntervalSeconds) * time.Second
}

// BatchMaxWait returns the batch total-wait ceiling.
func (c *Config) BatchMaxWait() time.Duration {
	return time.Duration(c.BatchMaxWaitSeconds) * time.Second
}
