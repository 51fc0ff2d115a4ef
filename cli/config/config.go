// Package config handles CLI configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mberenty7/tripo-tools/core"
)

// Environment variables that override values from the config file.
const (
	EnvBaseURL = "TRIPO_BASE_URL"
	EnvTimeout = "TRIPO_TIMEOUT"
)

// Config represents the CLI configuration.
type Config struct {
	BaseURL           string          `yaml:"base_url,omitempty"`
	DefaultFormat     string          `yaml:"default_format,omitempty"`
	ModelVersion      string          `yaml:"model_version,omitempty"`
	Poll              PollConfig      `yaml:"poll"`
	RateLimit         RateLimitConfig `yaml:"rate_limit"`
	UploadConcurrency int             `yaml:"upload_concurrency,omitempty"`
}

// PollConfig mirrors core.PollConfig in YAML form.
type PollConfig struct {
	Interval             time.Duration `yaml:"interval,omitempty"`
	Timeout              time.Duration `yaml:"timeout,omitempty"`
	MaxConsecutiveErrors int           `yaml:"max_consecutive_errors,omitempty"`
	HonorRetryAfter      bool          `yaml:"honor_retry_after,omitempty"`
}

// RateLimitConfig paces API calls on the client side. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}

// DefaultConfigPath returns the default configuration file path for the current platform.
// - macOS/Linux: ~/.tripo/config.yaml
// - Windows: %USERPROFILE%\.tripo\config.yaml
func DefaultConfigPath() string {
	homeDir := homeDir()
	if homeDir == "" {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".tripo", "config.yaml")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// LoadConfig loads configuration from the specified path and applies
// environment overrides. A missing file yields the defaults without error.
// Returns an error only if the file exists but cannot be read or parsed, or
// if an override is malformed.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", core.ErrConfig, path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrConfig, path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return &core.ValidationError{Field: EnvTimeout, Reason: err.Error(), Err: core.ErrConfig}
		}
		c.Poll.Timeout = d
	}
	return nil
}

// parseDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(v)
}

// Validate rejects values that cannot be used.
func (c *Config) Validate() error {
	if c.DefaultFormat != "" {
		if _, err := core.ParseFormat(c.DefaultFormat); err != nil {
			return &core.ValidationError{Field: "default_format", Reason: err.Error(), Err: core.ErrConfig}
		}
	}
	if c.Poll.Interval < 0 || c.Poll.Timeout < 0 {
		return &core.ValidationError{Field: "poll", Reason: "durations must not be negative", Err: core.ErrConfig}
	}
	if c.Poll.MaxConsecutiveErrors < 0 {
		return &core.ValidationError{Field: "poll.max_consecutive_errors", Reason: "must not be negative", Err: core.ErrConfig}
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return &core.ValidationError{Field: "rate_limit", Reason: "must not be negative", Err: core.ErrConfig}
	}
	if c.UploadConcurrency < 0 {
		return &core.ValidationError{Field: "upload_concurrency", Reason: "must not be negative", Err: core.ErrConfig}
	}
	return nil
}

// Format returns the configured default output format, or GLB.
func (c *Config) Format() core.Format {
	if c == nil || c.DefaultFormat == "" {
		return core.DefaultFormat
	}
	f, err := core.ParseFormat(c.DefaultFormat)
	if err != nil {
		return core.DefaultFormat
	}
	return f
}

// PollConfig converts the poll section into a core.PollConfig. Unset fields
// keep the core defaults.
func (c *Config) PollConfig() core.PollConfig {
	pc := core.DefaultPollConfig()
	if c == nil {
		return pc
	}
	if c.Poll.Interval > 0 {
		pc.Interval = c.Poll.Interval
	}
	if c.Poll.Timeout > 0 {
		pc.Timeout = c.Poll.Timeout
	}
	if c.Poll.MaxConsecutiveErrors > 0 {
		pc.MaxConsecutiveErrors = c.Poll.MaxConsecutiveErrors
	}
	pc.HonorRetryAfter = c.Poll.HonorRetryAfter
	return pc
}
