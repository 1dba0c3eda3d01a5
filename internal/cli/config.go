package cli

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// HostConfig is the YAML configuration of `shmvec host`. Flags override it.
type HostConfig struct {
	Dir       string `yaml:"dir"`
	Namespace string `yaml:"namespace"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format"`

	// CommitLimitBytes bounds the bytes committed across all vectors.
	CommitLimitBytes int64 `yaml:"commit_limit_bytes"`
	// CopyWindows maps windows through a private copy instead of in place.
	CopyWindows bool `yaml:"copy_windows"`

	// PollInterval bounds how long the host sleeps between liveness checks.
	PollInterval time.Duration `yaml:"poll_interval"`
	// StayUp keeps serving new clients after the current one exits.
	StayUp bool `yaml:"stay_up"`

	// MetricsAddr serves Prometheus metrics at /metrics when set.
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultHostConfig returns the settings used without a config file.
func DefaultHostConfig() HostConfig {
	return HostConfig{
		LogLevel:     "info",
		LogFormat:    "text",
		PollInterval: 100 * time.Millisecond,
	}
}

// LoadHostConfig reads a YAML host config on top of DefaultHostConfig.
// Unknown fields are rejected.
func LoadHostConfig(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings.
func (c HostConfig) Validate() error {
	var errs []error
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q: must be text or json", c.LogFormat))
	}
	if c.CommitLimitBytes < 0 {
		errs = append(errs, errors.New("commit_limit_bytes must not be negative"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("poll_interval must be positive"))
	}
	return errors.Join(errs...)
}

func (c HostConfig) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
