// Package config provides configuration loading for ralph.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RALPH_VALIDATOR_PATH, RALPH_PIPELINE_MAX_ITERATIONS, ...)
//  2. YAML config file
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/designops/ralph/internal/gate"
)

// Config holds the complete ralph configuration.
type Config struct {
	Validator   ValidatorConfig   `koanf:"validator"`
	Pipeline    PipelineConfig    `koanf:"pipeline"`
	Remediation RemediationConfig `koanf:"remediation"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`

	// Gates optionally replaces the built-in stage set. Empty means use
	// the default pipeline.
	Gates []gate.Spec `koanf:"gates"`
}

// ValidatorConfig locates the external validation script.
type ValidatorConfig struct {
	// Path is the validator executable. Required; checked at startup.
	Path string `koanf:"path"`
}

// PipelineConfig holds pipeline-wide execution settings.
type PipelineConfig struct {
	// MaxIterations is the default retry bound per gate.
	MaxIterations int `koanf:"max_iterations"`

	// Timeout bounds a single validator invocation.
	Timeout Duration `koanf:"timeout"`

	// Workdir anchors workdir-relative artifacts and the .ralph state dir.
	Workdir string `koanf:"workdir"`

	// RequireCommits enables commit-discipline checks between attempts.
	RequireCommits bool `koanf:"require_commits"`
}

// RemediationConfig selects how guidance is surfaced between attempts.
type RemediationConfig struct {
	// Mode is one of "console", "marker", or "none".
	Mode string `koanf:"mode"`
}

// ServerConfig holds the status server's listen address.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is "console" or "json".
	Format string `koanf:"format"`
}

// Remediation modes.
const (
	ModeConsole = "console"
	ModeMarker  = "marker"
	ModeNone    = "none"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			MaxIterations: 5,
			Timeout:       Duration(600 * time.Second),
			Workdir:       ".",
		},
		Remediation: RemediationConfig{Mode: ModeConsole},
		Server: ServerConfig{
			Host: "localhost",
			Port: 9290,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks the configuration. A missing or non-executable validator is
// a startup-time fatal error, not a gate-time one.
func (c *Config) Validate() error {
	if c.Validator.Path == "" {
		return fmt.Errorf("validator.path is required")
	}
	info, err := os.Stat(c.Validator.Path)
	if err != nil {
		return fmt.Errorf("validator not found at %s: %w", c.Validator.Path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("validator path %s is a directory", c.Validator.Path)
	}
	if info.Mode()&0o111 == 0 {
		return fmt.Errorf("validator %s is not executable", c.Validator.Path)
	}

	if c.Pipeline.MaxIterations <= 0 {
		return fmt.Errorf("pipeline.max_iterations must be positive, got %d", c.Pipeline.MaxIterations)
	}
	if c.Pipeline.Timeout.Duration() <= 0 {
		return fmt.Errorf("pipeline.timeout must be positive")
	}

	switch c.Remediation.Mode {
	case ModeConsole, ModeMarker, ModeNone:
	default:
		return fmt.Errorf("remediation.mode must be console, marker, or none; got %q", c.Remediation.Mode)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json; got %q", c.Logging.Format)
	}

	return nil
}
