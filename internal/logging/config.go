package logging

import (
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level      zapcore.Level
	Format     string
	Sampling   SamplingConfig
	Caller     CallerConfig
	Stacktrace zapcore.Level
	Fields     map[string]string
	Redaction  RedactionConfig
	// OTEL also sends entries to the global OpenTelemetry LoggerProvider.
	OTEL bool
}

// SamplingConfig controls log volume reduction below error level.
type SamplingConfig struct {
	Enabled    bool
	Tick       time.Duration
	Initial    int
	Thereafter int
}

// CallerConfig controls caller information in logs.
type CallerConfig struct {
	Enabled bool
	Skip    int
}

// RedactionConfig controls sensitive data redaction.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

// DefaultRedactedFields are field keys whose values never reach the output.
var DefaultRedactedFields = []string{
	"password", "secret", "token", "api_key", "apikey", "x-api-key",
	"authorization", "bearer", "credential", "database_url", "dsn",
}

// DefaultRedactedPatterns match secret-looking values regardless of key.
var DefaultRedactedPatterns = []string{
	`(?i)bearer\s+\S+`,
	`(?i)api[_-]?key[=:]\s*\S+`,
	`sk-[A-Za-z0-9_-]{16,}`,
	`postgres(ql)?://[^:\s]+:[^@\s]+@`,
}

// NewDefaultConfig returns config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Level:  zapcore.InfoLevel,
		Format: "json",
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       time.Second,
			Initial:    100,
			Thereafter: 10,
		},
		Caller: CallerConfig{
			Enabled: true,
			Skip:    1,
		},
		Stacktrace: zapcore.ErrorLevel,
		Fields: map[string]string{
			"service": "ragd",
		},
		Redaction: RedactionConfig{
			Enabled:  true,
			Fields:   DefaultRedactedFields,
			Patterns: DefaultRedactedPatterns,
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if c.Sampling.Enabled && c.Sampling.Tick <= 0 {
		return fmt.Errorf("sampling tick must be > 0 when sampling enabled")
	}
	if c.Caller.Enabled && c.Caller.Skip < 0 {
		return fmt.Errorf("caller skip must be >= 0, got %d", c.Caller.Skip)
	}
	if c.Redaction.Enabled {
		for _, pattern := range c.Redaction.Patterns {
			if len(pattern) > 200 {
				return fmt.Errorf("redaction pattern too long (max 200 chars): %q", pattern)
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
			}
		}
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}
