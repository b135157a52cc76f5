package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/ragd/internal/config"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled        bool
	Endpoint       string
	Protocol       string // "grpc" or "http/protobuf"
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	SampleRate     float64
	MetricInterval time.Duration
	ShutdownAfter  time.Duration
}

// NewDefaultConfig returns telemetry defaults. Export is disabled until an
// OTLP collector is configured.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Endpoint:       "localhost:4317",
		Protocol:       "grpc",
		ServiceName:    "ragd",
		ServiceVersion: "dev",
		Insecure:       true,
		SampleRate:     1.0,
		MetricInterval: 15 * time.Second,
		ShutdownAfter:  5 * time.Second,
	}
}

// FromConfig builds a telemetry Config from the service configuration.
func FromConfig(c config.TelemetryConfig, version string) *Config {
	cfg := NewDefaultConfig()
	cfg.Enabled = c.Enabled
	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.Protocol != "" {
		cfg.Protocol = c.Protocol
	}
	if c.ServiceName != "" {
		cfg.ServiceName = c.ServiceName
	}
	if version != "" {
		cfg.ServiceVersion = version
	}
	cfg.Insecure = c.Insecure
	cfg.SampleRate = c.SampleRate
	if c.MetricInterval > 0 {
		cfg.MetricInterval = c.MetricInterval
	}
	return cfg
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	if c.Protocol != "grpc" && c.Protocol != "http/protobuf" {
		return fmt.Errorf("protocol must be grpc or http/protobuf, got %q", c.Protocol)
	}
	if c.Insecure && !c.isLocalEndpoint() {
		return fmt.Errorf("insecure connections to remote endpoints are not allowed; set insecure=false or use a local endpoint")
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %f", c.SampleRate)
	}
	if c.MetricInterval <= 0 {
		return fmt.Errorf("metric interval must be positive")
	}
	return nil
}

func (c *Config) isLocalEndpoint() bool {
	host := stripScheme(c.Endpoint)
	if strings.HasPrefix(host, "[") {
		if idx := strings.Index(host, "]"); idx != -1 {
			host = host[1:idx]
		}
	} else if strings.Count(host, ":") == 1 {
		host = host[:strings.LastIndex(host, ":")]
	}
	return host == "localhost" || host == "::1" || strings.HasPrefix(host, "127.")
}
