// Package config provides configuration loading for ragd.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Vector store providers.
const (
	ProviderPostgres = "postgres"
	ProviderChromem  = "chromem"
	ProviderQdrant   = "qdrant"
)

// Config holds the complete ragd configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
	OpenAI      OpenAIConfig      `koanf:"openai"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Log         LogConfig         `koanf:"log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	APIKey          Secret        `koanf:"api_key"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	RateLimitMax    int           `koanf:"rate_limit_max"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	BodyLimit       string        `koanf:"body_limit"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
}

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	URL          Secret `koanf:"url"`
	MaxConns     int32  `koanf:"max_conns"`
	Table        string `koanf:"table"`
	IVFFlatLists int    `koanf:"ivfflat_lists"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Provider        string `koanf:"provider"`
	Dimension       int    `koanf:"dimension"`
	Collection      string `koanf:"collection"`
	ChromemPath     string `koanf:"chromem_path"`
	ChromemCompress bool   `koanf:"chromem_compress"`
	QdrantHost      string `koanf:"qdrant_host"`
	QdrantPort      int    `koanf:"qdrant_port"`
	QdrantAPIKey    Secret `koanf:"qdrant_api_key"`
	QdrantTLS       bool   `koanf:"qdrant_tls"`
}

// OpenAIConfig holds embedding and chat completion API settings.
type OpenAIConfig struct {
	APIKey             Secret  `koanf:"api_key"`
	BaseURL            string  `koanf:"base_url"`
	EmbeddingModel     string  `koanf:"embedding_model"`
	EmbeddingBatchSize int     `koanf:"embedding_batch_size"`
	ChatModel          string  `koanf:"chat_model"`
	Temperature        float64 `koanf:"temperature"`
	RequestsPerSecond  float64 `koanf:"requests_per_second"`
	Burst              int     `koanf:"burst"`
}

// IngestConfig holds document chunking settings.
type IngestConfig struct {
	ChunkSize      int `koanf:"chunk_size"`
	ChunkOverlap   int `koanf:"chunk_overlap"`
	MaxConcurrency int `koanf:"max_concurrency"`
}

// LogConfig holds the logging settings exposed to operators.
type LogConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
	OTEL     bool   `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Endpoint       string        `koanf:"endpoint"`
	Protocol       string        `koanf:"protocol"`
	Insecure       bool          `koanf:"insecure"`
	ServiceName    string        `koanf:"service_name"`
	SampleRate     float64       `koanf:"sample_rate"`
	MetricInterval time.Duration `koanf:"metric_interval"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if !c.Server.APIKey.IsSet() {
		errs = append(errs, errors.New("server.api_key is required (API_KEY)"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid shutdown timeout: %v (must be positive)", c.Server.ShutdownTimeout))
	}
	if c.Server.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("invalid rate limit window: %v (must be positive)", c.Server.RateLimitWindow))
	}
	if c.Server.RateLimitMax <= 0 {
		errs = append(errs, fmt.Errorf("invalid rate limit max: %d (must be positive)", c.Server.RateLimitMax))
	}

	switch c.VectorStore.Provider {
	case ProviderPostgres:
		if !c.Database.URL.IsSet() {
			errs = append(errs, errors.New("database.url is required for the postgres provider (DATABASE_URL)"))
		}
		if c.Database.IVFFlatLists <= 0 {
			errs = append(errs, fmt.Errorf("invalid ivfflat lists: %d (must be positive)", c.Database.IVFFlatLists))
		}
	case ProviderChromem:
	case ProviderQdrant:
		if c.VectorStore.QdrantHost == "" {
			errs = append(errs, errors.New("vectorstore.qdrant_host is required for the qdrant provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported vectorstore provider: %q (must be postgres, chromem or qdrant)", c.VectorStore.Provider))
	}
	if c.VectorStore.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("invalid vector dimension: %d (must be positive)", c.VectorStore.Dimension))
	}

	if !c.OpenAI.APIKey.IsSet() {
		errs = append(errs, errors.New("openai.api_key is required (OPENAI_API_KEY)"))
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("invalid temperature: %v (must be 0-2)", c.OpenAI.Temperature))
	}
	if c.OpenAI.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("invalid requests per second: %v (must be >= 0)", c.OpenAI.RequestsPerSecond))
	}

	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid chunk size: %d (must be positive)", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("invalid chunk overlap: %d (must be >= 0 and < chunk size)", c.Ingest.ChunkOverlap))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %q (must be json or console)", c.Log.Format))
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			errs = append(errs, errors.New("telemetry.endpoint is required when telemetry is enabled"))
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			errs = append(errs, fmt.Errorf("invalid telemetry protocol: %q (must be grpc or http/protobuf)", c.Telemetry.Protocol))
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			errs = append(errs, fmt.Errorf("invalid sample rate: %v (must be 0-1)", c.Telemetry.SampleRate))
		}
	}

	return errors.Join(errs...)
}
