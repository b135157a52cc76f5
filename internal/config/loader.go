package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// sections are the top-level keys environment variables may target.
var sections = map[string]bool{
	"server":      true,
	"database":    true,
	"vectorstore": true,
	"openai":      true,
	"ingest":      true,
	"log":         true,
	"telemetry":   true,
}

// legacyEnv maps the variable names the service has always read to config keys.
var legacyEnv = map[string]string{
	"PORT":    "server.port",
	"API_KEY": "server.api_key",
}

// Load loads configuration from environment variables and defaults.
func Load() (*Config, error) {
	return LoadWithFile("")
}

// LoadWithFile loads configuration from a YAML file, then overrides with
// environment variables.
//
// Precedence (highest to lowest):
//  1. Environment variables
//  2. YAML config file at configPath (skipped when empty or missing)
//  3. Defaults
//
// Environment variables split on the first underscore into section and field:
//
//	SERVER_RATE_LIMIT_MAX -> server.rate_limit_max
//	VECTORSTORE_PROVIDER  -> vectorstore.provider
//	DATABASE_URL          -> database.url
//	OPENAI_API_KEY        -> openai.api_key
//
// PORT and API_KEY are accepted as aliases for SERVER_PORT and SERVER_API_KEY.
// Variables whose section is unknown are ignored.
//
// The file must not be group or world writable and must be under 1MB.
func LoadWithFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg, k.Exists)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps an environment variable name to a config key, or "" to skip it.
func envKey(s string) string {
	if key, ok := legacyEnv[s]; ok {
		return key
	}
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || parts[1] == "" || !sections[parts[0]] {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// readConfigFile opens the file once and validates the open descriptor so the
// checks and the read see the same file.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file type, permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("config path is a directory")
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields.
// Fields where zero is a meaningful value consult isSet instead of the
// zero check so an explicit 0 survives.
func applyDefaults(cfg *Config, isSet func(key string) bool) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 2 * time.Minute
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.RateLimitWindow == 0 {
		cfg.Server.RateLimitWindow = 15 * time.Minute
	}
	if cfg.Server.RateLimitMax == 0 {
		cfg.Server.RateLimitMax = 100
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.BodyLimit == "" {
		cfg.Server.BodyLimit = "2M"
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 10 << 20
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.Table == "" {
		cfg.Database.Table = "documents"
	}
	if cfg.Database.IVFFlatLists == 0 {
		cfg.Database.IVFFlatLists = 100
	}

	if cfg.VectorStore.Provider == "" {
		cfg.VectorStore.Provider = ProviderPostgres
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = 1536
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "documents"
	}
	if cfg.VectorStore.QdrantPort == 0 {
		cfg.VectorStore.QdrantPort = 6334
	}
	if cfg.VectorStore.Provider == ProviderQdrant && cfg.VectorStore.QdrantHost == "" {
		cfg.VectorStore.QdrantHost = "localhost"
	}

	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-ada-002"
	}
	if cfg.OpenAI.EmbeddingBatchSize == 0 {
		cfg.OpenAI.EmbeddingBatchSize = 512
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-3.5-turbo"
	}
	if !isSet("openai.temperature") {
		cfg.OpenAI.Temperature = 0.7
	}

	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = 1000
	}
	if !isSet("ingest.chunk_overlap") {
		cfg.Ingest.ChunkOverlap = min(200, cfg.Ingest.ChunkSize/5)
	}
	if cfg.Ingest.MaxConcurrency == 0 {
		cfg.Ingest.MaxConcurrency = 4
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ragd"
	}
	if !isSet("telemetry.sample_rate") {
		cfg.Telemetry.SampleRate = 1.0
	}
	if cfg.Telemetry.MetricInterval == 0 {
		cfg.Telemetry.MetricInterval = 15 * time.Second
	}
}
