// Package config loads environment configuration and deployment tunables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider identifies an LLM or embedding backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection (the vector index)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Index is the vector index name, used as the SurrealDB database.
	Index string

	// LLM
	LLMProvider     Provider
	LLMModel        string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string

	// Embeddings
	EmbedProvider  Provider
	EmbedModel     string
	EmbedDimension int

	// DocumentsDir is the default directory scanned for PDFs.
	DocumentsDir string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Tunables are deployment-level knobs loaded from lettervault.yaml.
	Tunables Tunables
}

// Load reads configuration from the environment, after loading a .env
// file if one is present in the working directory.
func Load() (Config, error) {
	// Missing .env is fine; explicit env vars win either way.
	_ = godotenv.Load()

	cfg := Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "lettervault"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		Index: getEnv("LETTERVAULT_INDEX", "berkshire-letters"),

		LLMProvider:     Provider(getEnv("LETTERVAULT_LLM_PROVIDER", "openai")),
		LLMModel:        getEnv("LETTERVAULT_LLM_MODEL", "gpt-4o"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),

		EmbedProvider:  Provider(getEnv("LETTERVAULT_EMBED_PROVIDER", "openai")),
		EmbedModel:     getEnv("LETTERVAULT_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimension: 1024,

		DocumentsDir: getEnv("LETTERVAULT_DOCUMENTS_DIR", "documents"),

		LogFile:  getEnv("LETTERVAULT_LOG_FILE", "/tmp/lettervault.log"),
		LogLevel: parseLogLevel(getEnv("LETTERVAULT_LOG_LEVEL", "INFO")),
	}

	tunables, err := LoadTunables(getEnv("LETTERVAULT_CONFIG", "lettervault.yaml"))
	if err != nil {
		return Config{}, err
	}
	cfg.Tunables = tunables

	return cfg, nil
}

// Tunables are per-deployment constants for chunking, retrieval and
// rate limiting. They come from an optional YAML file; defaults match
// the production deployment.
type Tunables struct {
	Chunking struct {
		MaxSize    int      `yaml:"max_size"`
		Overlap    int      `yaml:"overlap"`
		Separators []string `yaml:"separators"`
	} `yaml:"chunking"`

	Retrieval struct {
		DefaultTopK int     `yaml:"default_top_k"`
		MaxTopK     int     `yaml:"max_top_k"`
		MinScore    float64 `yaml:"min_score"`
		MinYear     int     `yaml:"min_year"`
	} `yaml:"retrieval"`

	Ingest struct {
		BatchSize      int    `yaml:"batch_size"`
		EmbedInterval  string `yaml:"embed_interval"`
		UpsertInterval string `yaml:"upsert_interval"`
		EmbedRetries   int    `yaml:"embed_retries"`
	} `yaml:"ingest"`

	Search struct {
		EmbedRetries int `yaml:"embed_retries"`
	} `yaml:"search"`
}

// DefaultTunables returns the deployment defaults.
func DefaultTunables() Tunables {
	var t Tunables
	t.Chunking.MaxSize = 800
	t.Chunking.Overlap = 200
	t.Chunking.Separators = []string{"\n\n", "\n", ". ", " "}
	t.Retrieval.DefaultTopK = 5
	t.Retrieval.MaxTopK = 10
	t.Retrieval.MinScore = 0.7
	t.Retrieval.MinYear = 1965
	t.Ingest.BatchSize = 50
	t.Ingest.EmbedInterval = "100ms"
	t.Ingest.UpsertInterval = "500ms"
	t.Ingest.EmbedRetries = 2
	t.Search.EmbedRetries = 3
	return t
}

// LoadTunables reads a tunables YAML file, falling back to defaults if
// the file does not exist. Values absent from the file keep their
// defaults.
func LoadTunables(path string) (Tunables, error) {
	t := DefaultTunables()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("read tunables: %w", err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tunables %s: %w", path, err)
	}
	return t, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
