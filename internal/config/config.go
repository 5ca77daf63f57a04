// Package config provides configuration management for Smart Tickets.
// It loads settings from environment variables with the SMARTTICKETS_ prefix
// and provides sensible defaults for all configuration options.
//
// An optional .env file is loaded first (via godotenv), then an optional YAML
// config file, then environment variables. Environment variables always win.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the Smart Tickets service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Eval      EvalConfig      `yaml:"eval"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"` // Server port (default: 8008)
	Host string `yaml:"host"` // Server host (default: 127.0.0.1)

	// RequestsPerSecond caps the accepted request rate; zero disables the
	// limiter (default: 0).
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine string `yaml:"storage_engine"` // Storage engine: sqlite, postgres (default: sqlite)
	DataPath      string `yaml:"data_path"`      // Path to data directory for SQLite (default: ./data)
	PostgresDSN   string `yaml:"postgres_dsn"`   // PostgreSQL connection string
}

// LLMConfig contains model provider configuration.
type LLMConfig struct {
	Provider             string `yaml:"provider"`               // Model provider: ollama, openai (default: ollama)
	OllamaURL            string `yaml:"ollama_url"`             // Ollama API URL (default: http://localhost:11434)
	OllamaModel          string `yaml:"ollama_model"`           // Ollama chat model (default: qwen2.5:7b)
	OllamaEmbeddingModel string `yaml:"ollama_embedding_model"` // Ollama embedding model (default: all-minilm)
	OpenAIAPIKey         string `yaml:"openai_api_key"`         // OpenAI API key
	OpenAIModel          string `yaml:"openai_model"`           // OpenAI chat model (default: gpt-4o-mini)
	OpenAIEmbeddingModel string `yaml:"openai_embedding_model"` // OpenAI embedding model (default: text-embedding-3-small)
	EmbeddingDimensions  int    `yaml:"embedding_dimensions"`   // Embedding vector width (default: 384)
}

// RetrievalConfig contains similarity-search configuration.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"` // Neighbors retrieved per decision (default: 5)
}

// EvalConfig contains offline evaluation configuration.
type EvalConfig struct {
	Limit             int     `yaml:"limit"`               // Max tickets per run (default: 100)
	RequestsPerSecond float64 `yaml:"requests_per_second"` // Model-call pacing (default: 1)
}

// NotifyConfig contains outbound email notification settings. Notifications
// are disabled unless explicitly enabled with a sender and recipient.
type NotifyConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Enable SES notifications (default: false)
	AWSRegion string `yaml:"aws_region"` // AWS region for SES (default: eu-central-1)
	Sender    string `yaml:"sender"`     // Verified sender address
	Recipient string `yaml:"recipient"`  // Default recipient for assignment digests
}

// LoadConfig loads configuration from an optional .env file, an optional YAML
// file named by SMARTTICKETS_CONFIG_FILE, and environment variables with the
// SMARTTICKETS_ prefix. Environment variables take precedence over the file.
func LoadConfig() (*Config, error) {
	// Missing .env is the normal case; only real read errors matter.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: failed to load .env: %w", err)
	}

	cfg := defaultConfig()

	if path := os.Getenv("SMARTTICKETS_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

// defaultConfig constructs a Config with the built-in defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8008,
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{
			StorageEngine: "sqlite",
			DataPath:      "./data",
		},
		LLM: LLMConfig{
			Provider:             "ollama",
			OllamaURL:            "http://localhost:11434",
			OllamaModel:          "qwen2.5:7b",
			OllamaEmbeddingModel: "all-minilm",
			OpenAIModel:          "gpt-4o-mini",
			OpenAIEmbeddingModel: "text-embedding-3-small",
			EmbeddingDimensions:  384,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Eval: EvalConfig{
			Limit:             100,
			RequestsPerSecond: 1,
		},
		Notify: NotifyConfig{
			AWSRegion: "eu-central-1",
		},
	}
}

// applyEnv overlays SMARTTICKETS_ environment variables on a config.
func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("SMARTTICKETS_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SMARTTICKETS_HOST", cfg.Server.Host)
	cfg.Server.RequestsPerSecond = getEnvFloat("SMARTTICKETS_REQUESTS_PER_SECOND", cfg.Server.RequestsPerSecond)

	cfg.Storage.StorageEngine = getEnv("SMARTTICKETS_STORAGE_ENGINE", cfg.Storage.StorageEngine)
	cfg.Storage.DataPath = getEnv("SMARTTICKETS_DATA_PATH", cfg.Storage.DataPath)
	cfg.Storage.PostgresDSN = getEnv("SMARTTICKETS_POSTGRES_DSN", cfg.Storage.PostgresDSN)

	cfg.LLM.Provider = getEnv("SMARTTICKETS_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.OllamaURL = getEnv("SMARTTICKETS_OLLAMA_URL", cfg.LLM.OllamaURL)
	cfg.LLM.OllamaModel = getEnv("SMARTTICKETS_OLLAMA_MODEL", cfg.LLM.OllamaModel)
	cfg.LLM.OllamaEmbeddingModel = getEnv("SMARTTICKETS_OLLAMA_EMBEDDING_MODEL", cfg.LLM.OllamaEmbeddingModel)
	cfg.LLM.OpenAIAPIKey = getEnv("SMARTTICKETS_OPENAI_API_KEY", cfg.LLM.OpenAIAPIKey)
	cfg.LLM.OpenAIModel = getEnv("SMARTTICKETS_OPENAI_MODEL", cfg.LLM.OpenAIModel)
	cfg.LLM.OpenAIEmbeddingModel = getEnv("SMARTTICKETS_OPENAI_EMBEDDING_MODEL", cfg.LLM.OpenAIEmbeddingModel)
	cfg.LLM.EmbeddingDimensions = getEnvInt("SMARTTICKETS_EMBEDDING_DIMENSIONS", cfg.LLM.EmbeddingDimensions)

	cfg.Retrieval.TopK = getEnvInt("SMARTTICKETS_TOP_K", cfg.Retrieval.TopK)

	cfg.Eval.Limit = getEnvInt("SMARTTICKETS_EVAL_LIMIT", cfg.Eval.Limit)
	cfg.Eval.RequestsPerSecond = getEnvFloat("SMARTTICKETS_EVAL_REQUESTS_PER_SECOND", cfg.Eval.RequestsPerSecond)

	cfg.Notify.Enabled = getEnvBool("SMARTTICKETS_NOTIFY_ENABLED", cfg.Notify.Enabled)
	cfg.Notify.AWSRegion = getEnv("SMARTTICKETS_AWS_REGION", cfg.Notify.AWSRegion)
	cfg.Notify.Sender = getEnv("SMARTTICKETS_NOTIFY_SENDER", cfg.Notify.Sender)
	cfg.Notify.Recipient = getEnv("SMARTTICKETS_NOTIFY_RECIPIENT", cfg.Notify.Recipient)
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. An unparseable value falls back to the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. An unparseable value falls back to the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value. An unparseable value falls back to the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
