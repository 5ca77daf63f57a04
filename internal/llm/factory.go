package llm

import "fmt"

// ProviderConfig selects and configures a model provider.
type ProviderConfig struct {
	Provider string // "openai" or "ollama" (default: ollama)
	APIKey   string
	Model    string
	BaseURL  string
}

// NewChatCompleter creates the appropriate ChatCompleter for the provider.
func NewChatCompleter(cfg ProviderConfig) (ChatCompleter, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: cfg.Model}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// NewEmbeddingGenerator creates the appropriate EmbeddingGenerator.
// The embedding model is configured separately from the chat model; dimensions
// must match the vector index (384 in this system).
func NewEmbeddingGenerator(cfg ProviderConfig, embeddingModel string, dimensions int) (EmbeddingGenerator, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{
			APIKey:     cfg.APIKey,
			Model:      embeddingModel,
			BaseURL:    cfg.BaseURL,
			Dimensions: dimensions,
		}), nil
	case "ollama", "":
		model := embeddingModel
		if model == "" {
			model = "all-minilm"
		}
		return NewOllamaClient(OllamaConfig{BaseURL: cfg.BaseURL, Model: model}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}
