package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/smarttickets/smarttickets/internal/config"
	"github.com/smarttickets/smarttickets/internal/engine"
	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/notify"
	"github.com/smarttickets/smarttickets/internal/server"
	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/internal/storage/postgres"
	"github.com/smarttickets/smarttickets/internal/storage/sqlite"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chat, embedder, err := buildClients(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize model clients: %v", err)
	}

	indexer := engine.NewIndexer(embedder, store, store)
	assigner := engine.NewAssignmentEngine(store, store, embedder, chat)
	solver := engine.NewSolutionEngine(store, embedder, chat)

	var mailer *notify.Mailer
	if cfg.Notify.Enabled {
		mailer, err = notify.NewMailer(ctx, cfg.Notify.AWSRegion, cfg.Notify.Sender, cfg.Notify.Recipient)
		if err != nil {
			log.Printf("Notifications disabled: %v", err)
			mailer = nil
		}
	}

	handlers := server.NewHandlers(store, embedder, assigner, solver, indexer, mailer)
	addr, err := server.Start(ctx, cfg, handlers)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Smart Tickets API listening on %s (storage: %s, provider: %s)",
		addr, cfg.Storage.StorageEngine, cfg.LLM.Provider)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")
	cancel()
}

// openStore builds the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.NewStore(cfg.Storage.PostgresDSN)
	default:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
			return nil, err
		}
		return sqlite.NewStore(cfg.Storage.DataPath + "/smarttickets.db")
	}
}

// buildClients builds the chat and embedding clients for the configured
// provider.
func buildClients(cfg *config.Config) (llm.ChatCompleter, llm.EmbeddingGenerator, error) {
	providerCfg := llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.OpenAIAPIKey,
	}
	embeddingModel := cfg.LLM.OllamaEmbeddingModel
	switch cfg.LLM.Provider {
	case "openai":
		providerCfg.Model = cfg.LLM.OpenAIModel
		embeddingModel = cfg.LLM.OpenAIEmbeddingModel
	default:
		providerCfg.Model = cfg.LLM.OllamaModel
		providerCfg.BaseURL = cfg.LLM.OllamaURL
	}

	chat, err := llm.NewChatCompleter(providerCfg)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := llm.NewEmbeddingGenerator(providerCfg, embeddingModel, cfg.LLM.EmbeddingDimensions)
	if err != nil {
		return nil, nil, err
	}
	return chat, embedder, nil
}
