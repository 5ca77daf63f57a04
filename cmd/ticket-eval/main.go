// Command ticket-eval replays human-resolved tickets through the decision
// engines and prints agreement statistics. It never writes suggestions back.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/smarttickets/smarttickets/internal/config"
	"github.com/smarttickets/smarttickets/internal/engine"
	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/internal/storage/postgres"
	"github.com/smarttickets/smarttickets/internal/storage/sqlite"
)

func main() {
	mode := flag.String("mode", "assignment", "Evaluation mode: assignment or solution")
	limit := flag.Int("limit", 0, "Max tickets to evaluate (0 = config default)")
	jsonOut := flag.Bool("json", false, "Print the full report as JSON")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *limit > 0 {
		cfg.Eval.Limit = *limit
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	chat, embedder, err := buildClients(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize model clients: %v", err)
	}

	evaluator := engine.NewEvaluator(
		store,
		engine.NewAssignmentEngine(store, store, embedder, chat),
		engine.NewSolutionEngine(store, embedder, chat),
		engine.NewJudge(chat),
		engine.NewIndexer(embedder, store, store),
		engine.EvaluatorConfig{
			Limit:             cfg.Eval.Limit,
			TopK:              cfg.Retrieval.TopK,
			RequestsPerSecond: cfg.Eval.RequestsPerSecond,
		},
	)

	ctx := context.Background()
	switch *mode {
	case "assignment":
		report, err := evaluator.RunAssignmentEvaluation(ctx)
		if err != nil {
			log.Fatalf("Assignment evaluation failed: %v", err)
		}
		if *jsonOut {
			printJSON(report)
			return
		}
		log.Printf("Run %s: %d tickets, %d evaluated, %d skipped, %d errors",
			report.RunID, report.Total, report.Evaluated, report.Skipped, report.Errors)
		log.Printf("Correct: %d, Unassigned: %d, Accuracy: %.1f%%",
			report.Correct, report.Unassigned, report.Accuracy*100)
	case "solution":
		report, err := evaluator.RunSolutionEvaluation(ctx)
		if err != nil {
			log.Fatalf("Solution evaluation failed: %v", err)
		}
		if *jsonOut {
			printJSON(report)
			return
		}
		log.Printf("Run %s: %d tickets, %d evaluated, %d skipped, %d errors",
			report.RunID, report.Total, report.Evaluated, report.Skipped, report.Errors)
		log.Printf("Good: %d, Partial: %d, Mismatch: %d, Mean similarity: %.2f",
			report.GoodMatches, report.PartialMatches, report.Mismatches, report.MeanSimilarity)
	default:
		log.Fatalf("Unknown mode %q (want assignment or solution)", *mode)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}

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
