package engine

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// emptyInputSolution is returned without a model call when a ticket has no
// subject and no body.
const emptyInputSolution = "No subject/body found for this ticket. Please provide details."

// noSolutionFallback is substituted when the model returns an empty solution
// field; a solution request never errors because of output shape.
const noSolutionFallback = "No solution generated."

// minActionableLen is the minimum trimmed length for a historical answer to
// count as substantive.
const minActionableLen = 40

// deflectionRE matches non-answers of the "please contact support" kind.
// Answers matching it are excluded from the synthesis context.
var deflectionRE = regexp.MustCompile(`(?i)(contact|call|email|reach\s*out|open a ticket|service desk)`)

// isActionable reports whether a historical answer is substantive enough to
// inform solution synthesis: at least minActionableLen characters after
// trimming and free of deflection language.
func isActionable(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	if len(trimmed) < minActionableLen {
		return false
	}
	return !deflectionRE.MatchString(answer)
}

// SolutionEngine drafts a candidate resolution for a ticket by retrieving
// similar resolved tickets, filtering their answers for actionability, and
// asking the model to synthesize a short step-by-step plan. Generation is
// single-shot: there is no retry, and parse trouble degrades to the raw
// model text rather than an error.
type SolutionEngine struct {
	retriever storage.SimilarityRetriever
	embedder  llm.EmbeddingGenerator
	chat      llm.ChatCompleter
}

// NewSolutionEngine constructs a solution engine from its injected
// collaborators.
func NewSolutionEngine(retriever storage.SimilarityRetriever, embedder llm.EmbeddingGenerator, chat llm.ChatCompleter) *SolutionEngine {
	return &SolutionEngine{
		retriever: retriever,
		embedder:  embedder,
		chat:      chat,
	}
}

// GenerateSolution produces a suggested resolution plan plus the historical
// tickets that informed it. An empty subject and body short-circuits with a
// static advisory message and zero model calls.
func (e *SolutionEngine) GenerateSolution(ctx context.Context, ticketID int64, subject, body string, topK int) (types.SolutionResult, error) {
	if strings.TrimSpace(subject) == "" && strings.TrimSpace(body) == "" {
		return types.SolutionResult{
			Solution: emptyInputSolution,
			Sources:  []types.SolutionSource{},
		}, nil
	}

	queryText := llm.QueryText(subject, body)
	neighbors := e.retrieveNeighbors(ctx, queryText, topK, ticketID)

	// Keep only neighbors whose historical answer is actionable; those are
	// both the prompt context and the reported sources.
	var kept []types.SimilarTicket
	sources := []types.SolutionSource{}
	for _, n := range neighbors {
		if !isActionable(n.Answer) {
			continue
		}
		kept = append(kept, n)
		sources = append(sources, types.SolutionSource{
			TicketID: n.TicketID,
			Title:    n.Title,
			Score:    n.Score,
		})
	}

	raw, err := e.chat.ChatJSON(ctx, llm.BuildSolutionMessages(queryText, llm.SolutionContextBlock(kept)))
	if err != nil {
		return types.SolutionResult{}, fmt.Errorf("solution: model call: %w", err)
	}

	solution := llm.ParseSolutionResponse(raw)
	if strings.TrimSpace(solution) == "" {
		solution = noSolutionFallback
	}

	return types.SolutionResult{Solution: solution, Sources: sources}, nil
}

func (e *SolutionEngine) retrieveNeighbors(ctx context.Context, queryText string, topK int, excludeTicketID int64) []types.SimilarTicket {
	qvec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		log.Printf("solution: embedding failed, proceeding without context: %v", err)
		return nil
	}
	neighbors, err := e.retriever.TopKSimilar(ctx, qvec, storage.ClampTopK(topK), excludeTicketID)
	if err != nil {
		log.Printf("solution: retrieval failed, proceeding without context: %v", err)
		return nil
	}
	return neighbors
}
