package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// Reason strings for the unassigned sentinel and for decisions where the
// model omitted its reasoning. These are user-visible outcomes, so they are
// stable strings rather than formatted messages.
const (
	reasonNoTeams     = "No teams found in database."
	reasonDoubleFail  = "Model failed twice to return a valid team from database."
	reasonByID        = "Selected by ID."
	reasonByName      = "Selected by name."
	reasonRetryByID   = "Valid team found after retry (by ID)."
	reasonRetryByName = "Valid team found after retry (by name)."
)

// AssignmentEngine routes a ticket to one of the teams present in storage.
//
// Each request is a self-contained pipeline: load the closed candidate set,
// retrieve similar resolved tickets, ask the model to pick a team from the
// candidate list, validate the answer against that same list, and retry
// exactly once with a sharper prompt when the answer is invalid. The model
// is never called more than twice per request.
type AssignmentEngine struct {
	teams     storage.TeamStore
	retriever storage.SimilarityRetriever
	embedder  llm.EmbeddingGenerator
	chat      llm.ChatCompleter
}

// NewAssignmentEngine constructs an assignment engine from its injected
// collaborators. No package-level client state is used; every dependency is
// explicit so tests can substitute fakes.
func NewAssignmentEngine(teams storage.TeamStore, retriever storage.SimilarityRetriever, embedder llm.EmbeddingGenerator, chat llm.ChatCompleter) *AssignmentEngine {
	return &AssignmentEngine{
		teams:     teams,
		retriever: retriever,
		embedder:  embedder,
		chat:      chat,
	}
}

// AssignTeam decides which team should handle the ticket.
//
// The returned decision is either a team from the candidate set loaded at
// the start of this call, or the explicit "Unassigned" sentinel (empty team
// id). The sentinel is a legitimate terminal outcome, not an error; an error
// is returned only for hard failures such as storage loss or an unreachable
// model endpoint.
func (e *AssignmentEngine) AssignTeam(ctx context.Context, ticketID int64, subject, body string, topK int) (types.AssignmentDecision, error) {
	candidates, err := e.teams.ListTeams(ctx)
	if err != nil {
		return types.AssignmentDecision{}, fmt.Errorf("assignment: load teams: %w", err)
	}
	if len(candidates) == 0 {
		// Terminal: nothing to choose from, so no model call is made.
		return types.UnassignedDecision(reasonNoTeams), nil
	}

	queryText := llm.QueryText(subject, body)
	neighbors := e.retrieveNeighbors(ctx, queryText, topK, ticketID)

	raw, err := e.chat.ChatJSON(ctx, llm.BuildAssignmentMessages(queryText, neighbors, candidates))
	if err != nil {
		return types.AssignmentDecision{}, fmt.Errorf("assignment: model call: %w", err)
	}

	sel := llm.ParseTeamSelection(raw)
	if team, kind, ok := MatchCandidate(sel.Record, candidates); ok {
		return acceptDecision(team, sel.Record.Reasoning, kind, false), nil
	}

	// The first answer referenced a team outside the closed set (or was
	// unparseable). Exactly one retry with a sharper prompt restating the
	// full candidate list.
	log.Printf("assignment: ticket %d: model selected an invalid team, retrying once", ticketID)

	retryRaw, err := e.chat.ChatJSON(ctx, llm.BuildAssignmentRetryMessages(queryText, candidates))
	if err != nil {
		return types.AssignmentDecision{}, fmt.Errorf("assignment: retry model call: %w", err)
	}

	retrySel := llm.ParseTeamSelection(retryRaw)
	if team, kind, ok := MatchCandidate(retrySel.Record, candidates); ok {
		return acceptDecision(team, retrySel.Record.Reasoning, kind, true), nil
	}

	log.Printf("assignment: ticket %d: retry failed, model output: %q", ticketID, retryRaw)
	return types.UnassignedDecision(reasonDoubleFail), nil
}

// retrieveNeighbors embeds the query text and fetches the top-K similar
// tickets, excluding the ticket being decided. Failures here degrade the
// prompt context but never abort the request.
func (e *AssignmentEngine) retrieveNeighbors(ctx context.Context, queryText string, topK int, excludeTicketID int64) []types.SimilarTicket {
	qvec, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		log.Printf("assignment: embedding failed, proceeding without examples: %v", err)
		return nil
	}
	neighbors, err := e.retriever.TopKSimilar(ctx, qvec, storage.ClampTopK(topK), excludeTicketID)
	if err != nil {
		log.Printf("assignment: retrieval failed, proceeding without examples: %v", err)
		return nil
	}
	return neighbors
}

// acceptDecision builds an accepted decision carrying the candidate's
// canonical id and name. When the model omitted its reasoning, a stable
// fallback describing how the match was made is substituted.
func acceptDecision(team types.Team, reasoning string, kind MatchKind, retried bool) types.AssignmentDecision {
	if reasoning == "" {
		switch {
		case retried && kind == MatchByID:
			reasoning = reasonRetryByID
		case retried:
			reasoning = reasonRetryByName
		case kind == MatchByID:
			reasoning = reasonByID
		default:
			reasoning = reasonByName
		}
	}
	return types.AssignmentDecision{
		TeamID:    team.TeamID,
		TeamName:  team.TeamName,
		Reasoning: reasoning,
	}
}
