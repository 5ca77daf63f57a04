// Package storage provides composable storage interfaces for the Smart
// Tickets decision core.
//
// The storage layer is designed with small, focused interfaces that can be
// implemented independently and composed as needed. Both the PostgreSQL
// backend (pgvector-accelerated) and the SQLite backend (in-memory ranking)
// implement all of them.
package storage

import (
	"context"

	"github.com/smarttickets/smarttickets/pkg/types"
)

// TicketStore provides the ticket reads and advisory write-backs the
// decision core depends on.
type TicketStore interface {
	// CreateTicket inserts a ticket and returns it with TicketID populated.
	CreateTicket(ctx context.Context, ticket *types.Ticket) error

	// GetTicket retrieves a full ticket by id.
	// Returns ErrNotFound if the ticket doesn't exist.
	GetTicket(ctx context.Context, ticketID int64) (*types.Ticket, error)

	// GetTicketText retrieves just the subject and body for a ticket.
	// Returns ErrNotFound if the ticket doesn't exist.
	GetTicketText(ctx context.Context, ticketID int64) (subject, body string, err error)

	// UpdateSuggestedTeam writes the advisory team suggestion onto a ticket.
	// The team must exist in the teams table; returns false (no error) when
	// either the ticket or the team is missing.
	UpdateSuggestedTeam(ctx context.Context, ticketID int64, teamID string) (bool, error)

	// UpdateSuggestedAnswer writes the advisory generated solution onto a
	// ticket. Returns false (no error) when the ticket is missing.
	UpdateSuggestedAnswer(ctx context.Context, ticketID int64, solution string) (bool, error)

	// ListAssignedTickets returns up to limit tickets that already carry a
	// human-confirmed assigned_team_id. Used by the offline evaluation runs.
	ListAssignedTickets(ctx context.Context, limit int) ([]types.Ticket, error)

	// Close releases any resources held by the store.
	Close() error
}

// TeamStore loads the closed set of valid destination teams.
type TeamStore interface {
	// ListTeams returns all teams ordered by name. An empty slice means no
	// assignment is possible; callers must not retry.
	ListTeams(ctx context.Context) ([]types.Team, error)
}

// ChunkStore persists body-text chunks with their embedding vectors.
type ChunkStore interface {
	// InsertChunk stores one chunk of a ticket's body with its embedding.
	// The vector must match the store's configured dimension.
	InsertChunk(ctx context.Context, ticketID int64, chunkText string, embedding []float32) error

	// CountChunks returns how many chunks exist for a ticket.
	CountChunks(ctx context.Context, ticketID int64) (int, error)
}

// SimilarityRetriever performs nearest-neighbor search over indexed chunks.
type SimilarityRetriever interface {
	// TopKSimilar returns up to topK chunk-level hits ordered ascending by
	// vector distance. Chunks belonging to excludeTicketID are skipped
	// (pass 0 to disable exclusion). An empty index yields an empty slice,
	// not an error.
	TopKSimilar(ctx context.Context, query []float32, topK int, excludeTicketID int64) ([]types.SimilarTicket, error)
}

// Store is the full storage surface the decision core wires together.
type Store interface {
	TicketStore
	TeamStore
	ChunkStore
	SimilarityRetriever
}
