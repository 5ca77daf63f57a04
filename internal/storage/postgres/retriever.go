package postgres

import (
	"context"
	"fmt"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// InsertChunk stores one chunk of a ticket's body with its embedding vector.
func (s *Store) InsertChunk(ctx context.Context, ticketID int64, chunkText string, embedding []float32) error {
	if !s.pgvectorAvailable {
		return fmt.Errorf("postgres: pgvector extension not available")
	}
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding is required", storage.ErrInvalidInput)
	}

	const query = `
		INSERT INTO ticket_embeddings (ticket_id, chunk_text, embedding)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.ExecContext(ctx, query, ticketID, chunkText, pgvector.NewVector(embedding)); err != nil {
		return fmt.Errorf("postgres: failed to insert chunk for ticket %d: %w", ticketID, err)
	}
	return nil
}

// CountChunks returns how many chunks exist for a ticket.
func (s *Store) CountChunks(ctx context.Context, ticketID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM ticket_embeddings WHERE ticket_id = $1`
	var n int
	if err := s.db.QueryRowContext(ctx, query, ticketID).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: failed to count chunks for ticket %d: %w", ticketID, err)
	}
	return n, nil
}

// TopKSimilar performs nearest-neighbor search over ticket chunks using
// pgvector L2 distance, accelerated by the ivfflat index when present.
// Results are chunk-level hits ordered ascending by distance; chunks of
// excludeTicketID are skipped when it is non-zero.
func (s *Store) TopKSimilar(ctx context.Context, query []float32, topK int, excludeTicketID int64) ([]types.SimilarTicket, error) {
	if !s.pgvectorAvailable {
		return []types.SimilarTicket{}, nil
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query vector is required", storage.ErrInvalidInput)
	}
	topK = storage.ClampTopK(topK)

	const querySQL = `
		SELECT
			e.chunk_id,
			e.ticket_id,
			t.subject,
			t.body,
			COALESCE(t.answer, ''),
			COALESCE(t.assigned_team_id, ''),
			COALESCE(tm.team_name, ''),
			e.embedding <-> $1 AS distance
		FROM ticket_embeddings e
		JOIN tickets t ON t.ticket_id = e.ticket_id
		LEFT JOIN teams tm ON tm.team_id = t.assigned_team_id
		WHERE ($2 = 0 OR e.ticket_id <> $2)
		ORDER BY e.embedding <-> $1 ASC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, querySQL, pgvector.NewVector(query), excludeTicketID, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres: similarity search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []types.SimilarTicket{}
	for rows.Next() {
		var hit types.SimilarTicket
		if err := rows.Scan(
			&hit.ChunkID, &hit.TicketID,
			&hit.Title, &hit.Body, &hit.Answer,
			&hit.AssignedTeamID, &hit.AssignedTeamName,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan similarity hit: %w", err)
		}
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: similarity rows: %w", err)
	}
	return results, nil
}
