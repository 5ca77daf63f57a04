package sqlite

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// InsertChunk stores one chunk of a ticket's body with its embedding vector.
// The embedding is serialized as a little-endian float32 BLOB.
func (s *Store) InsertChunk(ctx context.Context, ticketID int64, chunkText string, embedding []float32) error {
	if len(embedding) == 0 {
		return fmt.Errorf("%w: embedding is required", storage.ErrInvalidInput)
	}

	const query = `
		INSERT INTO ticket_embeddings (ticket_id, chunk_text, embedding, dimension)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, ticketID, chunkText, serializeEmbedding(embedding), len(embedding)); err != nil {
		return fmt.Errorf("sqlite: failed to insert chunk for ticket %d: %w", ticketID, err)
	}
	return nil
}

// CountChunks returns how many chunks exist for a ticket.
func (s *Store) CountChunks(ctx context.Context, ticketID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM ticket_embeddings WHERE ticket_id = ?`
	var n int
	if err := s.db.QueryRowContext(ctx, query, ticketID).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: failed to count chunks for ticket %d: %w", ticketID, err)
	}
	return n, nil
}

// TopKSimilar performs brute-force nearest-neighbor search: every chunk
// embedding is loaded, deserialized, and ranked by L2 distance in Go.
// O(n) per query; acceptable for the dataset sizes SQLite serves. For larger
// corpora use the PostgreSQL backend with its ivfflat index.
func (s *Store) TopKSimilar(ctx context.Context, query []float32, topK int, excludeTicketID int64) ([]types.SimilarTicket, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: query vector is required", storage.ErrInvalidInput)
	}
	topK = storage.ClampTopK(topK)

	const querySQL = `
		SELECT
			e.chunk_id,
			e.ticket_id,
			e.embedding,
			e.dimension,
			t.subject,
			t.body,
			COALESCE(t.answer, ''),
			COALESCE(t.assigned_team_id, ''),
			COALESCE(tm.team_name, '')
		FROM ticket_embeddings e
		JOIN tickets t ON t.ticket_id = e.ticket_id
		LEFT JOIN teams tm ON tm.team_id = t.assigned_team_id
		WHERE (? = 0 OR e.ticket_id <> ?)
	`
	rows, err := s.db.QueryContext(ctx, querySQL, excludeTicketID, excludeTicketID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: similarity search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []types.SimilarTicket{}
	for rows.Next() {
		var hit types.SimilarTicket
		var blob []byte
		var dimension int
		if err := rows.Scan(
			&hit.ChunkID, &hit.TicketID, &blob, &dimension,
			&hit.Title, &hit.Body, &hit.Answer,
			&hit.AssignedTeamID, &hit.AssignedTeamName,
		); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan similarity hit: %w", err)
		}

		embedding, err := deserializeEmbedding(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("sqlite: chunk %d: %w", hit.ChunkID, err)
		}
		if len(embedding) != len(query) {
			// Dimension mismatch means the chunk was indexed with a
			// different embedding model; skip it rather than fail the query.
			continue
		}

		hit.Score = l2Distance(query, embedding)
		results = append(results, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: similarity rows: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score < results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// l2Distance computes Euclidean distance between two equal-length vectors.
func l2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// serializeEmbedding converts a float32 slice to little-endian binary.
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts little-endian binary back to a float32 slice.
func deserializeEmbedding(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 || len(buf) != dimension*4 {
		return nil, fmt.Errorf("embedding blob size %d does not match dimension %d", len(buf), dimension)
	}
	embedding := make([]float32, dimension)
	for i := range embedding {
		embedding[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return embedding, nil
}
