package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/storage"
)

// Indexer turns ticket bodies into retrievable chunks: split, embed, store.
// Indexing is best-effort from the decision engines' point of view; callers
// on the request path log and swallow its errors.
type Indexer struct {
	chunker  *llm.Chunker
	embedder llm.EmbeddingGenerator
	tickets  storage.TicketStore
	chunks   storage.ChunkStore
}

// NewIndexer constructs an indexer with the default chunk sizes.
func NewIndexer(embedder llm.EmbeddingGenerator, tickets storage.TicketStore, chunks storage.ChunkStore) *Indexer {
	return &Indexer{
		chunker:  llm.NewChunker(),
		embedder: embedder,
		tickets:  tickets,
		chunks:   chunks,
	}
}

// IndexTicket chunks and embeds the given body text and stores one chunk
// row per fragment. Returns the number of chunks written. An empty body
// yields zero chunks and no error.
func (ix *Indexer) IndexTicket(ctx context.Context, ticketID int64, body string) (int, error) {
	fragments := ix.chunker.Chunk(body)
	if len(fragments) == 0 {
		return 0, nil
	}

	for _, fragment := range fragments {
		vec, err := ix.embedder.Embed(ctx, fragment)
		if err != nil {
			return 0, fmt.Errorf("indexer: embed chunk for ticket %d: %w", ticketID, err)
		}
		if err := ix.chunks.InsertChunk(ctx, ticketID, fragment, vec); err != nil {
			return 0, fmt.Errorf("indexer: store chunk for ticket %d: %w", ticketID, err)
		}
	}
	return len(fragments), nil
}

// EnsureIndexed indexes a ticket's body if no chunks exist for it yet.
// Returns the number of chunks written: zero when the ticket is already
// indexed, has no body, or doesn't exist.
func (ix *Indexer) EnsureIndexed(ctx context.Context, ticketID int64) (int, error) {
	_, body, err := ix.tickets.GetTicketText(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("indexer: load ticket %d: %w", ticketID, err)
	}
	if body == "" {
		return 0, nil
	}

	existing, err := ix.chunks.CountChunks(ctx, ticketID)
	if err != nil {
		return 0, fmt.Errorf("indexer: count chunks for ticket %d: %w", ticketID, err)
	}
	if existing > 0 {
		return 0, nil
	}

	return ix.IndexTicket(ctx, ticketID, body)
}
