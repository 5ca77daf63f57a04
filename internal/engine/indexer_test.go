package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttickets/smarttickets/pkg/types"
)

func TestIndexTicket_ChunksAndStores(t *testing.T) {
	store := newFakeTicketStore()
	embedder := &fakeEmbedder{}
	ix := NewIndexer(embedder, store, store)

	body := strings.Repeat("The build agent fails to start after the update. ", 30)
	n, err := ix.IndexTicket(context.Background(), 7, body)

	require.NoError(t, err)
	assert.Greater(t, n, 1)
	assert.Len(t, store.chunks[7], n)
	assert.Equal(t, n, embedder.calls)
}

func TestIndexTicket_EmptyBodyNoChunks(t *testing.T) {
	store := newFakeTicketStore()
	ix := NewIndexer(&fakeEmbedder{}, store, store)

	n, err := ix.IndexTicket(context.Background(), 7, "   ")

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.chunks[7])
}

func TestEnsureIndexed_IndexesOnce(t *testing.T) {
	store := newFakeTicketStore(types.Ticket{
		TicketID: 5,
		Subject:  "Build agent down",
		Body:     "The nightly build agent will not start since the last OS update was applied.",
	})
	ix := NewIndexer(&fakeEmbedder{}, store, store)

	n, err := ix.EnsureIndexed(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Second call is a no-op: chunks already exist.
	n, err = ix.EnsureIndexed(context.Background(), 5)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.chunks[5], 1)
}

func TestEnsureIndexed_MissingTicketIsNoop(t *testing.T) {
	store := newFakeTicketStore()
	ix := NewIndexer(&fakeEmbedder{}, store, store)

	n, err := ix.EnsureIndexed(context.Background(), 999)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureIndexed_EmptyBodyIsNoop(t *testing.T) {
	store := newFakeTicketStore(types.Ticket{TicketID: 6, Subject: "subject only"})
	ix := NewIndexer(&fakeEmbedder{}, store, store)

	n, err := ix.EnsureIndexed(context.Background(), 6)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.chunks[6])
}
