package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedTeams(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	for _, team := range []types.Team{
		{TeamID: "T1", TeamName: "Service Desk"},
		{TeamID: "T2", TeamName: "Hardware Support"},
		{TeamID: "T3", TeamName: "Network Ops"},
	} {
		require.NoError(t, store.UpsertTeam(ctx, team))
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	store := newTestStore(t)
	seedTeams(t, store)
	ctx := context.Background()

	requester := int64(77)
	ticket := &types.Ticket{
		RequesterID:    &requester,
		Subject:        "VPN down",
		Body:           "Tunnel drops every few minutes.",
		Answer:         "Reinstall the client.",
		AssignedTeamID: "T3",
		Priority:       "high",
		Status:         "closed",
		Tags:           []string{"vpn", "network"},
	}
	require.NoError(t, store.CreateTicket(ctx, ticket))
	require.NotZero(t, ticket.TicketID)

	got, err := store.GetTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "VPN down", got.Subject)
	assert.Equal(t, "Tunnel drops every few minutes.", got.Body)
	assert.Equal(t, "Reinstall the client.", got.Answer)
	assert.Equal(t, "T3", got.AssignedTeamID)
	assert.Equal(t, "high", got.Priority)
	assert.Equal(t, []string{"vpn", "network"}, got.Tags)
	require.NotNil(t, got.RequesterID)
	assert.Equal(t, int64(77), *got.RequesterID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateTicket_RequiresText(t *testing.T) {
	store := newTestStore(t)

	err := store.CreateTicket(context.Background(), &types.Ticket{Subject: " ", Body: ""})

	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestGetTicket_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTicket(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, _, err = store.GetTicketText(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetTicketText(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ticket := &types.Ticket{Subject: "Printer jam", Body: "Tray 2 keeps jamming."}
	require.NoError(t, store.CreateTicket(ctx, ticket))

	subject, body, err := store.GetTicketText(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "Printer jam", subject)
	assert.Equal(t, "Tray 2 keeps jamming.", body)
}

func TestUpdateSuggestedTeam(t *testing.T) {
	store := newTestStore(t)
	seedTeams(t, store)
	ctx := context.Background()

	ticket := &types.Ticket{Subject: "s", Body: "b"}
	require.NoError(t, store.CreateTicket(ctx, ticket))

	ok, err := store.UpdateSuggestedTeam(ctx, ticket.TicketID, "T2")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "T2", got.SuggestedAssignedTeamID)

	// Unknown team or unknown ticket both persist nothing, without error.
	ok, err = store.UpdateSuggestedTeam(ctx, ticket.TicketID, "T99")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UpdateSuggestedTeam(ctx, 9999, "T2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateSuggestedAnswer(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ticket := &types.Ticket{Subject: "s", Body: "b"}
	require.NoError(t, store.CreateTicket(ctx, ticket))

	ok, err := store.UpdateSuggestedAnswer(ctx, ticket.TicketID, "1. Restart.")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := store.GetTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, "1. Restart.", got.SuggestedAnswer)

	ok, err = store.UpdateSuggestedAnswer(ctx, 9999, "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListTeams_OrderedByName(t *testing.T) {
	store := newTestStore(t)
	seedTeams(t, store)

	teams, err := store.ListTeams(context.Background())
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, "Hardware Support", teams[0].TeamName)
	assert.Equal(t, "Network Ops", teams[1].TeamName)
	assert.Equal(t, "Service Desk", teams[2].TeamName)
}

func TestListTeams_Empty(t *testing.T) {
	store := newTestStore(t)

	teams, err := store.ListTeams(context.Background())
	require.NoError(t, err)
	assert.Empty(t, teams)
}

func TestListAssignedTickets(t *testing.T) {
	store := newTestStore(t)
	seedTeams(t, store)
	ctx := context.Background()

	assigned := &types.Ticket{Subject: "a", Body: "b", AssignedTeamID: "T1"}
	unassigned := &types.Ticket{Subject: "c", Body: "d"}
	require.NoError(t, store.CreateTicket(ctx, assigned))
	require.NoError(t, store.CreateTicket(ctx, unassigned))

	tickets, err := store.ListAssignedTickets(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, assigned.TicketID, tickets[0].TicketID)
	assert.Equal(t, "T1", tickets[0].AssignedTeamID)
}

func TestChunksAndSimilarity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t1 := &types.Ticket{Subject: "VPN", Body: "vpn body", Answer: "Reinstall the client."}
	t2 := &types.Ticket{Subject: "Printer", Body: "printer body"}
	t3 := &types.Ticket{Subject: "Query", Body: "query body"}
	for _, tk := range []*types.Ticket{t1, t2, t3} {
		require.NoError(t, store.CreateTicket(ctx, tk))
	}

	require.NoError(t, store.InsertChunk(ctx, t1.TicketID, "chunk near", []float32{1, 0, 0}))
	require.NoError(t, store.InsertChunk(ctx, t2.TicketID, "chunk far", []float32{0, 5, 0}))
	require.NoError(t, store.InsertChunk(ctx, t3.TicketID, "query chunk", []float32{1, 0.1, 0}))

	n, err := store.CountChunks(ctx, t1.TicketID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Nearest first, excluding the querying ticket's own chunks.
	hits, err := store.TopKSimilar(ctx, []float32{1, 0, 0}, 5, t3.TicketID)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, t1.TicketID, hits[0].TicketID)
	assert.Equal(t, "VPN", hits[0].Title)
	assert.Equal(t, "Reinstall the client.", hits[0].Answer)
	assert.Equal(t, t2.TicketID, hits[1].TicketID)
	assert.Less(t, hits[0].Score, hits[1].Score)

	// topK caps the result set.
	hits, err = store.TopKSimilar(ctx, []float32{1, 0, 0}, 1, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestTopKSimilar_EmptyIndex(t *testing.T) {
	store := newTestStore(t)

	hits, err := store.TopKSimilar(context.Background(), []float32{1, 0, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTopKSimilar_DimensionMismatchSkipped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ticket := &types.Ticket{Subject: "s", Body: "b"}
	require.NoError(t, store.CreateTicket(ctx, ticket))
	require.NoError(t, store.InsertChunk(ctx, ticket.TicketID, "old model chunk", []float32{1, 2}))

	hits, err := store.TopKSimilar(ctx, []float32{1, 0, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}

	got, err := deserializeEmbedding(serializeEmbedding(vec), len(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, got)

	_, err = deserializeEmbedding([]byte{1, 2, 3}, 1)
	assert.Error(t, err)
}

func TestUpsertTeam_RenamesExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertTeam(ctx, types.Team{TeamID: "T1", TeamName: "Desk"}))
	require.NoError(t, store.UpsertTeam(ctx, types.Team{TeamID: "T1", TeamName: "Service Desk"}))

	teams, err := store.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "Service Desk", teams[0].TeamName)

	assert.ErrorIs(t, store.UpsertTeam(ctx, types.Team{TeamID: " ", TeamName: "x"}), storage.ErrInvalidInput)
}
