package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// fakeStore implements storage.Store in memory for handler tests.
type fakeStore struct {
	tickets   map[int64]types.Ticket
	teams     []types.Team
	neighbors []types.SimilarTicket
	chunks    map[int64]int
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tickets: make(map[int64]types.Ticket),
		chunks:  make(map[int64]int),
		nextID:  1,
	}
}

func (f *fakeStore) addTicket(t types.Ticket) int64 {
	t.TicketID = f.nextID
	f.tickets[t.TicketID] = t
	f.nextID++
	return t.TicketID
}

func (f *fakeStore) CreateTicket(ctx context.Context, ticket *types.Ticket) error {
	if strings.TrimSpace(ticket.Subject) == "" && strings.TrimSpace(ticket.Body) == "" {
		return storage.ErrInvalidInput
	}
	ticket.TicketID = f.addTicket(*ticket)
	return nil
}

func (f *fakeStore) GetTicket(ctx context.Context, ticketID int64) (*types.Ticket, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func (f *fakeStore) GetTicketText(ctx context.Context, ticketID int64) (string, string, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return "", "", storage.ErrNotFound
	}
	return t.Subject, t.Body, nil
}

func (f *fakeStore) UpdateSuggestedTeam(ctx context.Context, ticketID int64, teamID string) (bool, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return false, nil
	}
	t.SuggestedAssignedTeamID = teamID
	f.tickets[ticketID] = t
	return true, nil
}

func (f *fakeStore) UpdateSuggestedAnswer(ctx context.Context, ticketID int64, solution string) (bool, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return false, nil
	}
	t.SuggestedAnswer = solution
	f.tickets[ticketID] = t
	return true, nil
}

func (f *fakeStore) ListAssignedTickets(ctx context.Context, limit int) ([]types.Ticket, error) {
	return nil, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) ListTeams(ctx context.Context) ([]types.Team, error) {
	return f.teams, nil
}

func (f *fakeStore) InsertChunk(ctx context.Context, ticketID int64, chunkText string, embedding []float32) error {
	f.chunks[ticketID]++
	return nil
}

func (f *fakeStore) CountChunks(ctx context.Context, ticketID int64) (int, error) {
	return f.chunks[ticketID], nil
}

func (f *fakeStore) TopKSimilar(ctx context.Context, query []float32, topK int, excludeTicketID int64) ([]types.SimilarTicket, error) {
	return f.neighbors, nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embedder" }

type fakeAssigner struct {
	decision types.AssignmentDecision
	err      error
}

func (f *fakeAssigner) AssignTeam(ctx context.Context, ticketID int64, subject, body string, topK int) (types.AssignmentDecision, error) {
	return f.decision, f.err
}

type fakeSolver struct {
	result types.SolutionResult
	err    error
}

func (f *fakeSolver) GenerateSolution(ctx context.Context, ticketID int64, subject, body string, topK int) (types.SolutionResult, error) {
	return f.result, f.err
}

type fixture struct {
	store    *fakeStore
	assigner *fakeAssigner
	solver   *fakeSolver
	srv      *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(),
		assigner: &fakeAssigner{},
		solver:   &fakeSolver{},
	}
	h := NewHandlers(f.store, &fakeEmbedder{}, f.assigner, f.solver, nil, nil)
	f.srv = httptest.NewServer(NewMux(h))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(f.srv.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestSimilar(t *testing.T) {
	f := newFixture(t)
	id := f.store.addTicket(types.Ticket{Subject: "VPN down", Body: "drops hourly"})
	f.store.neighbors = []types.SimilarTicket{{TicketID: 9, Title: "VPN drops", Score: 0.2}}

	resp := f.post(t, "/similar", map[string]any{"ticket_id": id, "top_k": 3})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[similarResponse](t, resp)
	require.Len(t, body.Results, 1)
	assert.Equal(t, int64(9), body.Results[0].TicketID)
}

func TestSimilar_UnknownTicket404(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/similar", map[string]any{"ticket_id": 999})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSimilar_EmptyTicketTextShortCircuits(t *testing.T) {
	f := newFixture(t)
	id := f.store.addTicket(types.Ticket{Subject: "x", Body: ""})
	f.store.tickets[id] = types.Ticket{TicketID: id} // blank out text

	resp := f.post(t, "/similar", map[string]any{"ticket_id": id})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[similarResponse](t, resp)
	assert.Empty(t, body.Results)
}

func TestAssign_PersistsValidDecision(t *testing.T) {
	f := newFixture(t)
	id := f.store.addTicket(types.Ticket{Subject: "s", Body: "b"})
	f.assigner.decision = types.AssignmentDecision{TeamID: "T3", TeamName: "Network Ops", Reasoning: "vpn"}

	resp := f.post(t, "/assign", map[string]any{"ticket_id": id})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[assignResponse](t, resp)
	assert.Equal(t, "T3", body.AssignedTeamID)
	assert.True(t, body.Persisted)
	assert.Equal(t, "suggested_assigned_team_id updated.", body.Message)
	assert.Equal(t, "T3", f.store.tickets[id].SuggestedAssignedTeamID)
}

func TestAssign_UnassignedNotPersisted(t *testing.T) {
	f := newFixture(t)
	id := f.store.addTicket(types.Ticket{Subject: "s", Body: "b"})
	f.assigner.decision = types.UnassignedDecision("Model failed twice to return a valid team from database.")

	resp := f.post(t, "/assign", map[string]any{"ticket_id": id})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[assignResponse](t, resp)
	assert.Empty(t, body.AssignedTeamID)
	assert.Equal(t, "Unassigned", body.AssignedTeamName)
	assert.False(t, body.Persisted)
	assert.Equal(t, "No valid team_id returned; not persisted.", body.Message)
	assert.Empty(t, f.store.tickets[id].SuggestedAssignedTeamID)
}

func TestAssign_EngineError502(t *testing.T) {
	f := newFixture(t)
	id := f.store.addTicket(types.Ticket{Subject: "s", Body: "b"})
	f.assigner.err = errors.New("model unreachable")

	resp := f.post(t, "/assign", map[string]any{"ticket_id": id})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSolution_PersistsAnswer(t *testing.T) {
	f := newFixture(t)
	id := f.store.addTicket(types.Ticket{Subject: "s", Body: "b"})
	f.solver.result = types.SolutionResult{
		Solution: "1. Restart.",
		Sources:  []types.SolutionSource{{TicketID: 4, Title: "t", Score: 0.3}},
	}

	resp := f.post(t, "/solution", map[string]any{"ticket_id": id})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[solutionResponse](t, resp)
	assert.Equal(t, "1. Restart.", body.Solution)
	require.Len(t, body.Sources, 1)
	assert.True(t, body.Persisted)
	assert.Equal(t, "suggested_answer updated.", body.Message)
	assert.Equal(t, "1. Restart.", f.store.tickets[id].SuggestedAnswer)
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/tickets", map[string]any{
		"subject": "New laptop request",
		"body":    "Need a replacement for a cracked screen.",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[createTicketResponse](t, resp)
	assert.NotZero(t, body.TicketID)
	// No indexer wired in this fixture, so no chunks are reported.
	assert.Zero(t, body.IndexedChunks)
	assert.Equal(t, "Ticket created (no body or no chunks).", body.Message)
}

func TestCreateTicket_RejectsEmpty(t *testing.T) {
	f := newFixture(t)

	resp := f.post(t, "/tickets", map[string]any{"subject": "", "body": " "})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing ticket_id", "/assign", `{}`},
		{"malformed json", "/solution", `{not json`},
		{"negative ticket_id", "/similar", `{"ticket_id": -4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(f.srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/assign")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
