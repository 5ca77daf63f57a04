package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// fakeChat replays scripted responses and records every request.
type fakeChat struct {
	responses []string
	errs      []error
	calls     [][]llm.Message
}

func (f *fakeChat) ChatJSON(ctx context.Context, messages []llm.Message) (string, error) {
	i := len(f.calls)
	f.calls = append(f.calls, messages)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeChat: no scripted response")
}

func (f *fakeChat) GetModel() string { return "fake-model" }

func (f *fakeChat) callCount() int { return len(f.calls) }

// lastUserContent returns the content of the last user message of call i.
func (f *fakeChat) lastUserContent(i int) string {
	msgs := f.calls[i]
	for j := len(msgs) - 1; j >= 0; j-- {
		if msgs[j].Role == llm.RoleUser {
			return msgs[j].Content
		}
	}
	return ""
}

// fakeEmbedder returns a fixed vector, or fails when err is set.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vec != nil {
		return f.vec, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) GetModel() string { return "fake-embedder" }

// fakeRetriever returns fixed neighbors, or fails when err is set.
type fakeRetriever struct {
	neighbors []types.SimilarTicket
	err       error
	calls     int
}

func (f *fakeRetriever) TopKSimilar(ctx context.Context, query []float32, topK int, excludeTicketID int64) ([]types.SimilarTicket, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.neighbors, nil
}

// fakeTeamStore serves a fixed team list.
type fakeTeamStore struct {
	teams []types.Team
	err   error
}

func (f *fakeTeamStore) ListTeams(ctx context.Context) ([]types.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.teams, nil
}

// fakeTicketStore serves ticket text and records chunk writes; it implements
// just enough of the storage surface for indexer and evaluation tests.
type fakeTicketStore struct {
	tickets map[int64]types.Ticket
	chunks  map[int64][]string
}

func newFakeTicketStore(tickets ...types.Ticket) *fakeTicketStore {
	s := &fakeTicketStore{
		tickets: make(map[int64]types.Ticket),
		chunks:  make(map[int64][]string),
	}
	for _, t := range tickets {
		s.tickets[t.TicketID] = t
	}
	return s
}

func (f *fakeTicketStore) CreateTicket(ctx context.Context, ticket *types.Ticket) error {
	ticket.TicketID = int64(len(f.tickets) + 1)
	f.tickets[ticket.TicketID] = *ticket
	return nil
}

func (f *fakeTicketStore) GetTicket(ctx context.Context, ticketID int64) (*types.Ticket, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTicketStore) GetTicketText(ctx context.Context, ticketID int64) (string, string, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return "", "", storage.ErrNotFound
	}
	return t.Subject, t.Body, nil
}

func (f *fakeTicketStore) UpdateSuggestedTeam(ctx context.Context, ticketID int64, teamID string) (bool, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return false, nil
	}
	t.SuggestedAssignedTeamID = teamID
	f.tickets[ticketID] = t
	return true, nil
}

func (f *fakeTicketStore) UpdateSuggestedAnswer(ctx context.Context, ticketID int64, solution string) (bool, error) {
	t, ok := f.tickets[ticketID]
	if !ok {
		return false, nil
	}
	t.SuggestedAnswer = solution
	f.tickets[ticketID] = t
	return true, nil
}

func (f *fakeTicketStore) ListAssignedTickets(ctx context.Context, limit int) ([]types.Ticket, error) {
	var out []types.Ticket
	for id := int64(1); int64(len(out)) < int64(limit) && id <= int64(len(f.tickets))+100; id++ {
		t, ok := f.tickets[id]
		if !ok || strings.TrimSpace(t.AssignedTeamID) == "" {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTicketStore) Close() error { return nil }

func (f *fakeTicketStore) InsertChunk(ctx context.Context, ticketID int64, chunkText string, embedding []float32) error {
	f.chunks[ticketID] = append(f.chunks[ticketID], chunkText)
	return nil
}

func (f *fakeTicketStore) CountChunks(ctx context.Context, ticketID int64) (int, error) {
	return len(f.chunks[ticketID]), nil
}
