package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/smarttickets/smarttickets/internal/engine"
	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/internal/notify"
	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// Assigner decides a team for a ticket. Satisfied by *engine.AssignmentEngine.
type Assigner interface {
	AssignTeam(ctx context.Context, ticketID int64, subject, body string, topK int) (types.AssignmentDecision, error)
}

// Solver drafts a resolution for a ticket. Satisfied by *engine.SolutionEngine.
type Solver interface {
	GenerateSolution(ctx context.Context, ticketID int64, subject, body string, topK int) (types.SolutionResult, error)
}

// Handlers holds the HTTP handlers for the decision API.
type Handlers struct {
	store    storage.Store
	embedder llm.EmbeddingGenerator
	assigner Assigner
	solver   Solver
	indexer  *engine.Indexer
	mailer   *notify.Mailer
}

// NewHandlers wires the API handlers. The mailer may be nil (notifications
// disabled).
func NewHandlers(store storage.Store, embedder llm.EmbeddingGenerator, assigner Assigner, solver Solver, indexer *engine.Indexer, mailer *notify.Mailer) *Handlers {
	return &Handlers{
		store:    store,
		embedder: embedder,
		assigner: assigner,
		solver:   solver,
		indexer:  indexer,
		mailer:   mailer,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// Health reports service liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ticketRequest is the shared request body for the by-id decision endpoints.
type ticketRequest struct {
	TicketID int64 `json:"ticket_id"`
	TopK     int   `json:"top_k"`
}

func (h *Handlers) decodeTicketRequest(w http.ResponseWriter, r *http.Request) (ticketRequest, bool) {
	var req ticketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.TicketID <= 0 {
		writeError(w, http.StatusBadRequest, "ticket_id is required")
		return req, false
	}
	if req.TopK == 0 {
		req.TopK = storage.DefaultTopK
	}
	req.TopK = storage.ClampTopK(req.TopK)
	return req, true
}

// loadTicketText fetches subject/body, translating a missing ticket into 404.
func (h *Handlers) loadTicketText(w http.ResponseWriter, r *http.Request, ticketID int64) (string, string, bool) {
	subject, body, err := h.store.GetTicketText(r.Context(), ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("ticket_id %d not found", ticketID))
		} else {
			log.Printf("server: failed to load ticket %d: %v", ticketID, err)
			writeError(w, http.StatusInternalServerError, "storage error")
		}
		return "", "", false
	}
	return subject, body, true
}

// ensureIndexed backfills the index for a ticket before a decision runs.
// Not fatal; proceed anyway.
func (h *Handlers) ensureIndexed(ctx context.Context, ticketID int64) {
	if h.indexer == nil {
		return
	}
	if _, err := h.indexer.EnsureIndexed(ctx, ticketID); err != nil {
		log.Printf("server: indexing skipped/failed for ticket %d: %v", ticketID, err)
	}
}

// similarResponse mirrors the retrieval endpoint's response shape.
type similarResponse struct {
	Results []types.SimilarTicket `json:"results"`
}

// Similar returns the top-K most similar indexed tickets for a ticket.
func (h *Handlers) Similar(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTicketRequest(w, r)
	if !ok {
		return
	}
	subject, body, ok := h.loadTicketText(w, r, req.TicketID)
	if !ok {
		return
	}

	text := llm.QueryText(subject, body)
	if text == "" {
		writeJSON(w, http.StatusOK, similarResponse{Results: []types.SimilarTicket{}})
		return
	}

	h.ensureIndexed(r.Context(), req.TicketID)

	qvec, err := h.embedder.Embed(r.Context(), text)
	if err != nil {
		log.Printf("server: embedding failed for ticket %d: %v", req.TicketID, err)
		writeError(w, http.StatusBadGateway, "embedding failed")
		return
	}
	results, err := h.store.TopKSimilar(r.Context(), qvec, req.TopK, req.TicketID)
	if err != nil {
		log.Printf("server: similarity search failed for ticket %d: %v", req.TicketID, err)
		writeError(w, http.StatusInternalServerError, "similarity search failed")
		return
	}
	writeJSON(w, http.StatusOK, similarResponse{Results: results})
}

// assignResponse mirrors the assignment endpoint's response shape.
type assignResponse struct {
	TicketID         int64  `json:"ticket_id"`
	AssignedTeamID   string `json:"assigned_team_id"`
	AssignedTeamName string `json:"assigned_team_name"`
	Reasoning        string `json:"reasoning"`
	Persisted        bool   `json:"persisted"`
	Message          string `json:"message,omitempty"`
}

// Assign routes a ticket to a team and persists the suggestion when the
// decision names a valid team.
func (h *Handlers) Assign(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTicketRequest(w, r)
	if !ok {
		return
	}
	subject, body, ok := h.loadTicketText(w, r, req.TicketID)
	if !ok {
		return
	}

	h.ensureIndexed(r.Context(), req.TicketID)

	decision, err := h.assigner.AssignTeam(r.Context(), req.TicketID, subject, body, req.TopK)
	if err != nil {
		log.Printf("server: assignment failed for ticket %d: %v", req.TicketID, err)
		writeError(w, http.StatusBadGateway, "assignment failed")
		return
	}

	resp := assignResponse{
		TicketID:         req.TicketID,
		AssignedTeamID:   decision.TeamID,
		AssignedTeamName: decision.TeamName,
		Reasoning:        decision.Reasoning,
	}

	if decision.Unassigned() {
		resp.Persisted = false
		resp.Message = "No valid team_id returned; not persisted."
		writeJSON(w, http.StatusOK, resp)
		return
	}

	persisted, err := h.store.UpdateSuggestedTeam(r.Context(), req.TicketID, decision.TeamID)
	if err != nil {
		log.Printf("server: failed to persist suggestion for ticket %d: %v", req.TicketID, err)
	}
	resp.Persisted = persisted
	if persisted {
		resp.Message = "suggested_assigned_team_id updated."
		if h.mailer.Enabled() {
			// Fire and forget; mail failure never fails the request.
			go h.mailer.NotifyAssignment(context.WithoutCancel(r.Context()), req.TicketID, subject, decision)
		}
	} else {
		resp.Message = "Could not persist; check ticket_id/team_id."
	}
	writeJSON(w, http.StatusOK, resp)
}

// solutionResponse mirrors the solution endpoint's response shape.
type solutionResponse struct {
	TicketID  int64                  `json:"ticket_id"`
	Solution  string                 `json:"solution"`
	Sources   []types.SolutionSource `json:"sources"`
	Persisted bool                   `json:"persisted"`
	Message   string                 `json:"message,omitempty"`
}

// Solution drafts a resolution for a ticket and persists it as the suggested
// answer.
func (h *Handlers) Solution(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTicketRequest(w, r)
	if !ok {
		return
	}
	subject, body, ok := h.loadTicketText(w, r, req.TicketID)
	if !ok {
		return
	}

	h.ensureIndexed(r.Context(), req.TicketID)

	result, err := h.solver.GenerateSolution(r.Context(), req.TicketID, subject, body, req.TopK)
	if err != nil {
		log.Printf("server: solution failed for ticket %d: %v", req.TicketID, err)
		writeError(w, http.StatusBadGateway, "solution generation failed")
		return
	}

	persisted, err := h.store.UpdateSuggestedAnswer(r.Context(), req.TicketID, result.Solution)
	if err != nil {
		log.Printf("server: failed to persist answer for ticket %d: %v", req.TicketID, err)
	}

	resp := solutionResponse{
		TicketID:  req.TicketID,
		Solution:  result.Solution,
		Sources:   result.Sources,
		Persisted: persisted,
	}
	if persisted {
		resp.Message = "suggested_answer updated."
	} else {
		resp.Message = "Could not persist; ticket not found."
	}
	writeJSON(w, http.StatusOK, resp)
}

// createTicketRequest mirrors the ticket creation request shape.
type createTicketRequest struct {
	RequesterID    *int64   `json:"requester_id,omitempty"`
	Subject        string   `json:"subject"`
	Body           string   `json:"body"`
	Answer         string   `json:"answer,omitempty"`
	Type           string   `json:"type,omitempty"`
	Priority       string   `json:"priority,omitempty"`
	Status         string   `json:"status,omitempty"`
	AssignedTeamID string   `json:"assigned_team_id,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// createTicketResponse mirrors the ticket creation response shape.
type createTicketResponse struct {
	TicketID      int64  `json:"ticket_id"`
	IndexedChunks int    `json:"indexed_chunks"`
	Message       string `json:"message"`
}

// CreateTicket inserts a new ticket and synchronously indexes its body.
func (h *Handlers) CreateTicket(w http.ResponseWriter, r *http.Request) {
	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket := &types.Ticket{
		RequesterID:    req.RequesterID,
		Subject:        req.Subject,
		Body:           req.Body,
		Answer:         req.Answer,
		Type:           req.Type,
		Priority:       req.Priority,
		Status:         req.Status,
		AssignedTeamID: req.AssignedTeamID,
		Tags:           req.Tags,
	}
	if err := h.store.CreateTicket(r.Context(), ticket); err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("server: failed to create ticket: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	indexed := 0
	if h.indexer != nil {
		n, err := h.indexer.IndexTicket(r.Context(), ticket.TicketID, ticket.Body)
		if err != nil {
			log.Printf("server: indexing failed for new ticket %d: %v", ticket.TicketID, err)
		} else {
			indexed = n
		}
	}

	message := "Ticket created (no body or no chunks)."
	if indexed > 0 {
		message = "Ticket created and indexed."
	}
	writeJSON(w, http.StatusOK, createTicketResponse{
		TicketID:      ticket.TicketID,
		IndexedChunks: indexed,
		Message:       message,
	})
}
