// Package types defines the domain types shared across the Smart Tickets
// decision core: tickets, teams, retrieval results, and the transient
// decision records produced by the assignment, solution, and judge engines.
package types

import (
	"strings"
	"time"
)

// Ticket is a helpdesk ticket as stored in the relational store.
//
// The suggested_* fields are advisory output written by the decision engines.
// They are never treated as authoritative; the human-confirmed answer and
// assigned_team_id fields are the ground truth.
type Ticket struct {
	TicketID    int64  `json:"ticket_id"`
	RequesterID *int64 `json:"requester_id,omitempty"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`

	// Answer is the human-authored resolution, when one exists.
	Answer string `json:"answer,omitempty"`
	// SuggestedAnswer is written by the solution engine.
	SuggestedAnswer string `json:"suggested_answer,omitempty"`

	Type     string `json:"type,omitempty"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`

	// AssignedTeamID is the human-confirmed routing decision.
	AssignedTeamID string `json:"assigned_team_id,omitempty"`
	// SuggestedAssignedTeamID is written by the assignment engine.
	SuggestedAssignedTeamID string `json:"suggested_assigned_team_id,omitempty"`

	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Team is a support team that tickets can be routed to. The set of teams
// loaded from storage at decision time is the closed world the validator
// enforces: no decision may reference a team outside it.
type Team struct {
	TeamID   string `json:"team_id"`
	TeamName string `json:"team_name"`
}

// SimilarTicket is one retrieval hit: a single indexed chunk of a historical
// ticket together with that ticket's resolution metadata. Several rows may
// reference the same ticket when more than one of its chunks ranks highly;
// the retriever does not deduplicate.
type SimilarTicket struct {
	TicketID         int64   `json:"ticket_id"`
	Title            string  `json:"title"`
	Body             string  `json:"body,omitempty"`
	Answer           string  `json:"answer,omitempty"`
	AssignedTeamID   string  `json:"assigned_team_id,omitempty"`
	AssignedTeamName string  `json:"assigned_team_name,omitempty"`
	ChunkID          int64   `json:"chunk_id"`
	// Score is the vector distance to the query; smaller is more similar.
	Score float64 `json:"score"`
}

// AssignmentDecision is the transient result of one assignment request.
// It is never persisted as an entity; only TeamID is optionally written back
// onto the ticket's suggested_assigned_team_id.
type AssignmentDecision struct {
	TeamID    string `json:"assigned_team_id"`
	TeamName  string `json:"assigned_team_name"`
	Reasoning string `json:"reasoning"`
}

// Unassigned reports whether the decision is the explicit "no valid automatic
// decision" sentinel. Callers must treat this as a legitimate terminal
// outcome, not an error.
func (d AssignmentDecision) Unassigned() bool {
	return d.TeamID == ""
}

// UnassignedDecision builds the terminal failure sentinel with the given
// reason. The empty team id is the signal; "Unassigned" is the display name.
func UnassignedDecision(reason string) AssignmentDecision {
	return AssignmentDecision{TeamID: "", TeamName: "Unassigned", Reasoning: reason}
}

// SolutionSource references a historical ticket that contributed actionable
// context to a generated solution.
type SolutionSource struct {
	TicketID int64   `json:"ticket_id"`
	Title    string  `json:"title,omitempty"`
	Score    float64 `json:"score"`
}

// SolutionResult is the transient result of one solution request.
type SolutionResult struct {
	Solution string           `json:"solution"`
	Sources  []SolutionSource `json:"sources"`
}

// Judge verdict categories.
const (
	CategoryGoodMatch    = "good_match"
	CategoryPartialMatch = "partial_match"
	CategoryMismatch     = "mismatch"
)

// JudgeVerdict is the result of grading a generated solution against a
// reference solution. Similarity is always within [0, 1].
type JudgeVerdict struct {
	Similarity  float64 `json:"similarity"`
	Category    string  `json:"category"`
	Explanation string  `json:"explanation"`
}

// KnownCategory reports whether s is one of the three recognized verdict
// labels.
func KnownCategory(s string) bool {
	switch s {
	case CategoryGoodMatch, CategoryPartialMatch, CategoryMismatch:
		return true
	}
	return false
}

// Normalize folds a team identifier or name for closed-world comparison:
// surrounding whitespace is trimmed and the result is lowercased.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
