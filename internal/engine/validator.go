package engine

import (
	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// MatchKind records which field of a model selection matched a candidate.
type MatchKind int

const (
	// MatchByID means the normalized team id matched.
	MatchByID MatchKind = iota
	// MatchByName means the normalized team name matched.
	MatchByName
)

// MatchCandidate checks a parsed team selection against the closed candidate
// set. Both sides are normalized (trimmed, lowercased) before comparison.
// An id match takes priority over a name match. Pure function: no storage or
// network access, only the candidate list already loaded for this request.
//
// The returned team carries the candidate's canonical id and name, not
// whatever strings the model emitted.
func MatchCandidate(sel llm.TeamSelection, candidates []types.Team) (types.Team, MatchKind, bool) {
	wantID := types.Normalize(sel.AssignedTeamID)
	wantName := types.Normalize(sel.AssignedTeamName)

	if wantID != "" {
		for _, c := range candidates {
			if types.Normalize(c.TeamID) == wantID {
				return c, MatchByID, true
			}
		}
	}
	if wantName != "" {
		for _, c := range candidates {
			if types.Normalize(c.TeamName) == wantName {
				return c, MatchByName, true
			}
		}
	}
	return types.Team{}, 0, false
}
