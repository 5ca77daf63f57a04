package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smarttickets/smarttickets/pkg/types"
)

// QueryText combines a ticket's subject and body into the canonical query
// string used for embedding and prompting.
func QueryText(subject, body string) string {
	return strings.TrimSpace(fmt.Sprintf("Subject: %s\nBody: %s", subject, body))
}

// assignmentSystemPrompt frames the routing task: pick exactly one team from
// the closed list, never invent one, answer in strict JSON.
const assignmentSystemPrompt = `You are an internal helpdesk ticket routing assistant.

Your job:
- Read the ticket subject and body.
- Use the examples of similar resolved tickets.
- Choose the team whose responsibilities best match the problem.
- Choose exactly ONE support team from the provided JSON list.
- Never invent new teams. Only use teams from the list.
- Always return a valid JSON object with the required keys.`

// AssignmentExamplesBlock renders retrieved neighbors as a context block:
// each neighbor's title, prior answer (or "N/A"), and resolving team (or
// "Unknown").
func AssignmentExamplesBlock(neighbors []types.SimilarTicket) string {
	if len(neighbors) == 0 {
		return "No prior examples."
	}
	var b strings.Builder
	for i, n := range neighbors {
		answer := n.Answer
		if answer == "" {
			answer = "N/A"
		}
		team := n.AssignedTeamName
		if team == "" {
			team = "Unknown"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Title: %s\nAnswer: %s\nTeam: %s\n---", n.Title, answer, team)
	}
	return b.String()
}

// CandidatesJSON renders the full candidate team list for inclusion in a
// prompt. The whole closed world is presented, not a neighbor-filtered
// subset.
func CandidatesJSON(candidates []types.Team) string {
	data, err := json.Marshal(candidates)
	if err != nil {
		// Teams are plain string pairs; marshal cannot realistically fail.
		return "[]"
	}
	return string(data)
}

// BuildAssignmentMessages builds the first-attempt routing request.
func BuildAssignmentMessages(queryText string, neighbors []types.SimilarTicket, candidates []types.Team) []Message {
	user := fmt.Sprintf(`New ticket:
%s

Similar resolved tickets (with the teams that handled them):
%s

Valid teams (JSON list):
%s

Guidelines:
- First, think about which teams resolved the similar tickets.
- Prefer teams that already resolved similar issues.
- If multiple teams look possible, pick the one that appears most often among similar tickets, or has the closest match in subject/body.

Return ONLY this JSON object (no extra text before or after):

{
"assigned_team_id": "<id from list>",
"assigned_team_name": "<matching name from list>",
"reasoning": "<short reason explaining the match>"
}`, queryText, AssignmentExamplesBlock(neighbors), CandidatesJSON(candidates))

	return []Message{
		SystemMessage(assignmentSystemPrompt),
		UserMessage(user),
	}
}

// BuildAssignmentRetryMessages builds the single sharper retry request sent
// after the first answer failed closed-world validation. It restates the
// full candidate list and the query text and notes the previous answer was
// invalid.
func BuildAssignmentRetryMessages(queryText string, candidates []types.Team) []Message {
	user := fmt.Sprintf(`The previous response contained an invalid team name.

You must select one valid team **only** from this list:
%s

New ticket:
%s

Return ONLY a strict JSON object:
{"assigned_team_id": "<id from list>", "assigned_team_name": "<matching name>", "reasoning": "<short reason>"}`,
		CandidatesJSON(candidates), queryText)

	return []Message{UserMessage(user)}
}

// SolutionContextBlock renders actionability-filtered neighbors for the
// synthesis prompt. Callers filter before passing; non-actionable answers
// must never reach this block.
func SolutionContextBlock(neighbors []types.SimilarTicket) string {
	if len(neighbors) == 0 {
		return "No actionable prior solutions."
	}
	var b strings.Builder
	for i, n := range neighbors {
		title := n.Title
		if title == "" {
			title = "N/A"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "TicketID: %d\nTitle: %s\nAnswer: %s\n---", n.TicketID, title, n.Answer)
	}
	return b.String()
}

// BuildSolutionMessages builds the single-shot solution synthesis request.
func BuildSolutionMessages(queryText, context string) []Message {
	user := fmt.Sprintf(`You are a helpdesk *solution* assistant. Your role is to generate a clear, concise, and directly actionable fix plan for the NEW ticket based on relevant past solutions.

NEW TICKET DETAILS:
%s

RELEVANT PRIOR SOLUTIONS (already filtered for actionable content):
%s

GUIDELINES (follow exactly):
- Write a short, practical solution — 3-5 numbered steps maximum.
- Use short, direct sentences (avoid long or complex phrasing).
- Focus only on steps that can be executed immediately by a user or L1/L2 technician.
- Prefer fixes confirmed to work in prior solutions.
- For commands or settings, include exact menu paths or commands.
- Add brief verification after key steps (how to confirm the issue is resolved).
- Avoid unnecessary details or long explanations.
- Do **not** include "contact support", phone numbers, or generic escalation text.
- If escalation is required, add a final **Escalate if:** section listing specific triggers and which team should handle it.

Respond **only** as a compact JSON object using this schema:
{"solution": "<markdown with numbered steps and short notes>"}`, queryText, context)

	return []Message{UserMessage(user)}
}

// BuildJudgeMessages builds the grading request comparing a generated
// solution against the human reference. The instructed category thresholds
// are 0.6 and 0.3; the engine keeps its own fallback derivation for
// unrecognized labels.
func BuildJudgeMessages(queryText, reference, generated string) []Message {
	user := fmt.Sprintf(`You are an impartial helpdesk QA grader. Compare a GENERATED solution against the REFERENCE solution for the same ticket.

TICKET:
%s

REFERENCE SOLUTION (written by a human agent):
%s

GENERATED SOLUTION (written by an assistant):
%s

Grade how well the generated solution matches the reference in meaning and effectiveness, not wording:
- similarity: a number between 0.0 and 1.0.
- category: "good_match" if similarity >= 0.6, "partial_match" if 0.3 <= similarity < 0.6, "mismatch" otherwise.
- explanation: one or two short sentences.

Return ONLY this JSON object:
{"similarity": <number>, "category": "<label>", "explanation": "<short explanation>"}`,
		queryText, reference, generated)

	return []Message{UserMessage(user)}
}
