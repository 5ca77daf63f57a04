package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTeamSelection_CleanJSON(t *testing.T) {
	raw := `{"assigned_team_id": "T3", "assigned_team_name": "Network Ops", "reasoning": "VPN issue"}`

	sel := ParseTeamSelection(raw)

	assert.False(t, sel.Degraded)
	assert.Equal(t, "T3", sel.Record.AssignedTeamID)
	assert.Equal(t, "Network Ops", sel.Record.AssignedTeamName)
	assert.Equal(t, "VPN issue", sel.Record.Reasoning)
	assert.Equal(t, raw, sel.Raw)
}

func TestParseTeamSelection_FencedJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "json tag",
			raw:  "```json\n{\"assigned_team_id\": \"T1\", \"assigned_team_name\": \"Service Desk\", \"reasoning\": \"r\"}\n```",
		},
		{
			name: "bare fence",
			raw:  "```\n{\"assigned_team_id\": \"T1\", \"assigned_team_name\": \"Service Desk\", \"reasoning\": \"r\"}\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := ParseTeamSelection(tt.raw)
			assert.False(t, sel.Degraded)
			assert.Equal(t, "T1", sel.Record.AssignedTeamID)
			assert.Equal(t, "Service Desk", sel.Record.AssignedTeamName)
		})
	}
}

func TestParseTeamSelection_JSONWithSurroundingProse(t *testing.T) {
	raw := `Sure! Based on the examples, here is my answer:
{"assigned_team_id": "T2", "assigned_team_name": "Hardware", "reasoning": "laptop issue"}
Let me know if you need anything else.`

	sel := ParseTeamSelection(raw)

	assert.False(t, sel.Degraded)
	assert.Equal(t, "T2", sel.Record.AssignedTeamID)
}

func TestParseTeamSelection_BracesInsideStrings(t *testing.T) {
	raw := `prefix {"assigned_team_id": "T2", "assigned_team_name": "Hardware", "reasoning": "matches {braces} and \"quotes\""} suffix`

	sel := ParseTeamSelection(raw)

	require.False(t, sel.Degraded)
	assert.Equal(t, `matches {braces} and "quotes"`, sel.Record.Reasoning)
}

func TestParseTeamSelection_NonJSONDegrades(t *testing.T) {
	raw := "I think the Network team should handle this one."

	sel := ParseTeamSelection(raw)

	assert.True(t, sel.Degraded)
	assert.Empty(t, sel.Record.AssignedTeamID)
	assert.Equal(t, raw, sel.Record.AssignedTeamName)
	assert.Equal(t, "Parsed from non-JSON output.", sel.Record.Reasoning)
	assert.Equal(t, "Parsed from non-JSON output.", sel.Note)
	assert.Equal(t, raw, sel.Raw)
}

func TestParseTeamSelection_EmptyInput(t *testing.T) {
	sel := ParseTeamSelection("")

	assert.True(t, sel.Degraded)
	assert.Empty(t, sel.Record.AssignedTeamID)
	assert.Empty(t, sel.Record.AssignedTeamName)
}

func TestParseSolutionResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "clean object",
			raw:  `{"solution": "1. Restart the router."}`,
			want: "1. Restart the router.",
		},
		{
			name: "fenced object",
			raw:  "```json\n{\"solution\": \"1. Clear the cache.\"}\n```",
			want: "1. Clear the cache.",
		},
		{
			name: "object with prose around it",
			raw:  `Here you go: {"solution": "1. Reset the password."} Hope that helps.`,
			want: "1. Reset the password.",
		},
		{
			name: "plain text falls through as-is",
			raw:  "Just restart the machine.",
			want: "Just restart the machine.",
		},
		{
			name: "empty solution field falls through to cleaned raw",
			raw:  `{"solution": ""}`,
			want: `{"solution": ""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSolutionResponse(tt.raw))
		})
	}
}

func TestParseJudgeResponse(t *testing.T) {
	similarity, category, explanation, ok := ParseJudgeResponse(
		`{"similarity": 0.72, "category": "good_match", "explanation": "Same fix."}`)

	require.True(t, ok)
	assert.InDelta(t, 0.72, similarity, 1e-9)
	assert.Equal(t, "good_match", category)
	assert.Equal(t, "Same fix.", explanation)
}

func TestParseJudgeResponse_Unparseable(t *testing.T) {
	_, _, _, ok := ParseJudgeResponse("the solutions look pretty similar to me")
	assert.False(t, ok)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"markdown fence", "```markdown\ntext\n```", "text"},
		{"untagged fence", "```\ntext\n```", "text"},
		{"surrounding whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestExtractJSON_IncompleteObject(t *testing.T) {
	// An unterminated object comes back unchanged so the decoder can fail it.
	raw := `{"assigned_team_id": "T1", "assigned_team_name": "Desk"`
	assert.Equal(t, raw, extractJSON(raw))
}
