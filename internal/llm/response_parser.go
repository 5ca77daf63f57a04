package llm

import (
	"encoding/json"
	"strings"
)

// TeamSelection is the structured record the assignment prompt asks the
// model to return.
type TeamSelection struct {
	AssignedTeamID   string `json:"assigned_team_id"`
	AssignedTeamName string `json:"assigned_team_name"`
	Reasoning        string `json:"reasoning"`
}

// Selection is the tagged result of parsing model output for an assignment
// attempt. Either the decode succeeded (Degraded false) or the raw text was
// folded into a record the validator will reject (Degraded true), which
// triggers the engine's retry path.
type Selection struct {
	Record   TeamSelection
	Degraded bool
	// Note explains why the record is degraded. Empty when Degraded is false.
	Note string
	// Raw is the original model output, kept for diagnostics.
	Raw string
}

// solutionResponse is the single-field object the solution prompt requires.
type solutionResponse struct {
	Solution string `json:"solution"`
}

// judgeResponse is the grading object the judge prompt requires.
type judgeResponse struct {
	Similarity  float64 `json:"similarity"`
	Category    string  `json:"category"`
	Explanation string  `json:"explanation"`
}

// stripFences removes a leading/trailing markdown code fence, optionally
// tagged json/md/markdown, from the model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	for _, tag := range []string{"json", "markdown", "md"} {
		if strings.HasPrefix(strings.ToLower(s), tag) {
			s = s[len(tag):]
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSON extracts the first complete JSON object from a string that may
// contain extra text. This handles the common failure mode where models add
// explanations before or after the object despite instructions.
func extractJSON(text string) string {
	text = stripFences(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found, return as-is and let the decoder fail
	}

	// Walk to the matching closing brace, skipping braces inside strings.
	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // no complete JSON object found
}

// ParseTeamSelection turns free-form model output into a best-effort
// TeamSelection. It never fails: fenced output is unwrapped, a direct decode
// is attempted, then a brace-delimited substring, and on total failure the
// raw text is carried in the name field of a degraded record so the
// validator rejects it and the engine retries.
func ParseTeamSelection(raw string) Selection {
	cleaned := stripFences(raw)

	var record TeamSelection
	if err := json.Unmarshal([]byte(cleaned), &record); err == nil {
		return Selection{Record: record, Raw: raw}
	}

	if candidate := extractJSON(cleaned); candidate != cleaned {
		if err := json.Unmarshal([]byte(candidate), &record); err == nil {
			return Selection{Record: record, Raw: raw}
		}
	}

	return Selection{
		Record: TeamSelection{
			AssignedTeamID:   "",
			AssignedTeamName: strings.TrimSpace(cleaned),
			Reasoning:        "Parsed from non-JSON output.",
		},
		Degraded: true,
		Note:     "Parsed from non-JSON output.",
		Raw:      raw,
	}
}

// ParseSolutionResponse extracts the solution field from model output.
// On total parse failure the cleaned raw text itself is returned as the
// solution; a parse problem never fails a solution request.
func ParseSolutionResponse(raw string) string {
	cleaned := stripFences(raw)

	var resp solutionResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err == nil && resp.Solution != "" {
		return resp.Solution
	}

	if candidate := extractJSON(cleaned); candidate != cleaned {
		if err := json.Unmarshal([]byte(candidate), &resp); err == nil && resp.Solution != "" {
			return resp.Solution
		}
	}

	return cleaned
}

// ParseJudgeResponse decodes the grading object from model output.
// The ok result is false when no structured verdict could be recovered.
func ParseJudgeResponse(raw string) (similarity float64, category, explanation string, ok bool) {
	cleaned := stripFences(raw)

	var resp judgeResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err == nil {
		return resp.Similarity, resp.Category, resp.Explanation, true
	}

	if candidate := extractJSON(cleaned); candidate != cleaned {
		if err := json.Unmarshal([]byte(candidate), &resp); err == nil {
			return resp.Similarity, resp.Category, resp.Explanation, true
		}
	}

	return 0, "", "", false
}
