package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/smarttickets/smarttickets/internal/llm"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// Judge grades a generated solution against the human reference solution
// for the same ticket. It is used only by the offline evaluation runs, never
// on the request path.
type Judge struct {
	chat llm.ChatCompleter
}

// NewJudge constructs a judge from its injected chat client.
func NewJudge(chat llm.ChatCompleter) *Judge {
	return &Judge{chat: chat}
}

// Grade compares the generated solution to the reference in meaning and
// effectiveness, not wording. Either side being empty after trimming is an
// immediate mismatch with zero similarity and no model call.
//
// The similarity reported by the model is clamped into [0, 1]. When the
// model's category label is not one of the three known labels, the category
// is re-derived from the clamped similarity using the 0.8/0.4 fallback
// thresholds. These deliberately differ from the 0.6/0.3 thresholds the
// prompt instructs; both paths are kept as-is.
func (j *Judge) Grade(ctx context.Context, ticketID int64, subject, body, reference, generated string) (types.JudgeVerdict, error) {
	if strings.TrimSpace(reference) == "" || strings.TrimSpace(generated) == "" {
		return types.JudgeVerdict{
			Similarity:  0.0,
			Category:    types.CategoryMismatch,
			Explanation: "Reference or generated solution is empty.",
		}, nil
	}

	queryText := llm.QueryText(subject, body)
	raw, err := j.chat.ChatJSON(ctx, llm.BuildJudgeMessages(queryText, reference, generated))
	if err != nil {
		return types.JudgeVerdict{}, fmt.Errorf("judge: model call for ticket %d: %w", ticketID, err)
	}

	similarity, category, explanation, ok := ParseGrade(raw)
	if !ok {
		// Parse failure degrades to a zero-similarity mismatch so a bulk
		// evaluation run keeps going.
		return types.JudgeVerdict{
			Similarity:  0.0,
			Category:    types.CategoryMismatch,
			Explanation: "Could not parse grading output: " + strings.TrimSpace(raw),
		}, nil
	}

	return types.JudgeVerdict{
		Similarity:  similarity,
		Category:    category,
		Explanation: explanation,
	}, nil
}

// ParseGrade decodes a grading response, clamps the similarity, and
// normalizes the category. ok is false only when no structured verdict could
// be recovered at all.
func ParseGrade(raw string) (similarity float64, category, explanation string, ok bool) {
	similarity, category, explanation, ok = llm.ParseJudgeResponse(raw)
	if !ok {
		return 0, "", "", false
	}

	similarity = clamp01(similarity)

	if !types.KnownCategory(category) {
		category = categoryFromSimilarity(similarity)
	}
	return similarity, category, explanation, true
}

// clamp01 bounds a similarity score into [0, 1] regardless of what the
// model reported.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// categoryFromSimilarity derives a category label from a clamped similarity
// using the fallback thresholds.
func categoryFromSimilarity(similarity float64) string {
	switch {
	case similarity >= 0.8:
		return types.CategoryGoodMatch
	case similarity >= 0.4:
		return types.CategoryPartialMatch
	default:
		return types.CategoryMismatch
	}
}
