package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// minEvalTextLen is the minimum combined subject+body length for a ticket to
// be worth evaluating; anything shorter carries no routing signal.
const minEvalTextLen = 20

// EvaluatorConfig tunes an offline evaluation run.
type EvaluatorConfig struct {
	// Limit caps how many assigned tickets are pulled from storage.
	Limit int
	// TopK is passed through to the decision engines.
	TopK int
	// RequestsPerSecond paces model calls so a bulk run does not hammer the
	// provider. Zero disables pacing.
	RequestsPerSecond float64
}

// Evaluator replays historical, human-resolved tickets through the decision
// engines and measures agreement with the recorded outcomes. It never writes
// suggestions back; evaluation runs are read-only with respect to tickets.
type Evaluator struct {
	tickets    storage.TicketStore
	assignment *AssignmentEngine
	solution   *SolutionEngine
	judge      *Judge
	indexer    *Indexer
	limiter    *rate.Limiter
	cfg        EvaluatorConfig
}

// NewEvaluator constructs an evaluator. The indexer may be nil, in which case
// tickets are evaluated against whatever index already exists.
func NewEvaluator(tickets storage.TicketStore, assignment *AssignmentEngine, solution *SolutionEngine, judge *Judge, indexer *Indexer, cfg EvaluatorConfig) *Evaluator {
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.TopK <= 0 {
		cfg.TopK = storage.DefaultTopK
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Evaluator{
		tickets:    tickets,
		assignment: assignment,
		solution:   solution,
		judge:      judge,
		indexer:    indexer,
		limiter:    limiter,
		cfg:        cfg,
	}
}

// AssignmentSample is the outcome of evaluating one ticket's routing.
type AssignmentSample struct {
	TicketID      int64  `json:"ticket_id"`
	ActualTeamID  string `json:"actual_team_id"`
	PredictedTeam string `json:"predicted_team_id"`
	Reasoning     string `json:"reasoning"`
	Correct       bool   `json:"correct"`
	Unassigned    bool   `json:"unassigned"`
}

// AssignmentReport summarizes one assignment evaluation run.
type AssignmentReport struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	Duration   time.Duration      `json:"duration"`
	Total      int                `json:"total"`
	Skipped    int                `json:"skipped"`
	Evaluated  int                `json:"evaluated"`
	Correct    int                `json:"correct"`
	Unassigned int                `json:"unassigned"`
	Errors     int                `json:"errors"`
	Accuracy   float64            `json:"accuracy"`
	Samples    []AssignmentSample `json:"samples"`
}

// SolutionSample is the outcome of evaluating one ticket's generated solution
// against the human-authored answer.
type SolutionSample struct {
	TicketID    int64   `json:"ticket_id"`
	Similarity  float64 `json:"similarity"`
	Category    string  `json:"category"`
	Explanation string  `json:"explanation"`
}

// SolutionReport summarizes one solution evaluation run.
type SolutionReport struct {
	RunID          string           `json:"run_id"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
	Total          int              `json:"total"`
	Skipped        int              `json:"skipped"`
	Evaluated      int              `json:"evaluated"`
	Errors         int              `json:"errors"`
	GoodMatches    int              `json:"good_matches"`
	PartialMatches int              `json:"partial_matches"`
	Mismatches     int              `json:"mismatches"`
	MeanSimilarity float64          `json:"mean_similarity"`
	Samples        []SolutionSample `json:"samples"`
}

// RunAssignmentEvaluation replays assigned tickets through the assignment
// engine and reports how often the predicted team matches the recorded one.
// Tickets with too little text to carry signal are skipped, not failed.
func (ev *Evaluator) RunAssignmentEvaluation(ctx context.Context) (*AssignmentReport, error) {
	report := &AssignmentReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	tickets, err := ev.tickets.ListAssignedTickets(ctx, ev.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("evaluation: list assigned tickets: %w", err)
	}
	report.Total = len(tickets)

	for _, t := range tickets {
		if skipTicket(t) {
			report.Skipped++
			continue
		}
		if err := ev.wait(ctx); err != nil {
			return nil, err
		}
		ev.ensureIndexed(ctx, t.TicketID)

		decision, err := ev.assignment.AssignTeam(ctx, t.TicketID, t.Subject, t.Body, ev.cfg.TopK)
		if err != nil {
			log.Printf("evaluation: run %s: ticket %d assignment failed: %v", report.RunID, t.TicketID, err)
			report.Errors++
			continue
		}

		sample := AssignmentSample{
			TicketID:      t.TicketID,
			ActualTeamID:  t.AssignedTeamID,
			PredictedTeam: decision.TeamID,
			Reasoning:     decision.Reasoning,
			Unassigned:    decision.Unassigned(),
		}
		sample.Correct = !sample.Unassigned &&
			types.Normalize(decision.TeamID) == types.Normalize(t.AssignedTeamID)

		report.Evaluated++
		if sample.Correct {
			report.Correct++
		}
		if sample.Unassigned {
			report.Unassigned++
		}
		report.Samples = append(report.Samples, sample)
	}

	if report.Evaluated > 0 {
		report.Accuracy = float64(report.Correct) / float64(report.Evaluated)
	}
	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// RunSolutionEvaluation generates a solution for each assigned ticket that
// carries a human answer, then grades the generated text against that answer
// with the judge.
func (ev *Evaluator) RunSolutionEvaluation(ctx context.Context) (*SolutionReport, error) {
	report := &SolutionReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	tickets, err := ev.tickets.ListAssignedTickets(ctx, ev.cfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("evaluation: list assigned tickets: %w", err)
	}
	report.Total = len(tickets)

	var similaritySum float64
	for _, t := range tickets {
		if skipTicket(t) || strings.TrimSpace(t.Answer) == "" {
			report.Skipped++
			continue
		}
		if err := ev.wait(ctx); err != nil {
			return nil, err
		}
		ev.ensureIndexed(ctx, t.TicketID)

		result, err := ev.solution.GenerateSolution(ctx, t.TicketID, t.Subject, t.Body, ev.cfg.TopK)
		if err != nil {
			log.Printf("evaluation: run %s: ticket %d solution failed: %v", report.RunID, t.TicketID, err)
			report.Errors++
			continue
		}

		verdict, err := ev.judge.Grade(ctx, t.TicketID, t.Subject, t.Body, t.Answer, result.Solution)
		if err != nil {
			log.Printf("evaluation: run %s: ticket %d grading failed: %v", report.RunID, t.TicketID, err)
			report.Errors++
			continue
		}

		report.Evaluated++
		similaritySum += verdict.Similarity
		switch verdict.Category {
		case types.CategoryGoodMatch:
			report.GoodMatches++
		case types.CategoryPartialMatch:
			report.PartialMatches++
		default:
			report.Mismatches++
		}
		report.Samples = append(report.Samples, SolutionSample{
			TicketID:    t.TicketID,
			Similarity:  verdict.Similarity,
			Category:    verdict.Category,
			Explanation: verdict.Explanation,
		})
	}

	if report.Evaluated > 0 {
		report.MeanSimilarity = similaritySum / float64(report.Evaluated)
	}
	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// skipTicket reports whether a ticket carries too little text to evaluate.
func skipTicket(t types.Ticket) bool {
	combined := strings.TrimSpace(t.Subject + " " + t.Body)
	return len(combined) < minEvalTextLen
}

func (ev *Evaluator) wait(ctx context.Context) error {
	if ev.limiter == nil {
		return nil
	}
	if err := ev.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("evaluation: rate limiter: %w", err)
	}
	return nil
}

// ensureIndexed backfills the similarity index for a ticket before replaying
// it. Failures degrade retrieval context, never the run.
func (ev *Evaluator) ensureIndexed(ctx context.Context, ticketID int64) {
	if ev.indexer == nil {
		return
	}
	if _, err := ev.indexer.EnsureIndexed(ctx, ticketID); err != nil {
		log.Printf("evaluation: indexing ticket %d failed: %v", ticketID, err)
	}
}
