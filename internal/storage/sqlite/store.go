package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/smarttickets/smarttickets/internal/storage"
	"github.com/smarttickets/smarttickets/pkg/types"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Ensure *Store implements the full storage surface at compile time.
var _ storage.Store = (*Store)(nil)

// NewStore opens a SQLite store and applies the schema.
// Use ":memory:" as the dsn for an ephemeral in-process database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite handles concurrent writers poorly; a single connection with WAL
	// and a busy timeout keeps lock contention off the request path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB returns the underlying database connection.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateTicket inserts a ticket and populates its TicketID.
func (s *Store) CreateTicket(ctx context.Context, ticket *types.Ticket) error {
	if ticket == nil {
		return storage.ErrInvalidInput
	}
	if strings.TrimSpace(ticket.Subject) == "" && strings.TrimSpace(ticket.Body) == "" {
		return fmt.Errorf("%w: ticket needs a subject or a body", storage.ErrInvalidInput)
	}

	var tagsJSON []byte
	if len(ticket.Tags) > 0 {
		var err error
		tagsJSON, err = json.Marshal(ticket.Tags)
		if err != nil {
			return fmt.Errorf("sqlite: failed to marshal tags: %w", err)
		}
	}

	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO tickets (requester_id, subject, body, answer, assigned_team_id, type, priority, status, tags, created_at, updated_at)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query,
		ticket.RequesterID, ticket.Subject, ticket.Body,
		ticket.Answer, ticket.AssignedTeamID,
		ticket.Type, ticket.Priority, ticket.Status, tagsJSON,
		ticket.CreatedAt, ticket.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to create ticket: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: failed to get ticket id: %w", err)
	}
	ticket.TicketID = id
	return nil
}

const ticketSelectColumns = `
	ticket_id, requester_id, subject, body,
	COALESCE(answer, ''), COALESCE(assigned_team_id, ''),
	COALESCE(suggested_answer, ''), COALESCE(suggested_assigned_team_id, ''),
	COALESCE(type, ''), COALESCE(priority, ''), COALESCE(status, ''),
	tags, created_at
`

func scanTicket(row interface{ Scan(...any) error }) (*types.Ticket, error) {
	var t types.Ticket
	var tagsJSON sql.NullString
	err := row.Scan(
		&t.TicketID, &t.RequesterID, &t.Subject, &t.Body,
		&t.Answer, &t.AssignedTeamID,
		&t.SuggestedAnswer, &t.SuggestedAssignedTeamID,
		&t.Type, &t.Priority, &t.Status,
		&tagsJSON, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &t.Tags); err != nil {
			return nil, fmt.Errorf("sqlite: failed to unmarshal tags: %w", err)
		}
	}
	return &t, nil
}

// GetTicket retrieves a full ticket by id.
func (s *Store) GetTicket(ctx context.Context, ticketID int64) (*types.Ticket, error) {
	query := `SELECT ` + ticketSelectColumns + ` FROM tickets WHERE ticket_id = ?`
	t, err := scanTicket(s.db.QueryRowContext(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: failed to get ticket %d: %w", ticketID, err)
	}
	return t, nil
}

// GetTicketText retrieves just the subject and body for a ticket.
func (s *Store) GetTicketText(ctx context.Context, ticketID int64) (string, string, error) {
	const query = `SELECT subject, body FROM tickets WHERE ticket_id = ?`
	var subject, body string
	err := s.db.QueryRowContext(ctx, query, ticketID).Scan(&subject, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", storage.ErrNotFound
		}
		return "", "", fmt.Errorf("sqlite: failed to get ticket text %d: %w", ticketID, err)
	}
	return subject, body, nil
}

// UpdateSuggestedTeam writes the advisory team suggestion onto a ticket.
func (s *Store) UpdateSuggestedTeam(ctx context.Context, ticketID int64, teamID string) (bool, error) {
	const query = `
		UPDATE tickets
		SET suggested_assigned_team_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE ticket_id = ?
		  AND EXISTS (SELECT 1 FROM teams WHERE team_id = ?)
	`
	result, err := s.db.ExecContext(ctx, query, teamID, ticketID, teamID)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to update suggested team for ticket %d: %w", ticketID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// UpdateSuggestedAnswer writes the advisory generated solution onto a ticket.
func (s *Store) UpdateSuggestedAnswer(ctx context.Context, ticketID int64, solution string) (bool, error) {
	const query = `
		UPDATE tickets
		SET suggested_answer = ?, updated_at = CURRENT_TIMESTAMP
		WHERE ticket_id = ?
	`
	result, err := s.db.ExecContext(ctx, query, solution, ticketID)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to update suggested answer for ticket %d: %w", ticketID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// ListAssignedTickets returns up to limit tickets that carry a
// human-confirmed assigned_team_id, oldest first for stable evaluation runs.
func (s *Store) ListAssignedTickets(ctx context.Context, limit int) ([]types.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + ticketSelectColumns + `
		FROM tickets
		WHERE assigned_team_id IS NOT NULL
		ORDER BY ticket_id ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list assigned tickets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickets []types.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: ticket rows: %w", err)
	}
	return tickets, nil
}

// ListTeams returns all teams ordered by name.
func (s *Store) ListTeams(ctx context.Context) ([]types.Team, error) {
	const query = `SELECT team_id, team_name FROM teams ORDER BY team_name ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list teams: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var teams []types.Team
	for rows.Next() {
		var t types.Team
		if err := rows.Scan(&t.TeamID, &t.TeamName); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan team: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: team rows: %w", err)
	}
	return teams, nil
}

// UpsertTeam inserts a team or renames it when the id already exists.
func (s *Store) UpsertTeam(ctx context.Context, team types.Team) error {
	if strings.TrimSpace(team.TeamID) == "" || strings.TrimSpace(team.TeamName) == "" {
		return fmt.Errorf("%w: team id and name are required", storage.ErrInvalidInput)
	}
	const query = `
		INSERT INTO teams (team_id, team_name)
		VALUES (?, ?)
		ON CONFLICT (team_id) DO UPDATE SET team_name = excluded.team_name
	`
	if _, err := s.db.ExecContext(ctx, query, team.TeamID, team.TeamName); err != nil {
		return fmt.Errorf("sqlite: failed to upsert team %q: %w", team.TeamID, err)
	}
	return nil
}
