package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/inquesthq/inquest/internal/chat"
)

// ─── Turns ───────────────────────────────────────────────────────────────────

// CreateTurn registers a new PENDING turn for a session.
func (s *Store) CreateTurn(id, sessionID, userMessage string) (*chat.Turn, error) {
	_, err := s.db.Exec(
		`INSERT INTO turns (id, session_id, user_message, status) VALUES (?, ?, ?, ?)`,
		id, sessionID, userMessage, string(chat.TurnPending),
	)
	if err != nil {
		return nil, fmt.Errorf("store: create turn: %w", err)
	}
	return s.GetTurn(id)
}

// GetTurn retrieves a turn by ID.
func (s *Store) GetTurn(id string) (*chat.Turn, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, user_message, final_response, status, job_id, created_at, updated_at
		 FROM turns WHERE id = ?`, id,
	)
	var t chat.Turn
	err := row.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.FinalResponse, &t.Status, &t.JobID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: turn %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get turn: %w", err)
	}
	return &t, nil
}

// ListTurns returns a session's turns in creation order.
func (s *Store) ListTurns(sessionID string) ([]chat.Turn, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, user_message, final_response, status, job_id, created_at, updated_at
		 FROM turns WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []chat.Turn
	for rows.Next() {
		var t chat.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.FinalResponse, &t.Status, &t.JobID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// RecentTurns returns the most recently created turns across all
// sessions, newest first.
func (s *Store) RecentTurns(limit int) ([]chat.Turn, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, user_message, final_response, status, job_id, created_at, updated_at
		 FROM turns ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("store: recent turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var turns []chat.Turn
	for rows.Next() {
		var t chat.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.FinalResponse, &t.Status, &t.JobID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// UpdateTurn moves a turn to a new status. The transition is validated
// against the turn state machine; moves out of a terminal status are
// rejected with ErrInvalidTransition. finalResponse is stored only when
// the new status is COMPLETED; it stays NULL on every other path.
func (s *Store) UpdateTurn(id string, status chat.TurnStatus, finalResponse string) (*chat.Turn, error) {
	current, err := s.GetTurn(id)
	if err != nil {
		return nil, err
	}
	if err := chat.CanTransitionTurn(current.Status, status); err != nil {
		return nil, fmt.Errorf("store: turn %q: %w: %v", id, ErrInvalidTransition, err)
	}

	var final any
	if status == chat.TurnCompleted {
		final = finalResponse
	}
	_, err = s.db.Exec(
		`UPDATE turns SET status = ?, final_response = ?, updated_at = datetime('now') WHERE id = ?`,
		string(status), final, id,
	)
	if err != nil {
		return nil, fmt.Errorf("store: update turn: %w", err)
	}
	return s.GetTurn(id)
}

// AttachJob links a turn to the background job processing it.
func (s *Store) AttachJob(id, jobID string) error {
	res, err := s.db.Exec(
		`UPDATE turns SET job_id = ?, updated_at = datetime('now') WHERE id = ?`,
		nullableString(jobID), id,
	)
	if err != nil {
		return fmt.Errorf("store: attach job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: attach job: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("store: turn %q: %w", id, ErrNotFound)
	}
	return nil
}
