package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/inquesthq/inquest/internal/chat"
)

// ─── Steps ───────────────────────────────────────────────────────────────────

// AppendStepParams holds the input for appending a step to a turn.
type AppendStepParams struct {
	TurnID   string
	Type     chat.StepType
	ToolName string
	Content  string
	Status   chat.StepStatus
}

// AppendStep appends a step to a turn, assigning the next sequence number.
// The sequence is computed and the row inserted inside one transaction, so
// per-turn sequences are strictly increasing and gap-free. The pipeline has
// a single writer per turn; the unique (turn_id, sequence) index backs that
// assumption at the schema level.
func (s *Store) AppendStep(p AppendStepParams) (*chat.Step, error) {
	if err := chat.ValidateStepType(p.Type); err != nil {
		return nil, fmt.Errorf("store: append step: %w", err)
	}
	if err := chat.ValidateStepStatus(p.Status); err != nil {
		return nil, fmt.Errorf("store: append step: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("store: append step: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO steps (turn_id, step_type, tool_name, content, status, sequence)
		 VALUES (?, ?, ?, ?, ?,
		         (SELECT COALESCE(MAX(sequence), 0) + 1 FROM steps WHERE turn_id = ?))`,
		p.TurnID, string(p.Type), nullableString(p.ToolName), p.Content, string(p.Status), p.TurnID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: append step: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("store: append step: last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: append step: commit: %w", err)
	}

	return s.GetStep(id)
}

// GetStep retrieves a step by ID.
func (s *Store) GetStep(id int64) (*chat.Step, error) {
	row := s.db.QueryRow(
		`SELECT id, turn_id, step_type, tool_name, content, status, sequence, created_at
		 FROM steps WHERE id = ?`, id,
	)
	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: step %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get step: %w", err)
	}
	return step, nil
}

// UpdateStep transitions a step to a new status, optionally replacing its
// content. An empty content leaves the existing content untouched. The same
// row is mutated in place; clients correlating tool start/end by step id
// see a single evolving record.
func (s *Store) UpdateStep(id int64, status chat.StepStatus, content string) (*chat.Step, error) {
	current, err := s.GetStep(id)
	if err != nil {
		return nil, err
	}
	if err := chat.CanTransitionStep(current.Status, status); err != nil {
		return nil, fmt.Errorf("store: step %d: %w: %v", id, ErrInvalidTransition, err)
	}

	if content == "" {
		_, err = s.db.Exec(`UPDATE steps SET status = ? WHERE id = ?`, string(status), id)
	} else {
		_, err = s.db.Exec(`UPDATE steps SET status = ?, content = ? WHERE id = ?`, string(status), content, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: update step: %w", err)
	}
	return s.GetStep(id)
}

// ListSteps returns a turn's steps ordered by sequence.
func (s *Store) ListSteps(turnID string) ([]chat.Step, error) {
	rows, err := s.db.Query(
		`SELECT id, turn_id, step_type, tool_name, content, status, sequence, created_at
		 FROM steps WHERE turn_id = ? ORDER BY sequence ASC`, turnID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var steps []chat.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan step: %w", err)
		}
		steps = append(steps, *step)
	}
	return steps, rows.Err()
}

// SearchSteps runs an FTS5 query over step content, optionally scoped to
// one session. Results are ordered by relevance.
func (s *Store) SearchSteps(query, sessionID string, limit int) ([]StepSearchResult, error) {
	if limit <= 0 || limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}

	q := `
		SELECT st.id, st.turn_id, st.step_type, st.tool_name, st.content, st.status,
		       st.sequence, st.created_at, t.session_id, f.rank
		FROM steps_fts f
		JOIN steps st ON st.id = f.rowid
		JOIN turns t  ON t.id = st.turn_id
		WHERE steps_fts MATCH ?
	`
	args := []any{ftsQuote(query)}

	if sessionID != "" {
		q += " AND t.session_id = ?"
		args = append(args, sessionID)
	}

	q += " ORDER BY f.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: search steps: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []StepSearchResult
	for rows.Next() {
		var r StepSearchResult
		if err := rows.Scan(&r.ID, &r.TurnID, &r.Type, &r.ToolName, &r.Content, &r.Status,
			&r.Sequence, &r.CreatedAt, &r.SessionID, &r.Rank); err != nil {
			return nil, fmt.Errorf("store: scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanStep(row scanner) (*chat.Step, error) {
	var step chat.Step
	if err := row.Scan(&step.ID, &step.TurnID, &step.Type, &step.ToolName,
		&step.Content, &step.Status, &step.Sequence, &step.CreatedAt); err != nil {
		return nil, err
	}
	return &step, nil
}

// ftsQuote wraps each whitespace-separated term in double quotes so user
// input cannot inject FTS5 query syntax.
func ftsQuote(query string) string {
	out := ""
	term := ""
	flush := func() {
		if term != "" {
			if out != "" {
				out += " "
			}
			out += `"` + term + `"`
			term = ""
		}
	}
	for _, r := range query {
		switch r {
		case ' ', '\t', '\n':
			flush()
		case '"':
			// strip embedded quotes
		default:
			term += string(r)
		}
	}
	flush()
	return out
}
