// Package chat defines the domain types for the RCA chat pipeline:
// turns, steps, their status state machines, and the live event records
// published while a turn is being processed.
//
// This package follows the same design principles as the rest of the backend:
// - SRP: types, status rules, and wire events in separate files
// - OCP: new step types/event kinds can be added without modifying existing logic
package chat

import "fmt"

// --- Turn status enum ---

// TurnStatus tracks the overall lifecycle of a turn.
type TurnStatus string

const (
	TurnPending    TurnStatus = "PENDING"
	TurnProcessing TurnStatus = "PROCESSING"
	TurnCompleted  TurnStatus = "COMPLETED"
	TurnFailed     TurnStatus = "FAILED"
)

// validTurnStatuses is the set of allowed turn statuses.
var validTurnStatuses = map[TurnStatus]bool{
	TurnPending:    true,
	TurnProcessing: true,
	TurnCompleted:  true,
	TurnFailed:     true,
}

// ValidateTurnStatus returns an error if the status is not recognized.
func ValidateTurnStatus(s TurnStatus) error {
	if !validTurnStatuses[s] {
		return fmt.Errorf("invalid turn status %q: must be one of: PENDING, PROCESSING, COMPLETED, FAILED", s)
	}
	return nil
}

// Terminal reports whether the status admits no further transitions.
func (s TurnStatus) Terminal() bool {
	return s == TurnCompleted || s == TurnFailed
}

// --- Step type enum ---

// StepType categorizes what kind of activity a step records.
type StepType string

const (
	StepStatusMessage StepType = "STATUS"
	StepToolCall      StepType = "TOOL_CALL"
	StepThinking      StepType = "THINKING"
)

// validStepTypes is the set of allowed step types.
var validStepTypes = map[StepType]bool{
	StepStatusMessage: true,
	StepToolCall:      true,
	StepThinking:      true,
}

// ValidateStepType returns an error if the type is not recognized.
func ValidateStepType(t StepType) error {
	if !validStepTypes[t] {
		return fmt.Errorf("invalid step type %q: must be one of: STATUS, TOOL_CALL, THINKING", t)
	}
	return nil
}

// --- Step status enum ---

// StepStatus tracks the lifecycle of a single step.
type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
)

// validStepStatuses is the set of allowed step statuses.
var validStepStatuses = map[StepStatus]bool{
	StepPending:   true,
	StepRunning:   true,
	StepCompleted: true,
	StepFailed:    true,
}

// ValidateStepStatus returns an error if the status is not recognized.
func ValidateStepStatus(s StepStatus) error {
	if !validStepStatuses[s] {
		return fmt.Errorf("invalid step status %q: must be one of: PENDING, RUNNING, COMPLETED, FAILED", s)
	}
	return nil
}

// --- Core data structures ---

// Turn is one user request/response cycle within a conversation session.
// FinalResponse is set if and only if the turn completed successfully.
type Turn struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"session_id"`
	UserMessage   string     `json:"user_message"`
	FinalResponse *string    `json:"final_response,omitempty"`
	Status        TurnStatus `json:"status"`
	JobID         *string    `json:"job_id,omitempty"`
	CreatedAt     string     `json:"created_at"`
	UpdatedAt     string     `json:"updated_at"`
}

// Step is one persisted, ordered unit of observable activity within a turn.
// Sequence is strictly increasing and gap-free per turn. A TOOL_CALL step is
// created RUNNING and mutated in place to COMPLETED/FAILED; same row, so
// clients matching start/end by step id see a single evolving record.
type Step struct {
	ID        int64      `json:"id"`
	TurnID    string     `json:"turn_id"`
	Type      StepType   `json:"step_type"`
	ToolName  *string    `json:"tool_name,omitempty"`
	Content   string     `json:"content"`
	Status    StepStatus `json:"status"`
	Sequence  int        `json:"sequence"`
	CreatedAt string     `json:"created_at"`
}

// TurnChannel returns the pub/sub channel name for a turn's live events.
// The name is a pure function of the turn id so readers can subscribe
// before the first event exists.
func TurnChannel(turnID string) string {
	return "turn:" + turnID + ":events"
}
