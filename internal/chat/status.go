package chat

import "fmt"

// --- Turn status state machine ---
//
// Turns move PENDING → PROCESSING → {COMPLETED, FAILED}. COMPLETED and
// FAILED are terminal: once reached, no further transition is legal.
// The store enforces these rules on every update so a stale writer can
// never resurrect a finished turn.

// turnTransitions maps each status to the set of statuses it may move to.
var turnTransitions = map[TurnStatus][]TurnStatus{
	TurnPending:    {TurnProcessing},
	TurnProcessing: {TurnCompleted, TurnFailed},
	TurnCompleted:  {},
	TurnFailed:     {},
}

// CanTransitionTurn checks whether a turn may move from one status to another.
// Returns an error describing the violation when the move is not allowed.
func CanTransitionTurn(from, to TurnStatus) error {
	if err := ValidateTurnStatus(from); err != nil {
		return err
	}
	if err := ValidateTurnStatus(to); err != nil {
		return err
	}
	for _, allowed := range turnTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("turn status cannot move from %s to %s", from, to)
}

// --- Step status state machine ---

// stepTransitions maps each step status to its legal successors.
// STATUS and THINKING steps are written terminal; only TOOL_CALL steps
// are created RUNNING and closed later.
var stepTransitions = map[StepStatus][]StepStatus{
	StepPending:   {StepRunning, StepCompleted, StepFailed},
	StepRunning:   {StepCompleted, StepFailed},
	StepCompleted: {},
	StepFailed:    {},
}

// CanTransitionStep checks whether a step may move from one status to another.
func CanTransitionStep(from, to StepStatus) error {
	if err := ValidateStepStatus(from); err != nil {
		return err
	}
	if err := ValidateStepStatus(to); err != nil {
		return err
	}
	for _, allowed := range stepTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("step status cannot move from %s to %s", from, to)
}
