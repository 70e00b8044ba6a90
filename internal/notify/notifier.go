// Package notify defines the notification capability set every delivery
// channel of the RCA pipeline must implement, and the web implementation
// backed by the store and the pub/sub broker.
//
// The contract shared by all channels: persist first, commit, then publish.
// A client reacting to a live event can therefore immediately re-query
// persisted state without a race.
package notify

import (
	"errors"

	"github.com/inquesthq/inquest/internal/chat"
)

// ErrTurnFinished is returned when an event arrives for a turn that has
// already reached a terminal status.
var ErrTurnFinished = errors.New("notify: turn already finished")

// Notifier is the capability set a delivery channel provides for one turn.
// Implementations own their persistence and transport wiring; only these
// method contracts are shared across channels (web today, chat-platform
// threads later).
//
// Calls are serial per turn: the agent framework invokes tool lifecycle
// hooks one at a time, and each turn owns exactly one Notifier instance.
type Notifier interface {
	// Status persists a STATUS step and emits a status event.
	Status(message string) error

	// ToolStart creates a RUNNING TOOL_CALL step and returns its id.
	// Callers must retain the id to later close the step via ToolEnd.
	ToolStart(toolName string) (int64, error)

	// ToolEnd transitions the identified step to COMPLETED/FAILED and
	// stores the (possibly truncated) content. The live event is emitted
	// even when stepID is zero; a well-formed adapter always supplies
	// one, but a missing correlation must not swallow the event.
	ToolEnd(toolName string, status chat.StepStatus, content string, stepID int64) error

	// Thinking persists a THINKING step (storage-truncated) and emits a
	// separately-truncated live preview.
	Thinking(content string) error

	// Complete transitions the turn to COMPLETED with its final response
	// and emits the complete event. Terminal.
	Complete(finalResponse string) error

	// Fail transitions the turn to FAILED and emits the error event.
	// Terminal.
	Fail(message string) error
}

// Limits holds the independent content caps for live vs. persisted payloads.
type Limits struct {
	// ToolOutputLive caps tool output in published tool_end events.
	ToolOutputLive int
	// ThinkingStore caps THINKING step content at rest.
	ThinkingStore int
	// ThinkingLive caps the thinking preview in published events.
	ThinkingLive int
}

// DefaultLimits returns the standard content caps.
func DefaultLimits() Limits {
	return Limits{
		ToolOutputLive: 500,
		ThinkingStore:  2000,
		ThinkingLive:   500,
	}
}
