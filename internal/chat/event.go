package chat

import (
	"encoding/json"
	"fmt"
)

// --- Live event kinds ---

// EventKind tags a live event published on a turn's channel.
// The kind determines which payload fields are populated.
type EventKind string

const (
	EventStatus    EventKind = "status"
	EventToolStart EventKind = "tool_start"
	EventToolEnd   EventKind = "tool_end"
	EventThinking  EventKind = "thinking"
	EventComplete  EventKind = "complete"
	EventError     EventKind = "error"
)

// Event is the ephemeral record published on a turn's channel. It is never
// persisted as its own entity; the corresponding Step/Turn mutation is
// committed before the event is published, so persisted state is always at
// least as fresh as anything a subscriber sees.
type Event struct {
	Kind          EventKind `json:"event"`
	Content       string    `json:"content,omitempty"`        // status, thinking, tool_end output
	ToolName      string    `json:"tool_name,omitempty"`      // tool_start, tool_end
	Status        string    `json:"status,omitempty"`         // tool_end: "completed" | "failed"
	StepID        int64     `json:"step_id,omitempty"`        // tool_start, tool_end
	FinalResponse string    `json:"final_response,omitempty"` // complete
	Message       string    `json:"message,omitempty"`        // error
}

// Terminal reports whether the event ends a turn's stream.
// complete and error are the only two kinds that terminate it.
func (e Event) Terminal() bool {
	return e.Kind == EventComplete || e.Kind == EventError
}

// Marshal serializes the event to its wire format.
func (e Event) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("chat: marshal %s event: %w", e.Kind, err)
	}
	return data, nil
}

// ParseEvent decodes a wire frame back into an Event. A frame without a
// recognizable kind is rejected so a subscriber can skip corrupt messages
// without aborting its stream.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("chat: parse event: %w", err)
	}
	switch e.Kind {
	case EventStatus, EventToolStart, EventToolEnd, EventThinking, EventComplete, EventError:
		return e, nil
	default:
		return Event{}, fmt.Errorf("chat: parse event: unknown kind %q", e.Kind)
	}
}
