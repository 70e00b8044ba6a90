package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/store"
)

// failedTurnMessage is replayed to subscribers who attach after a turn
// already failed; the original error text only exists on the live event.
const failedTurnMessage = "The analysis failed. Please start a new turn."

// handleTurnEvents streams a turn's progress as server-sent events.
//
// The handler first replays the persisted trace so a subscriber who
// attaches mid-turn (or after the turn finished) sees the full history,
// then re-reads the turn and either closes with a terminal event or
// switches to the live channel. Progress published between the replay
// read and the subscribe is not re-delivered; clients reconcile against
// GET /api/turns/{id} if they need exact state.
func (a *API) handleTurnEvents(w http.ResponseWriter, r *http.Request) {
	turnID := r.PathValue("turnID")

	if _, err := a.store.GetTurn(turnID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "turn not found")
			return
		}
		a.log.Error("get turn", "turn", turnID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load turn")
		return
	}

	steps, err := a.store.ListSteps(turnID)
	if err != nil {
		a.log.Error("list steps", "turn", turnID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load steps")
		return
	}
	// Re-read after the step query so a turn that finished in between is
	// closed from persisted state instead of waiting out the stream timeout.
	turn, err := a.store.GetTurn(turnID)
	if err != nil {
		a.log.Error("get turn", "turn", turnID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load turn")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	write := func(ev chat.Event) error {
		data, err := ev.Marshal()
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	for _, ev := range backfillEvents(steps) {
		if err := write(ev); err != nil {
			return
		}
	}

	if turn.Status.Terminal() {
		_ = write(terminalEvent(turn))
		return
	}

	err = a.reader.Stream(r.Context(), chat.TurnChannel(turnID), write)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("event stream ended", "turn", turnID, "error", err)
	}
}

// backfillEvents converts a persisted trace back into the event shapes
// a live subscriber would have seen.
func backfillEvents(steps []chat.Step) []chat.Event {
	events := make([]chat.Event, 0, len(steps))
	for _, s := range steps {
		switch s.Type {
		case chat.StepStatusMessage:
			events = append(events, chat.Event{Kind: chat.EventStatus, Content: s.Content})
		case chat.StepThinking:
			events = append(events, chat.Event{Kind: chat.EventThinking, Content: s.Content})
		case chat.StepToolCall:
			toolName := ""
			if s.ToolName != nil {
				toolName = *s.ToolName
			}
			events = append(events, chat.Event{Kind: chat.EventToolStart, ToolName: toolName, StepID: s.ID})
			if s.Status == chat.StepCompleted || s.Status == chat.StepFailed {
				events = append(events, chat.Event{
					Kind:     chat.EventToolEnd,
					ToolName: toolName,
					Status:   strings.ToLower(string(s.Status)),
					StepID:   s.ID,
					Content:  s.Content,
				})
			}
		}
	}
	return events
}

// terminalEvent synthesizes the closing event for an already-finished turn.
func terminalEvent(turn *chat.Turn) chat.Event {
	if turn.Status == chat.TurnCompleted {
		final := ""
		if turn.FinalResponse != nil {
			final = *turn.FinalResponse
		}
		return chat.Event{Kind: chat.EventComplete, FinalResponse: final}
	}
	return chat.Event{Kind: chat.EventError, Message: failedTurnMessage}
}
