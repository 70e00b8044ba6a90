package notify

import (
	"fmt"
	"log/slog"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/pubsub"
	"github.com/inquesthq/inquest/internal/store"
)

// WebNotifier implements Notifier for the web channel: every lifecycle
// event becomes an ordered persisted step (or turn mutation) followed by a
// publish on the turn's channel. Persistence failure prevents publication;
// an event whose state was not durably committed is never emitted.
type WebNotifier struct {
	store  *store.Store
	broker *pubsub.Broker
	turnID string
	limits Limits
	log    *slog.Logger

	// started/finished track the turn's coarse lifecycle. One notifier
	// serves one turn and is called serially, so plain fields suffice.
	started  bool
	finished bool
}

var _ Notifier = (*WebNotifier)(nil)

// NewWebNotifier creates the web-channel notifier for one turn.
func NewWebNotifier(st *store.Store, broker *pubsub.Broker, turnID string, limits Limits, log *slog.Logger) *WebNotifier {
	return &WebNotifier{
		store:  st,
		broker: broker,
		turnID: turnID,
		limits: limits,
		log:    log.With("turn", turnID),
	}
}

// ensureProcessing lazily moves the turn PENDING → PROCESSING on the first
// event it handles, and rejects events for turns that already finished.
func (n *WebNotifier) ensureProcessing() error {
	if n.finished {
		return ErrTurnFinished
	}
	if n.started {
		return nil
	}
	turn, err := n.store.GetTurn(n.turnID)
	if err != nil {
		return err
	}
	if turn.Status.Terminal() {
		n.finished = true
		return ErrTurnFinished
	}
	if turn.Status == chat.TurnPending {
		if _, err := n.store.UpdateTurn(n.turnID, chat.TurnProcessing, ""); err != nil {
			return err
		}
	}
	n.started = true
	return nil
}

// publish serializes the event and fans it out on the turn's channel.
// Zero subscribers is fine; a reader that connects later backfills from
// the persisted steps.
func (n *WebNotifier) publish(ev chat.Event) error {
	payload, err := ev.Marshal()
	if err != nil {
		return err
	}
	subscribers := n.broker.Publish(chat.TurnChannel(n.turnID), payload)
	n.log.Debug("published event", "kind", ev.Kind, "subscribers", subscribers)
	return nil
}

// Status implements Notifier.
func (n *WebNotifier) Status(message string) error {
	if err := n.ensureProcessing(); err != nil {
		return err
	}
	if _, err := n.store.AppendStep(store.AppendStepParams{
		TurnID:  n.turnID,
		Type:    chat.StepStatusMessage,
		Content: message,
		Status:  chat.StepCompleted,
	}); err != nil {
		return err
	}
	return n.publish(chat.Event{Kind: chat.EventStatus, Content: message})
}

// ToolStart implements Notifier.
func (n *WebNotifier) ToolStart(toolName string) (int64, error) {
	if err := n.ensureProcessing(); err != nil {
		return 0, err
	}
	step, err := n.store.AppendStep(store.AppendStepParams{
		TurnID:   n.turnID,
		Type:     chat.StepToolCall,
		ToolName: toolName,
		Status:   chat.StepRunning,
	})
	if err != nil {
		return 0, err
	}
	if err := n.publish(chat.Event{Kind: chat.EventToolStart, ToolName: toolName, StepID: step.ID}); err != nil {
		return 0, err
	}
	return step.ID, nil
}

// ToolEnd implements Notifier.
func (n *WebNotifier) ToolEnd(toolName string, status chat.StepStatus, content string, stepID int64) error {
	if err := n.ensureProcessing(); err != nil {
		return err
	}
	if status != chat.StepCompleted && status != chat.StepFailed {
		return fmt.Errorf("notify: tool end status must be COMPLETED or FAILED, got %s", status)
	}
	if stepID != 0 {
		if _, err := n.store.UpdateStep(stepID, status, content); err != nil {
			return err
		}
	} else {
		// No correlation id from the adapter. Still emit the live event so
		// the client sees the tool finish.
		n.log.Warn("tool end without step id", "tool", toolName)
	}
	return n.publish(chat.Event{
		Kind:     chat.EventToolEnd,
		ToolName: toolName,
		Status:   wireStepStatus(status),
		Content:  chat.Truncate(content, n.limits.ToolOutputLive),
		StepID:   stepID,
	})
}

// Thinking implements Notifier.
func (n *WebNotifier) Thinking(content string) error {
	if err := n.ensureProcessing(); err != nil {
		return err
	}
	if _, err := n.store.AppendStep(store.AppendStepParams{
		TurnID:  n.turnID,
		Type:    chat.StepThinking,
		Content: chat.Truncate(content, n.limits.ThinkingStore),
		Status:  chat.StepCompleted,
	}); err != nil {
		return err
	}
	return n.publish(chat.Event{Kind: chat.EventThinking, Content: chat.Truncate(content, n.limits.ThinkingLive)})
}

// Complete implements Notifier.
func (n *WebNotifier) Complete(finalResponse string) error {
	if err := n.ensureProcessing(); err != nil {
		return err
	}
	if _, err := n.store.UpdateTurn(n.turnID, chat.TurnCompleted, finalResponse); err != nil {
		return err
	}
	n.finished = true
	return n.publish(chat.Event{Kind: chat.EventComplete, FinalResponse: finalResponse})
}

// Fail implements Notifier.
func (n *WebNotifier) Fail(message string) error {
	if err := n.ensureProcessing(); err != nil {
		return err
	}
	if _, err := n.store.UpdateTurn(n.turnID, chat.TurnFailed, ""); err != nil {
		return err
	}
	n.finished = true
	return n.publish(chat.Event{Kind: chat.EventError, Message: message})
}

// wireStepStatus maps a step status to its lower-case wire form.
func wireStepStatus(s chat.StepStatus) string {
	if s == chat.StepFailed {
		return "failed"
	}
	return "completed"
}
