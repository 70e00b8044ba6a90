// Package progress bridges the agent framework's tool lifecycle hooks to
// the notification capability set.
//
// The framework's callbacks are stateless per call and carry no correlation
// id: a "tool finished" hook does not say which "tool started" it belongs
// to. The Adapter holds the currently open step for its turn; a single
// slot, which is safe because the framework invokes tool hooks serially per
// turn and each turn owns exactly one Adapter. If concurrent tool calls per
// turn are ever introduced this must become a map keyed by an invocation id
// supplied by the framework.
package progress

import (
	"log/slog"
	"strings"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/notify"
)

// Content caps applied before handing text to the notifier.
const (
	toolOutputLimit = 500
	errorTextLimit  = 200
	fatalErrorLimit = 500
)

// thoughtMarker precedes the free-text rationale in an agent action's
// raw text; the thought runs from the marker to the next line break.
const thoughtMarker = "Thought:"

// minThoughtLen gates thinking capture; fragments at or below this length
// are noise not worth persisting.
const minThoughtLen = 10

// Adapter translates agent framework lifecycle hooks into Notifier calls
// and applies the retryable-error suppression policy. One Adapter serves
// one turn and is never shared across goroutines.
type Adapter struct {
	notifier   notify.Notifier
	names      *Registry
	maxRetries int
	log        *slog.Logger

	// Correlation state for the currently open tool call.
	currentStepID   int64
	currentToolName string

	suppressedErrors int
}

// NewAdapter creates the adapter for one turn. maxRetries bounds how many
// retryable framework errors are suppressed before escalating.
func NewAdapter(notifier notify.Notifier, names *Registry, maxRetries int, log *slog.Logger) *Adapter {
	return &Adapter{
		notifier:   notifier,
		names:      names,
		maxRetries: maxRetries,
		log:        log,
	}
}

// SuppressedErrors returns how many retryable errors have been absorbed.
func (a *Adapter) SuppressedErrors() int {
	return a.suppressedErrors
}

// ToolStarted handles the framework's tool start hook: resolve the display
// name, open a RUNNING step, and remember its id so the matching finish
// hook can close the same record.
func (a *Adapter) ToolStarted(rawName, input string) error {
	display := a.names.Resolve(rawName)
	stepID, err := a.notifier.ToolStart(display)
	if err != nil {
		return err
	}
	a.currentStepID = stepID
	a.currentToolName = display
	a.log.Debug("tool started", "tool", rawName, "step", stepID)
	return nil
}

// ToolFinished handles the framework's tool end hook, closing the step
// opened by the preceding ToolStarted.
func (a *Adapter) ToolFinished(output string) error {
	return a.closeTool(chat.StepCompleted, chat.Truncate(output, toolOutputLimit))
}

// ToolFailed handles the framework's tool error hook.
func (a *Adapter) ToolFailed(toolErr error) error {
	return a.closeTool(chat.StepFailed, chat.Truncate(toolErr.Error(), errorTextLimit))
}

// closeTool reads back the stored correlation state, closes the step, and
// clears the slot so a stale id can never be reused by an unrelated later
// call.
func (a *Adapter) closeTool(status chat.StepStatus, content string) error {
	stepID := a.currentStepID
	toolName := a.currentToolName
	a.currentStepID = 0
	a.currentToolName = ""
	return a.notifier.ToolEnd(toolName, status, content, stepID)
}

// ChainFailed handles a chain-level error from the framework, applying the
// suppression policy: retryable errors are absorbed up to maxRetries, then
// escalated; anything else fails the turn immediately.
func (a *Adapter) ChainFailed(chainErr error) error {
	message := chainErr.Error()
	if !retryable(message) {
		return a.notifier.Fail(chat.Truncate(message, fatalErrorLimit))
	}

	a.suppressedErrors++
	if a.suppressedErrors <= a.maxRetries {
		// Escalate log severity once past half the budget so building
		// trouble is visible before it becomes fatal.
		if a.suppressedErrors > a.maxRetries/2 {
			a.log.Warn("suppressed retryable agent error", "count", a.suppressedErrors, "max", a.maxRetries, "error", message)
		} else {
			a.log.Debug("suppressed retryable agent error", "count", a.suppressedErrors, "max", a.maxRetries, "error", message)
		}
		return nil
	}

	a.log.Warn("retry budget exhausted, failing turn", "count", a.suppressedErrors, "max", a.maxRetries)
	return a.notifier.Fail(chat.Truncate(message, fatalErrorLimit))
}

// ActionObserved captures the free-text rationale of an agent action. The
// thought is the text after the marker token up to the next line break;
// fragments shorter than the minimum length are dropped as noise.
func (a *Adapter) ActionObserved(text string) error {
	thought := extractThought(text)
	if len(thought) <= minThoughtLen {
		return nil
	}
	return a.notifier.Thinking(thought)
}

// extractThought pulls the rationale out of an action's raw text.
// Returns "" when no marker is present.
func extractThought(text string) string {
	idx := strings.Index(text, thoughtMarker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(thoughtMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}
