package notify_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/notify"
	"github.com/inquesthq/inquest/internal/pubsub"
	"github.com/inquesthq/inquest/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store    *store.Store
	broker   *pubsub.Broker
	notifier *notify.WebNotifier
	sub      *pubsub.Subscription
}

// newFixture creates a PENDING turn with a notifier and a live subscriber
// on its channel.
func newFixture(t *testing.T, limits notify.Limits) *fixture {
	t.Helper()
	s, err := store.New(store.Config{DataDir: t.TempDir(), MaxSearchResults: 20})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.CreateTurn("turn-1", "sess-1", "why is checkout failing?"); err != nil {
		t.Fatalf("failed to create turn: %v", err)
	}

	broker := pubsub.NewBroker()
	sub := broker.Subscribe(chat.TurnChannel("turn-1"))
	t.Cleanup(sub.Close)

	return &fixture{
		store:    s,
		broker:   broker,
		notifier: notify.NewWebNotifier(s, broker, "turn-1", limits, testLogger()),
		sub:      sub,
	}
}

func (f *fixture) nextEvent(t *testing.T) chat.Event {
	t.Helper()
	select {
	case payload := <-f.sub.C:
		ev, err := chat.ParseEvent(payload)
		if err != nil {
			t.Fatalf("published frame failed to parse: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published event")
		return chat.Event{}
	}
}

func (f *fixture) assertNoEvent(t *testing.T) {
	t.Helper()
	select {
	case payload := <-f.sub.C:
		t.Fatalf("unexpected event published: %s", payload)
	case <-time.After(20 * time.Millisecond):
	}
}

// --- Status ---

func TestStatus_PersistsThenPublishes(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.Status("Starting analysis"); err != nil {
		t.Fatalf("Status error: %v", err)
	}

	steps, err := f.store.ListSteps("turn-1")
	if err != nil {
		t.Fatalf("ListSteps error: %v", err)
	}
	if len(steps) != 1 || steps[0].Type != chat.StepStatusMessage || steps[0].Content != "Starting analysis" {
		t.Errorf("persisted steps = %+v, want one STATUS step", steps)
	}

	ev := f.nextEvent(t)
	if ev.Kind != chat.EventStatus || ev.Content != "Starting analysis" {
		t.Errorf("published event = %+v, want status", ev)
	}
}

func TestStatus_MovesTurnToProcessing(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.Status("Starting"); err != nil {
		t.Fatalf("Status error: %v", err)
	}
	turn, err := f.store.GetTurn("turn-1")
	if err != nil {
		t.Fatalf("GetTurn error: %v", err)
	}
	if turn.Status != chat.TurnProcessing {
		t.Errorf("turn status = %s, want PROCESSING after first event", turn.Status)
	}
}

// --- ToolStart / ToolEnd ---

func TestToolStart_CreatesRunningStep(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	id, err := f.notifier.ToolStart("fetch_logs")
	if err != nil {
		t.Fatalf("ToolStart error: %v", err)
	}
	step, err := f.store.GetStep(id)
	if err != nil {
		t.Fatalf("GetStep error: %v", err)
	}
	if step.Type != chat.StepToolCall || step.Status != chat.StepRunning {
		t.Errorf("step = %+v, want RUNNING TOOL_CALL", step)
	}

	ev := f.nextEvent(t)
	if ev.Kind != chat.EventToolStart || ev.ToolName != "fetch_logs" || ev.StepID != id {
		t.Errorf("published event = %+v, want tool_start with step id %d", ev, id)
	}
}

func TestToolEnd_ClosesSameStep(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	id, err := f.notifier.ToolStart("fetch_logs")
	if err != nil {
		t.Fatalf("ToolStart error: %v", err)
	}
	f.nextEvent(t) // drain tool_start

	if err := f.notifier.ToolEnd("fetch_logs", chat.StepCompleted, "found 3 errors", id); err != nil {
		t.Fatalf("ToolEnd error: %v", err)
	}

	step, err := f.store.GetStep(id)
	if err != nil {
		t.Fatalf("GetStep error: %v", err)
	}
	if step.Status != chat.StepCompleted || step.Content != "found 3 errors" {
		t.Errorf("step after ToolEnd = %+v", step)
	}

	steps, _ := f.store.ListSteps("turn-1")
	if len(steps) != 1 {
		t.Errorf("turn has %d steps, want 1 (ToolEnd must not create a row)", len(steps))
	}

	ev := f.nextEvent(t)
	if ev.Kind != chat.EventToolEnd || ev.Status != "completed" || ev.StepID != id {
		t.Errorf("published event = %+v, want tool_end completed", ev)
	}
}

func TestToolEnd_LiveContentTruncatedStoredContentFull(t *testing.T) {
	limits := notify.DefaultLimits()
	limits.ToolOutputLive = 10
	f := newFixture(t, limits)

	id, err := f.notifier.ToolStart("fetch_logs")
	if err != nil {
		t.Fatalf("ToolStart error: %v", err)
	}
	f.nextEvent(t)

	long := strings.Repeat("x", 40)
	if err := f.notifier.ToolEnd("fetch_logs", chat.StepCompleted, long, id); err != nil {
		t.Fatalf("ToolEnd error: %v", err)
	}

	step, _ := f.store.GetStep(id)
	if step.Content != long {
		t.Errorf("stored content length = %d, want full %d", len(step.Content), len(long))
	}
	ev := f.nextEvent(t)
	if len(ev.Content) != 10 {
		t.Errorf("live content length = %d, want exactly 10", len(ev.Content))
	}
}

func TestToolEnd_WithoutStepIDStillPublishes(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.ToolEnd("fetch_logs", chat.StepFailed, "boom", 0); err != nil {
		t.Fatalf("ToolEnd error: %v", err)
	}
	ev := f.nextEvent(t)
	if ev.Kind != chat.EventToolEnd || ev.Status != "failed" {
		t.Errorf("published event = %+v, want failed tool_end", ev)
	}
	steps, _ := f.store.ListSteps("turn-1")
	if len(steps) != 0 {
		t.Errorf("turn has %d steps, want 0 without a step id", len(steps))
	}
}

func TestToolEnd_PersistFailurePreventsPublish(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	id, err := f.notifier.ToolStart("fetch_logs")
	if err != nil {
		t.Fatalf("ToolStart error: %v", err)
	}
	f.nextEvent(t)
	if err := f.notifier.ToolEnd("fetch_logs", chat.StepCompleted, "", id); err != nil {
		t.Fatalf("first ToolEnd error: %v", err)
	}
	f.nextEvent(t)

	// Closing the same step again violates the step state machine: the
	// persistence error must surface and no event may be published.
	err = f.notifier.ToolEnd("fetch_logs", chat.StepFailed, "", id)
	if !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("second ToolEnd error = %v, want ErrInvalidTransition", err)
	}
	f.assertNoEvent(t)
}

// --- Thinking ---

func TestThinking_IndependentStorageAndLiveLimits(t *testing.T) {
	f := newFixture(t, notify.Limits{ToolOutputLive: 500, ThinkingStore: 20, ThinkingLive: 5})

	long := strings.Repeat("y", 50)
	if err := f.notifier.Thinking(long); err != nil {
		t.Fatalf("Thinking error: %v", err)
	}

	steps, _ := f.store.ListSteps("turn-1")
	if len(steps) != 1 || steps[0].Type != chat.StepThinking {
		t.Fatalf("persisted steps = %+v, want one THINKING step", steps)
	}
	if len(steps[0].Content) != 20 {
		t.Errorf("stored thinking length = %d, want 20", len(steps[0].Content))
	}
	ev := f.nextEvent(t)
	if len(ev.Content) != 5 {
		t.Errorf("live thinking length = %d, want 5", len(ev.Content))
	}
}

// --- Complete / Fail ---

func TestComplete_SetsFinalResponseAndPublishes(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.Complete("Root cause: X"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	turn, _ := f.store.GetTurn("turn-1")
	if turn.Status != chat.TurnCompleted {
		t.Errorf("turn status = %s, want COMPLETED", turn.Status)
	}
	if turn.FinalResponse == nil || *turn.FinalResponse != "Root cause: X" {
		t.Errorf("final_response = %v, want %q", turn.FinalResponse, "Root cause: X")
	}
	ev := f.nextEvent(t)
	if ev.Kind != chat.EventComplete || ev.FinalResponse != "Root cause: X" {
		t.Errorf("published event = %+v, want complete", ev)
	}
}

func TestFail_MarksTurnFailed(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.Fail("provider unavailable"); err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	turn, _ := f.store.GetTurn("turn-1")
	if turn.Status != chat.TurnFailed {
		t.Errorf("turn status = %s, want FAILED", turn.Status)
	}
	if turn.FinalResponse != nil {
		t.Errorf("final_response = %q, want nil on failure", *turn.FinalResponse)
	}
	ev := f.nextEvent(t)
	if ev.Kind != chat.EventError || ev.Message != "provider unavailable" {
		t.Errorf("published event = %+v, want error", ev)
	}
}

func TestComplete_IsTerminal(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.Complete("done"); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	f.nextEvent(t)

	if err := f.notifier.Status("late"); !errors.Is(err, notify.ErrTurnFinished) {
		t.Errorf("Status after Complete error = %v, want ErrTurnFinished", err)
	}
	if _, err := f.notifier.ToolStart("late_tool"); !errors.Is(err, notify.ErrTurnFinished) {
		t.Errorf("ToolStart after Complete error = %v, want ErrTurnFinished", err)
	}
	f.assertNoEvent(t)
}

func TestFail_IsTerminal(t *testing.T) {
	f := newFixture(t, notify.DefaultLimits())

	if err := f.notifier.Fail("boom"); err != nil {
		t.Fatalf("Fail error: %v", err)
	}
	f.nextEvent(t)

	if err := f.notifier.Thinking("late thought"); !errors.Is(err, notify.ErrTurnFinished) {
		t.Errorf("Thinking after Fail error = %v, want ErrTurnFinished", err)
	}
	f.assertNoEvent(t)
}
