package agent_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/inquesthq/inquest/internal/agent"
	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/notify"
	"github.com/inquesthq/inquest/internal/progress"
	"github.com/inquesthq/inquest/internal/pubsub"
	"github.com/inquesthq/inquest/internal/store"
)

func TestReplay_ProducesFullTrace(t *testing.T) {
	st, err := store.New(store.Config{DataDir: t.TempDir(), MaxSearchResults: 20})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()
	broker := pubsub.NewBroker()

	turn, err := st.CreateTurn("turn-replay", "sess-1", "checkout errors spiking")
	if err != nil {
		t.Fatalf("CreateTurn() error = %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewWebNotifier(st, broker, turn.ID, notify.DefaultLimits(), log)
	hooks := progress.NewAdapter(notifier, progress.NewRegistry(), 3, log)

	r := &agent.Replay{StepDelay: 0}
	final, err := r.Run(context.Background(), turn, hooks)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if final == "" {
		t.Fatal("Run() returned an empty final response")
	}

	steps, err := st.ListSteps(turn.ID)
	if err != nil {
		t.Fatalf("ListSteps() error = %v", err)
	}
	// Two tool calls and one thought.
	var tools, thoughts int
	for _, s := range steps {
		switch s.Type {
		case chat.StepToolCall:
			tools++
			if s.Status != chat.StepCompleted {
				t.Errorf("tool step %d status = %s, want COMPLETED", s.ID, s.Status)
			}
		case chat.StepThinking:
			thoughts++
		}
	}
	if tools != 2 || thoughts != 1 {
		t.Errorf("trace = %d tool calls, %d thoughts; want 2 and 1", tools, thoughts)
	}
}

func TestReplay_CancelStopsTrace(t *testing.T) {
	st, err := store.New(store.Config{DataDir: t.TempDir(), MaxSearchResults: 20})
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer st.Close()
	broker := pubsub.NewBroker()

	turn, err := st.CreateTurn("turn-cancel", "sess-1", "anything")
	if err != nil {
		t.Fatalf("CreateTurn() error = %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	notifier := notify.NewWebNotifier(st, broker, turn.ID, notify.DefaultLimits(), log)
	hooks := progress.NewAdapter(notifier, progress.NewRegistry(), 3, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := agent.NewReplay()
	if _, err := r.Run(ctx, turn, hooks); err != context.Canceled {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}
