// Package worker runs analysis turns in the background.
//
// A Worker owns the per-turn wiring: it builds the notifier and the
// progress adapter for one turn, hands them to the analysis runner, and
// settles the turn when the runner returns. The runner itself is an
// interface so the hosted analysis engine, a replay script, or a test
// fake can all sit behind the same pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/notify"
	"github.com/inquesthq/inquest/internal/progress"
	"github.com/inquesthq/inquest/internal/pubsub"
	"github.com/inquesthq/inquest/internal/store"
)

// fatalMessageLimit caps the error text published when a runner fails
// without having reported the failure through its hooks.
const fatalMessageLimit = 500

// Runner executes the analysis for one turn. Implementations report
// progress through hooks as they go and return the final response text.
// Returning an error fails the turn; a runner that has already settled
// the turn through hooks should return that same error so the caller
// can log it.
type Runner interface {
	Run(ctx context.Context, turn *chat.Turn, hooks *progress.Adapter) (string, error)
}

// Worker builds the per-turn notification pipeline and drives a Runner.
type Worker struct {
	store      *store.Store
	broker     *pubsub.Broker
	runner     Runner
	names      *progress.Registry
	limits     notify.Limits
	maxRetries int
	log        *slog.Logger
}

// New returns a Worker that processes turns with runner.
func New(st *store.Store, broker *pubsub.Broker, runner Runner, names *progress.Registry, limits notify.Limits, maxRetries int, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		store:      st,
		broker:     broker,
		runner:     runner,
		names:      names,
		limits:     limits,
		maxRetries: maxRetries,
		log:        log,
	}
}

// Process runs one turn to completion. It attaches a job id, wires up
// the notifier and adapter for the turn, and settles the turn from the
// runner's result unless the runner already settled it through hooks.
//
// Process is safe to call from its own goroutine; the error return
// exists for callers that want to surface it (tests, synchronous CLIs).
func (w *Worker) Process(ctx context.Context, turnID string) error {
	turn, err := w.store.GetTurn(turnID)
	if err != nil {
		return fmt.Errorf("worker: load turn %s: %w", turnID, err)
	}

	jobID := uuid.NewString()
	if err := w.store.AttachJob(turnID, jobID); err != nil {
		return fmt.Errorf("worker: attach job to turn %s: %w", turnID, err)
	}

	log := w.log.With("turn", turnID, "job", jobID)
	notifier := notify.NewWebNotifier(w.store, w.broker, turnID, w.limits, log)
	hooks := progress.NewAdapter(notifier, w.names, w.maxRetries, log)

	final, runErr := w.runner.Run(ctx, turn, hooks)
	if runErr != nil {
		log.Error("turn failed", "error", runErr)
		failErr := notifier.Fail(chat.Truncate(runErr.Error(), fatalMessageLimit))
		if failErr != nil && !errors.Is(failErr, notify.ErrTurnFinished) {
			return fmt.Errorf("worker: fail turn %s: %w", turnID, failErr)
		}
		return fmt.Errorf("worker: run turn %s: %w", turnID, runErr)
	}

	if err := notifier.Complete(final); err != nil {
		// The runner may have settled the turn itself (for example the
		// adapter failed it after exhausting retries).
		if errors.Is(err, notify.ErrTurnFinished) {
			log.Debug("turn already settled before completion")
			return nil
		}
		return fmt.Errorf("worker: complete turn %s: %w", turnID, err)
	}
	log.Info("turn completed", "suppressed_errors", hooks.SuppressedErrors())
	return nil
}
