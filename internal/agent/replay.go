// Package agent holds runners for the analysis side of the pipeline.
//
// The production analysis engine lives behind the worker.Runner
// interface; this package ships a scripted replay runner so the daemon
// is usable end to end in local development and demos without the
// hosted engine.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/progress"
)

// Replay is a runner that emits a canned investigation trace: service
// logs, a deployment listing, a thought, then a final answer. StepDelay
// spaces the hook calls out so streaming clients see them arrive live.
type Replay struct {
	StepDelay time.Duration
}

// NewReplay returns a Replay runner with a short delay between steps.
func NewReplay() *Replay {
	return &Replay{StepDelay: 300 * time.Millisecond}
}

// Run walks the canned trace, reporting each stage through hooks.
func (r *Replay) Run(ctx context.Context, turn *chat.Turn, hooks *progress.Adapter) (string, error) {
	trace := []func() error{
		func() error {
			return hooks.ToolStarted("fetch_logs", fmt.Sprintf(`{"query":%q}`, turn.UserMessage))
		},
		func() error {
			return hooks.ToolFinished("2,412 lines scanned, 184 errors: 'context deadline exceeded' from checkout-service")
		},
		func() error {
			return hooks.ActionObserved("Thought: the deadline errors start at 14:02, worth checking what shipped then\nAction: list_deployments")
		},
		func() error {
			return hooks.ToolStarted("list_deployments", `{"since":"1h"}`)
		},
		func() error {
			return hooks.ToolFinished("checkout-service v2.41.0 deployed 14:02 UTC by deploy-bot")
		},
	}

	for _, step := range trace {
		if err := r.pause(ctx); err != nil {
			return "", err
		}
		if err := step(); err != nil {
			return "", fmt.Errorf("agent: replay trace: %w", err)
		}
	}
	if err := r.pause(ctx); err != nil {
		return "", err
	}
	return "The checkout-service v2.41.0 deploy at 14:02 UTC introduced a downstream call without a timeout budget, which cascades into context deadline errors under load. Rolling back to v2.40.x or restoring the 800ms budget on the inventory call resolves the incident.", nil
}

func (r *Replay) pause(ctx context.Context) error {
	if r.StepDelay <= 0 {
		return nil
	}
	t := time.NewTimer(r.StepDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
