// Package stream implements the subscriber-side loop that drains a turn's
// live event channel for a delivery endpoint such as an SSE handler.
//
// The broker has no combined "wait for message or timeout" primitive, so
// the reader polls in bounded intervals: each iteration waits at most
// PollInterval before re-checking the wall-clock deadline. A stalled or
// crashed producer can therefore never leave a client blocked forever.
package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/inquesthq/inquest/internal/chat"
	"github.com/inquesthq/inquest/internal/pubsub"
)

// timeoutMessage is the synthesized terminal error delivered when the
// producer never finishes within the read timeout.
const timeoutMessage = "Request timed out waiting for the analysis to finish. Please try again."

// Config holds the reader's timing knobs.
type Config struct {
	// Timeout is the hard wall-clock ceiling for one stream.
	Timeout time.Duration
	// PollInterval bounds how long one iteration waits for a message
	// before re-checking the deadline.
	PollInterval time.Duration
}

// DefaultConfig returns the standard stream timing.
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Minute,
		PollInterval: time.Second,
	}
}

// Reader drains turn channels with a poll/timeout loop.
type Reader struct {
	broker *pubsub.Broker
	cfg    Config
	log    *slog.Logger
}

// NewReader creates a reader over the given broker.
func NewReader(broker *pubsub.Broker, cfg Config, log *slog.Logger) *Reader {
	return &Reader{broker: broker, cfg: cfg, log: log}
}

// Stream subscribes to a channel and calls yield for each well-formed
// event, in arrival order, until one of:
//
//   - a complete or error event is received: it is yielded, then the
//     stream stops; these are the only two event kinds that terminate it
//   - the total elapsed time exceeds the configured timeout: a synthesized
//     terminal error event is yielded, then the stream stops
//   - ctx is canceled (the client went away): ctx.Err() is returned
//   - yield returns an error: it is returned as-is
//
// A message that fails to parse is logged and skipped; one corrupt frame
// must not abort an otherwise healthy stream. The subscription is released
// on every exit path.
func (r *Reader) Stream(ctx context.Context, channel string, yield func(chat.Event) error) error {
	sub := r.broker.Subscribe(channel)
	defer sub.Close()

	deadline := time.Now().Add(r.cfg.Timeout)
	for {
		poll := time.NewTimer(r.cfg.PollInterval)
		select {
		case <-ctx.Done():
			poll.Stop()
			return ctx.Err()

		case payload, ok := <-sub.C:
			poll.Stop()
			if !ok {
				// Broker torn down; nothing more will arrive.
				return nil
			}
			ev, err := chat.ParseEvent(payload)
			if err != nil {
				r.log.Warn("skipping malformed frame", "channel", channel, "error", err)
				continue
			}
			if err := yield(ev); err != nil {
				return err
			}
			if ev.Terminal() {
				return nil
			}

		case <-poll.C:
		}

		if time.Now().After(deadline) {
			return yield(chat.Event{Kind: chat.EventError, Message: timeoutMessage})
		}
	}
}
