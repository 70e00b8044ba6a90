// Package pubsub implements the in-process broker used for live fan-out of
// turn events. Channels are logically partitioned by turn id, so publishers
// of different turns never contend beyond the broker's own map lock.
//
// Delivery is best-effort: a publish with zero subscribers is not an error
// (persisted steps remain the source of truth and late subscribers backfill
// from them), and a subscriber that stops draining loses frames rather than
// blocking the producer.
package pubsub

import "sync"

// subscriberBuffer is the per-subscription channel capacity. A reader that
// falls further behind than this starts losing frames.
const subscriberBuffer = 128

// Broker fans published payloads out to channel-scoped subscribers.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[*Subscription]struct{})}
}

// Subscription is one subscriber's handle on a channel. Receive from C;
// call Close when done. Close is idempotent and always releases the
// subscription from the broker.
type Subscription struct {
	C chan []byte

	broker  *Broker
	channel string
	once    sync.Once
}

// Close unsubscribes and closes the receive channel. Safe to call more
// than once and safe to call concurrently with Publish: removal and close
// happen under the broker's write lock, which excludes in-flight publishes.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		if subs, ok := s.broker.subs[s.channel]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.broker.subs, s.channel)
			}
		}
		close(s.C)
		s.broker.mu.Unlock()
	})
}

// Subscribe registers a new subscriber on a channel. Subscribing to a
// channel nobody has published on yet is valid; readers are expected to
// subscribe before the first event exists.
func (b *Broker) Subscribe(channel string) *Subscription {
	sub := &Subscription{
		C:       make(chan []byte, subscriberBuffer),
		broker:  b,
		channel: channel,
	}
	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*Subscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish fans a payload out to all current subscribers of a channel and
// returns how many subscribers were targeted. Zero is informational, not an
// error. A slow subscriber with a full buffer is skipped so one stalled
// reader cannot block the producing turn.
func (b *Broker) Publish(channel string, payload []byte) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for sub := range b.subs[channel] {
		n++
		select {
		case sub.C <- payload:
		default:
			// Drop if subscriber is slow to keep publishing non-blocking.
		}
	}
	return n
}

// SubscriberCount returns the number of live subscribers on a channel.
func (b *Broker) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}
