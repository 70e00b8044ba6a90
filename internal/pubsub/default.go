package pubsub

import "sync"

// The broker connection is process-wide state: one shared instance,
// initialized on first use, torn down explicitly on shutdown. Request
// handling never churns per-request broker instances.

var (
	defaultMu     sync.Mutex
	defaultBroker *Broker
)

// Default returns the process-wide broker, creating it on first use.
func Default() *Broker {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBroker == nil {
		defaultBroker = NewBroker()
	}
	return defaultBroker
}

// Reset discards the process-wide broker. Intended for shutdown and for
// test isolation; existing subscriptions keep draining their buffers but
// receive nothing new.
func Reset() {
	defaultMu.Lock()
	defaultBroker = nil
	defaultMu.Unlock()
}
