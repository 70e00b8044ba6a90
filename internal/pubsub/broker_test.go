package pubsub

import (
	"testing"
	"time"
)

func recvOrTimeout(t *testing.T, ch <-chan []byte) []byte {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

// --- Publish / Subscribe ---

func TestPublish_ReachesSubscriber(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("turn:1:events")
	defer sub.Close()

	n := b.Publish("turn:1:events", []byte("hello"))
	if n != 1 {
		t.Errorf("Publish returned %d subscribers, want 1", n)
	}
	if got := string(recvOrTimeout(t, sub.C)); got != "hello" {
		t.Errorf("received %q, want %q", got, "hello")
	}
}

func TestPublish_ZeroSubscribersIsNotAnError(t *testing.T) {
	b := NewBroker()
	if n := b.Publish("turn:ghost:events", []byte("x")); n != 0 {
		t.Errorf("Publish returned %d, want 0", n)
	}
}

func TestPublish_ChannelsAreIsolated(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("turn:1:events")
	defer sub.Close()

	b.Publish("turn:2:events", []byte("other"))
	select {
	case msg := <-sub.C:
		t.Errorf("subscriber of turn:1 received %q published on turn:2", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPublish_FanOutToMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("ch")
	c := b.Subscribe("ch")
	defer a.Close()
	defer c.Close()

	if n := b.Publish("ch", []byte("msg")); n != 2 {
		t.Errorf("Publish returned %d, want 2", n)
	}
	for _, sub := range []*Subscription{a, c} {
		if got := string(recvOrTimeout(t, sub.C)); got != "msg" {
			t.Errorf("received %q, want %q", got, "msg")
		}
	}
}

func TestPublish_OrderPreservedPerSubscriber(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("ch")
	defer sub.Close()

	for _, msg := range []string{"one", "two", "three"} {
		b.Publish("ch", []byte(msg))
	}
	for _, want := range []string{"one", "two", "three"} {
		if got := string(recvOrTimeout(t, sub.C)); got != want {
			t.Errorf("received %q, want %q", got, want)
		}
	}
}

func TestPublish_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("ch")
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			b.Publish("ch", []byte("frame"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

// --- Close ---

func TestClose_RemovesSubscriber(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("ch")
	sub.Close()

	if n := b.SubscriberCount("ch"); n != 0 {
		t.Errorf("SubscriberCount after Close = %d, want 0", n)
	}
	if n := b.Publish("ch", []byte("x")); n != 0 {
		t.Errorf("Publish after Close returned %d, want 0", n)
	}
}

func TestClose_Idempotent(t *testing.T) {
	b := NewBroker()
	sub := b.Subscribe("ch")
	sub.Close()
	sub.Close() // must not panic
}

func TestClose_ConcurrentWithPublish(t *testing.T) {
	b := NewBroker()
	subs := make([]*Subscription, 50)
	for i := range subs {
		subs[i] = b.Subscribe("ch")
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish("ch", []byte("x"))
		}
		close(done)
	}()
	for _, sub := range subs {
		sub.Close()
	}
	<-done
}

// --- Default ---

func TestDefault_SharedInstance(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if Default() != Default() {
		t.Error("Default() returned distinct brokers")
	}
}

func TestReset_DiscardsInstance(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	before := Default()
	Reset()
	if Default() == before {
		t.Error("Default() after Reset returned the old broker")
	}
}
