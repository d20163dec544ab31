package server

import (
	"fmt"
	"testing"
	"time"
)

func recvWithTimeout(t *testing.T, sub *Subscription) []byte {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		if !ok {
			t.Fatal("Subscription closed while expecting a message")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for hub message")
		return nil
	}
}

// TestPublishWithoutSubscribers verifies that broadcasting into an empty room
// succeeds.
func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewHub(8)
	hub.Publish([]byte("nobody home"))
}

// TestFanOutDeliversToAllSubscribers verifies that every subscriber receives
// every published message in publish order.
func TestFanOutDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub(8)

	subs := []*Subscription{hub.Subscribe(), hub.Subscribe(), hub.Subscribe()}
	hub.Publish([]byte("first"))
	hub.Publish([]byte("second"))

	for i, sub := range subs {
		if got := string(recvWithTimeout(t, sub)); got != "first" {
			t.Errorf("Subscriber %d: expected %q, got %q", i, "first", got)
		}
		if got := string(recvWithTimeout(t, sub)); got != "second" {
			t.Errorf("Subscriber %d: expected %q, got %q", i, "second", got)
		}
	}
}

// TestSubscribeSeesOnlyFutureMessages verifies that a new subscription does
// not replay messages published before it existed.
func TestSubscribeSeesOnlyFutureMessages(t *testing.T) {
	hub := NewHub(8)
	hub.Publish([]byte("history"))

	sub := hub.Subscribe()
	hub.Publish([]byte("future"))

	if got := string(recvWithTimeout(t, sub)); got != "future" {
		t.Errorf("Expected %q, got %q", "future", got)
	}
	select {
	case msg := <-sub.C():
		t.Errorf("Unexpected extra message: %q", string(msg))
	default:
	}
}

// TestSlowConsumerDropsOldest verifies the overflow policy: a stalled
// subscriber loses its oldest buffered messages, keeps the newest, and never
// blocks the publisher.
func TestSlowConsumerDropsOldest(t *testing.T) {
	const buffer = 4
	hub := NewHub(buffer)
	sub := hub.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 10; i++ {
			hub.Publish([]byte(fmt.Sprintf("msg-%d", i)))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stalled subscriber")
	}

	// Only the newest `buffer` messages survive.
	for i := 7; i <= 10; i++ {
		want := fmt.Sprintf("msg-%d", i)
		if got := string(recvWithTimeout(t, sub)); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
	select {
	case msg := <-sub.C():
		t.Errorf("Unexpected extra message after drain: %q", string(msg))
	default:
	}
}

// TestStalledSubscriberDoesNotAffectOthers verifies that one slow consumer
// loses only its own backlog while a healthy subscriber sees everything.
func TestStalledSubscriberDoesNotAffectOthers(t *testing.T) {
	hub := NewHub(2)
	stalled := hub.Subscribe()
	healthy := hub.Subscribe()

	received := make(chan string, 16)
	go func() {
		for msg := range healthy.C() {
			received <- string(msg)
		}
	}()

	for i := 1; i <= 10; i++ {
		hub.Publish([]byte(fmt.Sprintf("msg-%d", i)))
		select {
		case got := <-received:
			if want := fmt.Sprintf("msg-%d", i); got != want {
				t.Fatalf("Healthy subscriber: expected %q, got %q", want, got)
			}
		case <-time.After(time.Second):
			t.Fatal("Healthy subscriber starved by stalled sibling")
		}
	}

	stalled.Cancel()
	healthy.Cancel()
}

// TestCancelIsIdempotent verifies that cancelling a subscription twice is
// safe and that cancellation closes the channel.
func TestCancelIsIdempotent(t *testing.T) {
	hub := NewHub(8)
	sub := hub.Subscribe()

	sub.Cancel()
	sub.Cancel()

	if _, ok := <-sub.C(); ok {
		t.Error("Expected closed channel after cancel")
	}
	if count := hub.SubscriberCount(); count != 0 {
		t.Errorf("Expected 0 subscribers after cancel, got %d", count)
	}

	// The hub keeps working for everyone else.
	hub.Publish([]byte("still alive"))
}

// TestCloseCancelsAllSubscriptions verifies hub shutdown semantics.
func TestCloseCancelsAllSubscriptions(t *testing.T) {
	hub := NewHub(8)
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Close()

	for _, sub := range []*Subscription{a, b} {
		if _, ok := <-sub.C(); ok {
			t.Error("Expected closed subscription after hub close")
		}
	}

	late := hub.Subscribe()
	if _, ok := <-late.C(); ok {
		t.Error("Expected subscription on closed hub to be already closed")
	}
	late.Cancel()

	hub.Publish([]byte("ignored"))
	hub.Close()
}
