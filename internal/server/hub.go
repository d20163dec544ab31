// Package server coordinates broadcast fan-out for the Coscribe WebSocket
// system via the Hub type.
package server

import (
	"log"
	"sync"
)

// Hub fans serialized envelopes out to every subscribed session. Each
// subscriber owns an independent bounded queue; a subscriber that falls
// behind loses its oldest buffered messages rather than stalling the
// publisher or the other subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	closed      bool
}

// Subscription is one session's private receiver on the Hub. It only carries
// messages published after the subscription was created; there is no replay.
type Subscription struct {
	hub  *Hub
	ch   chan []byte
	once sync.Once
}

// NewHub creates a Hub whose subscribers each buffer up to bufferSize
// messages. A non-positive size defers to the active configuration at
// subscription time.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a fresh receiver with the hub. Subscribing to a closed
// hub returns an already-cancelled subscription whose channel is closed.
func (h *Hub) Subscribe() *Subscription {
	size := h.bufferSize
	if size <= 0 {
		size = currentConfig().SubscriberBuffer
	}
	sub := &Subscription{hub: h, ch: make(chan []byte, size)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}

	h.subscribers[sub] = struct{}{}
	return sub
}

// Publish delivers message to every current subscriber. Publishing with zero
// subscribers succeeds and does nothing. The call never blocks: when a
// subscriber's queue is full, its oldest buffered message is discarded to
// make room for the new one.
func (h *Hub) Publish(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	for sub := range h.subscribers {
		select {
		case sub.ch <- message:
			continue
		default:
		}

		// Queue full: drop the oldest entry, then retry once. The second
		// attempt can still lose the race against a concurrent publisher;
		// the message is then dropped for this subscriber only.
		select {
		case <-sub.ch:
			metricMessagesDropped.Inc()
		default:
		}
		select {
		case sub.ch <- message:
		default:
			metricMessagesDropped.Inc()
		}
	}
	metricBroadcastsTotal.Inc()
}

// SubscriberCount reports how many subscriptions are currently registered.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers)
}

// Close shuts the hub down, cancelling every active subscription. Publish
// becomes a no-op afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[*Subscription]struct{})
	h.mu.Unlock()

	for _, sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
	log.Printf("Hub closed, cancelled %d subscriptions", len(subs))
}

// C returns the receive side of the subscription. The channel is closed when
// the subscription is cancelled or the hub shuts down.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Cancel removes the subscription from the hub and closes its channel.
// Cancelling more than once is safe.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subscribers, s)
		s.hub.mu.Unlock()
		close(s.ch)
	})
}
