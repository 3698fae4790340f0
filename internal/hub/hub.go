package hub

import (
	"log"
	"sync"

	"github.com/atikulmunna/fleetwatch/internal/model"
)

const subscriberBuffer = 64

// Hub receives frames from the scheduler and broadcasts them to all subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan model.Frame]struct{}
	dropped     int64
	closed      bool
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subscribers: make(map[chan model.Frame]struct{})}
}

// Subscribe returns a buffered channel that will receive frames.
// Multiple consumers can subscribe; each gets a copy of every frame.
func (h *Hub) Subscribe() <-chan model.Frame {
	ch := make(chan model.Frame, subscriberBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(sub <-chan model.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		if ch == sub {
			delete(h.subscribers, ch)
			close(ch)
			return
		}
	}
}

// Dropped returns the total number of frames dropped due to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Publish sends a frame to all subscribers without blocking.
// If a subscriber's channel is full, the frame is dropped for that subscriber.
func (h *Hub) Publish(frame model.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	for ch := range h.subscribers {
		select {
		case ch <- frame:
		default:
			h.dropped++
			if h.dropped%100 == 1 {
				log.Printf("hub: dropped frame for slow consumer (total dropped: %d)", h.dropped)
			}
		}
	}
}

// Close closes all subscriber channels. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
