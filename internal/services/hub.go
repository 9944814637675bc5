package services

import (
	"context"
	"sync"
	"time"
)

// StreamMessage is one frame on the live stream: a tap, or a keepalive so
// idle connections survive transport timeouts.
type StreamMessage struct {
	Type string     `json:"type"`
	Tap  *TapResult `json:"tap,omitempty"`
}

const (
	MessageTap       = "tap"
	MessageKeepalive = "keepalive"
)

// Subscriber is one live-stream listener. Messages arrive on C in publish
// order; the channel is closed when the subscriber is removed.
type Subscriber struct {
	ch chan StreamMessage
}

func (s *Subscriber) C() <-chan StreamMessage {
	return s.ch
}

// TapHub fans processed taps out to all live subscribers. A subscriber whose
// buffer is full is evicted rather than allowed to block the publisher; the
// stream is best effort, at most once per connected client.
type TapHub struct {
	mu        sync.Mutex
	subs      map[*Subscriber]struct{}
	bufSize   int
	keepalive time.Duration
}

func NewTapHub(bufSize int, keepalive time.Duration) *TapHub {
	if bufSize <= 0 {
		bufSize = 16
	}
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &TapHub{
		subs:      map[*Subscriber]struct{}{},
		bufSize:   bufSize,
		keepalive: keepalive,
	}
}

func (h *TapHub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan StreamMessage, h.bufSize)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the subscriber and closes its channel. Safe to call
// more than once and for subscribers already evicted.
func (h *TapHub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
}

// Publish delivers the tap to every current subscriber. Never blocks and
// never fails: a subscriber that cannot accept the frame is dropped.
func (h *TapHub) Publish(tap *TapResult) {
	if h == nil || tap == nil {
		return
	}
	h.broadcast(StreamMessage{Type: MessageTap, Tap: tap})
}

func (h *TapHub) broadcast(msg StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		select {
		case sub.ch <- msg:
		default:
			delete(h.subs, sub)
			close(sub.ch)
		}
	}
}

// Run emits periodic keepalives until the context is cancelled.
func (h *TapHub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.broadcast(StreamMessage{Type: MessageKeepalive})
		case <-ctx.Done():
			return
		}
	}
}

// Subscribers reports the current listener count.
func (h *TapHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
