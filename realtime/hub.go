package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"chronoguess/core"
)

// Filter selects which events a subscriber receives. A nil Filter accepts all.
type Filter func(core.Event) bool

// ForUser accepts only events about user.
func ForUser(user core.UserID) Filter {
	return func(e core.Event) bool { return e.UserID == user }
}

// ForSession accepts only events from one session.
func ForSession(session core.SessionID) Filter {
	return func(e core.Event) bool { return e.SessionID == session }
}

type subscriber struct {
	ch     chan core.Event
	filter Filter
}

// Hub is a simple pub/sub for fanning game events out to live connections.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

func (h *Hub) Subscribe(buffer int, filter Filter) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	ch := make(chan core.Event, buffer)
	h.subs[id] = subscriber{ch: ch, filter: filter}
	return id, ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	// hold the read lock while sending so Unsubscribe cannot close a channel
	// mid-send; sends never block
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.filter != nil && !s.filter(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default: /* drop if full */
		}
	}
}

// OnEvent lets the hub be attached to the game service as a hook.
func (h *Hub) OnEvent(ev core.Event) { h.Broadcast(context.Background(), ev) }

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
