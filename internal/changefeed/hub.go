// Package changefeed delivers row-level change notifications from the
// database to in-process subscribers.
package changefeed

import (
	"fmt"
	"sync"
)

// EventType is the kind of row change.
type EventType string

// Event types, matching the trigger's TG_OP values.
const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Change is one row change. Row carries the key columns of the changed row.
type Change struct {
	Table string         `json:"table"`
	Type  EventType      `json:"type"`
	Row   map[string]any `json:"row"`
}

// Value returns a column of Row formatted as a string, or "" if absent.
func (c Change) Value(column string) string {
	v, ok := c.Row[column]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Filter selects changes on Table. If Column is set, only changes whose
// Column equals Value match.
type Filter struct {
	Table  string
	Column string
	Value  string
}

// Match reports whether c passes the filter.
func (f Filter) Match(c Change) bool {
	if f.Table != c.Table {
		return false
	}
	if f.Column == "" {
		return true
	}
	return c.Value(f.Column) == f.Value
}

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 16

// Hub fans changes out to subscriptions. Publish never blocks: a change is
// dropped for a subscriber whose buffer is full.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	buffer int
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: DefaultBuffer,
	}
}

// Subscribe registers a subscription for changes matching f.
func (h *Hub) Subscribe(f Filter) *Subscription {
	s := &Subscription{
		hub:    h,
		filter: f,
		ch:     make(chan Change, h.buffer),
	}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Publish delivers c to every matching subscription and returns how many
// received it.
func (h *Hub) Publish(c Change) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for s := range h.subs {
		if !s.filter.Match(c) {
			continue
		}
		select {
		case s.ch <- c:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Subscription receives changes matching its filter until closed.
type Subscription struct {
	hub    *Hub
	filter Filter
	ch     chan Change
}

// Events returns the channel changes arrive on. It is closed by Close.
func (s *Subscription) Events() <-chan Change {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}
