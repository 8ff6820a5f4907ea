// Package ack tracks "seen" acknowledgements deferred while the chat is not visible.
package ack

// Tracker is an insertion-ordered set of message ids awaiting a seen ack.
// An id is present iff the message was observed but its seen ack was not sent.
type Tracker struct {
	ids  []string
	seen map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]struct{})}
}

// Add queues id. Returns false if it was already queued.
func (t *Tracker) Add(id string) bool {
	if _, ok := t.seen[id]; ok {
		return false
	}
	t.seen[id] = struct{}{}
	t.ids = append(t.ids, id)
	return true
}

// Has reports whether id is queued.
func (t *Tracker) Has(id string) bool {
	_, ok := t.seen[id]
	return ok
}

// Len returns the number of queued ids.
func (t *Tracker) Len() int {
	return len(t.ids)
}

// Drain returns every queued id in insertion order and empties the tracker.
func (t *Tracker) Drain() []string {
	out := t.ids
	t.Clear()
	return out
}

// Clear drops every queued id.
func (t *Tracker) Clear() {
	t.ids = nil
	t.seen = make(map[string]struct{})
}
