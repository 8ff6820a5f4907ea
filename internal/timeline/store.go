// Package timeline holds the in-memory message collection of the open chat.
package timeline

import "github.com/andrejr971/chat/internal/chat"

// Store is the authoritative collection of messages for the active chat,
// keyed by message id and kept in arrival order.
//
// Store is not safe for concurrent use; the sync engine is its only writer.
type Store struct {
	order []string
	byID  map[string]*chat.Message
}

// New creates an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*chat.Message)}
}

// Upsert merges m into an existing entry with the same id, or appends it.
// Returns true when the id was not present before.
func (s *Store) Upsert(m chat.Message) bool {
	if existing, ok := s.byID[m.ID]; ok {
		existing.Merge(m)
		return false
	}
	cp := m
	s.byID[m.ID] = &cp
	s.order = append(s.order, m.ID)
	return true
}

// ApplyStatus overwrites the status and counters of a known message.
// Unknown ids are ignored: a status update may race the message itself.
func (s *Store) ApplyStatus(messageID string, status chat.Status, delivered, seen, total int) bool {
	m, ok := s.byID[messageID]
	if !ok {
		return false
	}
	m.Status = status
	m.DeliveredCount = delivered
	m.SeenCount = seen
	m.TotalParticipants = total
	return true
}

// Get returns a copy of the message with the given id.
func (s *Store) Get(id string) (chat.Message, bool) {
	m, ok := s.byID[id]
	if !ok {
		return chat.Message{}, false
	}
	return *m, true
}

// Messages returns a snapshot in arrival order.
func (s *Store) Messages() []chat.Message {
	out := make([]chat.Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	return len(s.order)
}

// Reset drops every message.
func (s *Store) Reset() {
	s.order = nil
	s.byID = make(map[string]*chat.Message)
}
