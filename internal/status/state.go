package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/andrejr971/chat/internal/bus"
)

// State is the lifecycle state of the chat socket.
type State string

const (
	Idle       State = "IDLE"
	Connecting State = "CONNECTING"
	Open       State = "OPEN"
	Closed     State = "CLOSED"
	Error      State = "ERROR"
)

// validTransitions defines allowed state transitions. Connecting may restart
// itself when a new chat supersedes a pending dial.
var validTransitions = map[State][]State{
	Idle:       {Connecting},
	Connecting: {Connecting, Open, Closed, Error},
	Open:       {Connecting, Closed, Error},
	Closed:     {Connecting, Idle},
	Error:      {Connecting, Idle},
}

// Machine tracks and enforces socket state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Idle.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.ConnStatusChanged, StatusChange{From: from, To: to})
	return nil
}

// StatusChange is the payload for status change events.
type StatusChange struct {
	From State
	To   State
}
