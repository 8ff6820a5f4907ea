// Package model keeps the presentation state derived from engine snapshots
// and bus events.
package model

import (
	"slices"
	"sync"

	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/status"
	intsync "github.com/andrejr971/chat/internal/sync"
)

// Change tells which parts of the screen an event invalidated.
type Change uint8

const (
	ChangeThread Change = 1 << iota
	ChangeChats
	ChangeState
)

// Has reports whether c includes all of o.
func (c Change) Has(o Change) bool { return c&o == o }

// ViewModel is the presentation copy of the open chat. It is updated from
// the bus goroutine and read from the UI goroutine.
type ViewModel struct {
	mu sync.RWMutex

	chats    []chat.Summary
	chatID   string
	messages []chat.Message
	index    map[string]int
	state    status.State
	online   bool
}

// NewViewModel creates an empty view model.
func NewViewModel() *ViewModel {
	return &ViewModel{
		index: make(map[string]int),
		state: status.Idle,
	}
}

// Apply folds one bus event into the view state.
func (vm *ViewModel) Apply(evt bus.Event) Change {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	switch evt.Kind {
	case bus.ChatOpened:
		id, _ := evt.Payload.(string)
		if id != vm.chatID {
			vm.chatID = id
			vm.clearLocked()
		}
		return ChangeThread | ChangeState
	case bus.MessagesReset:
		id, _ := evt.Payload.(string)
		if id == vm.chatID {
			vm.clearLocked()
			return ChangeThread
		}
	case bus.MessageUpserted, bus.MessageStatus:
		m, ok := evt.Payload.(chat.Message)
		if !ok || m.ChatID != vm.chatID {
			return 0
		}
		vm.upsertLocked(m)
		return ChangeThread
	case bus.ConnStatusChanged:
		if sc, ok := evt.Payload.(status.StatusChange); ok {
			vm.state = sc.To
			return ChangeState
		}
	case bus.ConnConnected:
		vm.online = true
		return ChangeState | ChangeThread
	case bus.ConnDisconnected:
		vm.online = false
		return ChangeState | ChangeThread
	case bus.UnreadChanged, bus.OutboxResent:
		return ChangeChats
	}
	return 0
}

// SetSnapshot replaces the thread with the engine's copy, if it is still
// about the chat being shown.
func (vm *ViewModel) SetSnapshot(s intsync.Snapshot) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if s.ChatID != vm.chatID {
		return false
	}
	vm.clearLocked()
	for _, m := range s.Messages {
		vm.upsertLocked(m)
	}
	vm.online = s.Connected
	return true
}

// SetChats replaces the chat list.
func (vm *ViewModel) SetChats(chats []chat.Summary) {
	vm.mu.Lock()
	vm.chats = chats
	vm.mu.Unlock()
}

// Chats returns a copy of the chat list.
func (vm *ViewModel) Chats() []chat.Summary {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.chats)
}

// Unread sums the unread counters of the chat list.
func (vm *ViewModel) Unread() int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	n := 0
	for _, c := range vm.chats {
		n += c.UnreadCount
	}
	return n
}

// ChatID returns the chat the thread belongs to.
func (vm *ViewModel) ChatID() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.chatID
}

// Messages returns a copy of the thread in arrival order.
func (vm *ViewModel) Messages() []chat.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.messages)
}

// State returns the socket state and whether the chat is online.
func (vm *ViewModel) State() (status.State, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state, vm.online
}

func (vm *ViewModel) upsertLocked(m chat.Message) {
	if i, ok := vm.index[m.ID]; ok {
		vm.messages[i] = m
		return
	}
	vm.index[m.ID] = len(vm.messages)
	vm.messages = append(vm.messages, m)
}

func (vm *ViewModel) clearLocked() {
	vm.messages = nil
	clear(vm.index)
}
