package tui

import (
	"sync"

	"github.com/gdamore/tcell/v2"
)

// surface decides whether the open chat can be seen: its page is in front
// and the terminal window has focus. Every change of the combined value is
// reported through post, in order.
type surface struct {
	mu      sync.Mutex
	inFront bool
	focused bool
	visible bool
	post    func(visible bool)
}

// newSurface starts focused and visible, which is how the engine starts.
func newSurface(post func(visible bool)) *surface {
	return &surface{focused: true, visible: true, post: post}
}

func (s *surface) setInFront(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFront = v
	s.update()
}

func (s *surface) setFocused(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = v
	s.update()
}

func (s *surface) update() {
	visible := s.inFront && s.focused
	if visible == s.visible {
		return
	}
	s.visible = visible
	s.post(visible)
}

// focusScreen asks the terminal for focus reports and hands them to
// onFocus before tview sees the event.
type focusScreen struct {
	tcell.Screen
	onFocus func(focused bool)
}

func newFocusScreen(s tcell.Screen, onFocus func(bool)) *focusScreen {
	return &focusScreen{Screen: s, onFocus: onFocus}
}

func (s *focusScreen) Init() error {
	if err := s.Screen.Init(); err != nil {
		return err
	}
	s.Screen.EnableFocus()
	return nil
}

func (s *focusScreen) PollEvent() tcell.Event {
	ev := s.Screen.PollEvent()
	if f, ok := ev.(*tcell.EventFocus); ok {
		s.onFocus(f.Focused)
	}
	return ev
}
