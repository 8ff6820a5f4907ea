package tui

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestSurfaceNeedsPageAndFocus(t *testing.T) {
	var got []bool
	s := newSurface(func(v bool) { got = append(got, v) })

	steps := []struct {
		name  string
		apply func()
		want  []bool
	}{
		{"list in front", func() { s.setInFront(false) }, []bool{false}},
		{"chat in front", func() { s.setInFront(true) }, []bool{false, true}},
		{"focus lost", func() { s.setFocused(false) }, []bool{false, true, false}},
		{"page change while unfocused", func() { s.setInFront(false); s.setInFront(true) }, []bool{false, true, false}},
		{"focus back", func() { s.setFocused(true) }, []bool{false, true, false, true}},
		{"repeat is silent", func() { s.setFocused(true); s.setInFront(true) }, []bool{false, true, false, true}},
	}
	for _, step := range steps {
		step.apply()
		if len(got) != len(step.want) {
			t.Fatalf("%s: posted %v, want %v", step.name, got, step.want)
		}
		for i := range step.want {
			if got[i] != step.want[i] {
				t.Fatalf("%s: posted %v, want %v", step.name, got, step.want)
			}
		}
	}
}

func TestFocusScreenReportsFocus(t *testing.T) {
	var focus []bool
	s := newFocusScreen(tcell.NewSimulationScreen(""), func(v bool) { focus = append(focus, v) })
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	defer s.Fini()

	if err := s.PostEvent(tcell.NewEventFocus(false)); err != nil {
		t.Fatal(err)
	}
	if err := s.PostEvent(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone)); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.PollEvent().(*tcell.EventFocus); !ok {
		t.Fatal("first event should be the focus report")
	}
	if _, ok := s.PollEvent().(*tcell.EventKey); !ok {
		t.Fatal("second event should pass through untouched")
	}
	if len(focus) != 1 || focus[0] {
		t.Errorf("focus reports = %v, want [false]", focus)
	}
}
