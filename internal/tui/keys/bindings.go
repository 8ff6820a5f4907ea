// Package keys maps key events to actions per page.
package keys

import (
	"slices"

	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
)

// Action represents a keybinding action.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Label   string // shown as <Label> in the menu; empty hides the action
	Help    string
	Handler func()
}

// Matches returns true if the event matches this action.
func (a *Action) Matches(ev *tcell.EventKey) bool {
	return a.match(ev.Key(), ev.Rune())
}

func (a *Action) match(key tcell.Key, r rune) bool {
	if a.Key != tcell.KeyRune {
		return key == a.Key
	}
	return key == tcell.KeyRune && r == a.Rune
}

// Registry holds keybindings in registration order, globally and per page.
type Registry struct {
	global []*Action
	pages  map[string][]*Action
}

// NewRegistry creates a new keybinding registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string][]*Action)}
}

// AddGlobal registers a binding active on every page.
func (r *Registry) AddGlobal(a *Action) {
	r.global = append(r.global, a)
}

// AddPage registers a binding active on one page.
func (r *Registry) AddPage(page string, a *Action) {
	r.pages[page] = append(r.pages[page], a)
}

// Hints returns the menu entries for page: page bindings first, then global.
func (r *Registry) Hints(page string) []ui.MenuHint {
	var hints []ui.MenuHint
	for _, a := range slices.Concat(r.pages[page], r.global) {
		if a.Label != "" {
			hints = append(hints, ui.MenuHint{Key: a.Label, Description: a.Help})
		}
	}
	return hints
}

// HandleEvent runs the first action of page, then of the global set, that
// matches ev. It reports whether one matched.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	return r.dispatch(page, ev.Key(), ev.Rune())
}

func (r *Registry) dispatch(page string, key tcell.Key, ch rune) bool {
	for _, set := range [][]*Action{r.pages[page], r.global} {
		for _, a := range set {
			if a.match(key, ch) {
				a.Handler()
				return true
			}
		}
	}
	return false
}
