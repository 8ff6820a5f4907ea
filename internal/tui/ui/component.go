package ui

// MenuHint describes a keyboard shortcut for display in the menu.
type MenuHint struct {
	Key         string
	Description string
}

// Component is a page that can be pushed on the stack.
type Component interface {
	// Name is the breadcrumb label.
	Name() string
	Hints() []MenuHint
}
