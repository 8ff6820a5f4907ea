package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// Menu displays keyboard shortcut hints in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
	rows  int
}

// NewMenu creates a menu with the given number of rows per column.
func NewMenu(theme *Theme, rows int) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	if rows <= 0 {
		rows = 1
	}
	return &Menu{
		TextView: tv,
		theme:    theme,
		rows:     rows,
	}
}

// Update renders hints column by column.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	cols := (len(hints) + m.rows - 1) / m.rows
	keyColor := Tag(m.theme.MenuKeyColor)
	for r := 0; r < m.rows; r++ {
		for c := 0; c < cols; c++ {
			i := c*m.rows + r
			if i >= len(hints) {
				break
			}
			h := hints[i]
			_, _ = fmt.Fprintf(m, "[%s::b]%-9s[-:-:-] %-14s", keyColor, "<"+h.Key+">", h.Description)
		}
		_, _ = fmt.Fprint(m, "\n")
	}
}
