package views

import (
	"time"

	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
)

// glyph returns the delivery mark of s. Unknown statuses have none.
func glyph(s chat.Status) string {
	switch s {
	case chat.StatusPending:
		return "◷"
	case chat.StatusSent:
		return "✓"
	case chat.StatusDeliveredPartial:
		return "✓◌"
	case chat.StatusDeliveredAll:
		return "✓✓"
	case chat.StatusSeenPartial:
		return "◉◌"
	case chat.StatusSeenAll:
		return "◉◉"
	default:
		return ""
	}
}

func glyphColor(theme *ui.Theme, s chat.Status) tcell.Color {
	switch s.Phase() {
	case chat.PhaseSent:
		return theme.SentColor
	case chat.PhaseDelivered:
		return theme.DeliveredColor
	case chat.PhaseSeen:
		return theme.SeenColor
	default:
		return theme.PendingColor
	}
}

// statusMark renders the colored delivery mark of s, or "" when unknown.
func statusMark(theme *ui.Theme, s chat.Status) string {
	g := glyph(s)
	if g == "" {
		return ""
	}
	return "[" + ui.Tag(glyphColor(theme, s)) + "]" + g + "[-]"
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("02/01")
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return formatTime(time.UnixMilli(ms))
}
