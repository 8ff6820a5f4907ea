package views

import (
	"fmt"
	"strings"

	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/rivo/tview"
)

// Member is a chat member as shown in the details page.
type Member struct {
	ID       string
	Username string
}

// ChatInfo displays details and members of a chat.
type ChatInfo struct {
	*tview.TextView
	theme *ui.Theme
}

// NewChatInfo creates a new chat info view.
func NewChatInfo(theme *ui.Theme) *ChatInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &ChatInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements ui.Component.
func (ci *ChatInfo) Name() string { return "Details" }

// Hints implements ui.Component.
func (ci *ChatInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

// Update renders s and its members. A nil members slice means they could
// not be loaded.
func (ci *ChatInfo) Update(s chat.Summary, members []Member) {
	ci.Clear()
	fg := ui.Tag(ci.theme.FgColor)
	val := ui.Tag(ci.theme.CounterColor)

	last := formatMillis(s.LastMessageAt)
	if last == "" {
		last = "-"
	}
	row := func(label, value string) string {
		return fmt.Sprintf(" [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label, val, tview.Escape(value))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(row("Name:", singleLine(s.Name)))
	b.WriteString(row("ID:", s.ID))
	b.WriteString(row("Members:", fmt.Sprintf("%d", s.TotalMembers)))
	b.WriteString(row("Unread:", fmt.Sprintf("%d", s.UnreadCount)))
	b.WriteString(row("Last active:", last))
	b.WriteString(row("Last message:", singleLine(s.LastMessagePreview)))

	b.WriteString(fmt.Sprintf("\n [%s::b]Members[-:-:-]\n", fg))
	switch {
	case members == nil:
		b.WriteString("  -\n")
	case len(members) == 0:
		b.WriteString("  (none)\n")
	default:
		for _, m := range members {
			fmt.Fprintf(&b, "  %s [::d]%s[-:-:-]\n", tview.Escape(singleLine(m.Username)), tview.Escape(m.ID))
		}
	}

	_, _ = fmt.Fprint(ci, b.String())
	ci.SetTitle(fmt.Sprintf(" %s ", tview.Escape(singleLine(s.Name))))
}
