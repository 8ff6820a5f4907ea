package views

import (
	"fmt"
	"strings"

	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/rivo/tview"
)

// helpSections is the key and command reference.
var helpSections = []struct {
	title string
	rows  [][2]string
}{
	{"Global", [][2]string{
		{":", "Command mode"},
		{"Esc", "Cancel / go back"},
		{"?", "Help"},
		{"Ctrl-C", "Quit"},
	}},
	{"Chats", [][2]string{
		{"Enter", "Open chat"},
		{"/", "Filter chats"},
		{"1-9", "Open Nth chat"},
		{"r", "Refresh from server"},
	}},
	{"Chat", [][2]string{
		{"i", "Focus composer"},
		{"Enter", "Send (in composer)"},
		{"d", "Chat details"},
	}},
	{"Commands", [][2]string{
		{":open <id>", "Open a chat"},
		{":join <id>", "Join and open a chat"},
		{":new <name>", "Create a chat"},
		{":search <text>", "Search cached messages"},
		{":reconnect", "Reconnect to the open chat"},
		{":disconnect", "Leave the open chat"},
		{":quit / :q", "Quit"},
	}},
}

// HelpView displays the key binding reference.
type HelpView struct {
	*tview.TextView
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	_, _ = fmt.Fprint(tv, renderHelp(ui.Tag(theme.MenuKeyColor)))
	return &HelpView{TextView: tv}
}

// Name implements ui.Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements ui.Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{{Key: "Esc", Description: "Back"}}
}

func renderHelp(keyColor string) string {
	var b strings.Builder
	for _, s := range helpSections {
		fmt.Fprintf(&b, "\n  [::b]%s[-:-:-]\n\n", s.title)
		for _, r := range s.rows {
			fmt.Fprintf(&b, "  [%s]%-16s[-:-:-] %s\n", keyColor, tview.Escape(r[0]), r[1])
		}
	}
	return b.String()
}
