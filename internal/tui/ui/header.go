package ui

import (
	"fmt"

	"github.com/rivo/tview"
)

// ProfileData is what the header shows about the running profile.
type ProfileData struct {
	Profile  string
	Username string
	Server   string
	Chat     string
	State    string
	Online   bool
	Chats    int
	Unread   int
}

// ProfileInfo displays profile and connection metadata in the header.
type ProfileInfo struct {
	*tview.TextView
	theme *Theme
}

// NewProfileInfo creates a new profile info panel.
func NewProfileInfo(theme *Theme) *ProfileInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &ProfileInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders d.
func (pi *ProfileInfo) Update(d ProfileData) {
	pi.Clear()

	fg := Tag(pi.theme.FgColor)
	val := Tag(pi.theme.CounterColor)
	stateColor := Tag(pi.theme.OfflineColor)
	if d.Online {
		stateColor = Tag(pi.theme.OnlineColor)
	}
	chat := d.Chat
	if chat == "" {
		chat = "-"
	}

	_, _ = fmt.Fprintf(pi,
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Server:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Chat:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Socket:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Unread:[-:-:-]  [%s]%d/%d[-]",
		fg, val, tview.Escape(d.Profile),
		fg, val, tview.Escape(d.Username),
		fg, val, tview.Escape(d.Server),
		fg, val, tview.Escape(chat),
		fg, stateColor, d.State,
		fg, val, d.Unread, d.Chats,
	)
}

// Logo displays the compact application logo.
type Logo struct {
	*tview.TextView
}

// NewLogo creates a new logo component.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	title := Tag(theme.TitleColor)
	_, _ = fmt.Fprintf(tv,
		"[%s::b]┌─┐┬ ┬┌─┐┌┬┐[-:-:-]\n"+
			"[%s::b]│  ├─┤├─┤ │ [-:-:-]\n"+
			"[%s::b]└─┘┴ ┴┴ ┴ ┴ [-:-:-]\n"+
			"[%s]dev client[-:-:-]",
		title, title, title, Tag(theme.FgColor),
	)
	return &Logo{TextView: tv}
}
