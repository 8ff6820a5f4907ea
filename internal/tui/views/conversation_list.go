package views

import (
	"fmt"
	"strings"

	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ConversationList is the chat list, most recent activity first.
type ConversationList struct {
	*tview.Table
	theme   *ui.Theme
	chats   []chat.Summary
	visible []chat.Summary
	filter  string
}

// NewConversationList creates a new conversation list table.
func NewConversationList(theme *ui.Theme) *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Chats ")
	table.SetTitleColor(theme.TitleColor)

	return &ConversationList{
		Table: table,
		theme: theme,
	}
}

// Name implements ui.Component.
func (cl *ConversationList) Name() string { return "Chats" }

// Hints implements ui.Component.
func (cl *ConversationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
	}
}

// Update replaces the chat list.
func (cl *ConversationList) Update(chats []chat.Summary) {
	cl.chats = chats
	cl.render()
}

// SetFilter sets the filter text; "" clears it.
func (cl *ConversationList) SetFilter(filter string) {
	cl.filter = strings.TrimSpace(filter)
	cl.render()
}

// Filter returns the active filter.
func (cl *ConversationList) Filter() string {
	return cl.filter
}

func (cl *ConversationList) matches(s chat.Summary) bool {
	if cl.filter == "" {
		return true
	}
	f := strings.ToLower(cl.filter)
	return strings.Contains(strings.ToLower(s.Name), f) ||
		strings.Contains(strings.ToLower(s.LastMessagePreview), f) ||
		strings.HasPrefix(strings.ToLower(s.ID), f)
}

func (cl *ConversationList) render() {
	selected := cl.SelectedChat()
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" MEMBERS", 0},
	}
	for col, h := range headers {
		cl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	cl.visible = cl.visible[:0]
	for _, s := range cl.chats {
		if cl.matches(s) {
			cl.visible = append(cl.visible, s)
		}
	}

	for i, s := range cl.visible {
		row := i + 1
		name := singleLine(s.Name)
		if name == "" {
			name = s.ID
		}
		nameColor := cl.theme.FgColor
		if s.UnreadCount > 0 {
			name = fmt.Sprintf("(%d) %s", s.UnreadCount, name)
			nameColor = cl.theme.UnreadColor
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(name)).SetExpansion(1).SetTextColor(nameColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(singleLine(s.LastMessagePreview))).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(formatMillis(s.LastMessageAt)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		cl.SetCell(row, 3, tview.NewTableCell(fmt.Sprintf("%d", s.TotalMembers)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
		if s.ID == selected {
			cl.Select(row, 0)
		}
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Chats (%d/%d) filter: %s ", len(cl.visible), len(cl.chats), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Chats (%d) ", len(cl.chats)))
	}
}

// SelectedChat returns the id of the selected chat, or "".
func (cl *ConversationList) SelectedChat() string {
	row, _ := cl.GetSelection()
	return cl.ChatByIndex(row)
}

// ChatByIndex returns the id of the nth visible chat (1-based).
func (cl *ConversationList) ChatByIndex(n int) string {
	if n < 1 || n > len(cl.visible) {
		return ""
	}
	return cl.visible[n-1].ID
}

// Lookup returns the summary of id from the last update.
func (cl *ConversationList) Lookup(id string) (chat.Summary, bool) {
	for _, s := range cl.chats {
		if s.ID == id {
			return s, true
		}
	}
	return chat.Summary{}, false
}
