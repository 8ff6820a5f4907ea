package views

import (
	"fmt"
	"strings"

	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/tui/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// MessageThread displays the open chat and a composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	selfID   string
	chatName string
	onSend   func(text string)
}

// NewMessageThread creates a thread view for the user selfID.
func NewMessageThread(theme *ui.Theme, selfID string) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
		selfID:   selfID,
	}

	composer.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mt.onSend == nil {
			return
		}
		text := strings.TrimSpace(composer.GetText())
		if text == "" {
			return
		}
		mt.onSend(text)
		composer.SetText("")
	})

	return mt
}

// Name implements ui.Component.
func (mt *MessageThread) Name() string {
	if mt.chatName != "" {
		return mt.chatName
	}
	return "Chat"
}

// Hints implements ui.Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "Esc", Description: "Back"},
	}
}

// SetChat updates the title for the chat being shown.
func (mt *MessageThread) SetChat(name string, online bool) {
	mt.chatName = name
	state := "offline"
	color := mt.theme.OfflineColor
	if online {
		state, color = "online", mt.theme.OnlineColor
	}
	mt.messages.SetTitle(fmt.Sprintf(" %s [%s]%s[-] ", tview.Escape(name), ui.Tag(color), state))
}

// SetOnSend sets the callback when a message is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// Update redraws msgs, oldest first.
func (mt *MessageThread) Update(msgs []chat.Message) {
	mt.messages.Clear()
	_, _ = fmt.Fprint(mt.messages, mt.render(msgs))
	mt.messages.ScrollToEnd()
}

func (mt *MessageThread) render(msgs []chat.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		sender := sanitizeForTerminal(m.SenderName)
		if sender == "" {
			sender = m.SenderID
		}
		color := mt.theme.OtherSenderColor
		mark := ""
		if m.IsFrom(mt.selfID) {
			sender = "You"
			color = mt.theme.OwnSenderColor
			mark = statusMark(mt.theme, m.Status)
		}

		fmt.Fprintf(&b, "[%s::b]%s[-:-:-] [::d]%s[-:-:-]", ui.Tag(color), tview.Escape(sender), formatTime(m.CreatedAt))
		if mark != "" {
			b.WriteString(" " + mark)
		}
		b.WriteString("\n")
		b.WriteString(tview.Escape(sanitizeForTerminal(m.Content)))
		b.WriteString("\n\n")
	}
	return b.String()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}
