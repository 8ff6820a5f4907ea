package sync

import "github.com/andrejr971/chat/internal/chat"

// Intents posted by the presentation layer. Transport events
// (transport.Opened, transport.Frame, transport.Closed) are posted by the
// session itself.

// ConnectIntent binds the client to a chat, superseding any current binding.
type ConnectIntent struct {
	ChatID string
}

// DisconnectIntent tears the current binding down.
type DisconnectIntent struct{}

// SendIntent sends a new message to the bound chat.
type SendIntent struct {
	Content string
}

// VisibilityChanged reports whether the chat surface can be seen by the user.
type VisibilityChanged struct {
	Visible bool
}

// HistoryLoaded carries the result of the history fetch started on connect.
type HistoryLoaded struct {
	ChatID   string
	Messages []chat.Message
	Err      error
}

type snapshotRequest struct {
	reply chan Snapshot
}

// Snapshot is a consistent copy of the engine state.
type Snapshot struct {
	ChatID      string
	Connected   bool
	Visible     bool
	Messages    []chat.Message
	PendingSeen int
}

// Bus payloads.

// Notice is a user-facing message published as bus.ChatNotice.
type Notice struct {
	ChatID string
	Text   string
	Err    error
}

// ConnChange is the payload of bus.ConnConnected and bus.ConnDisconnected.
type ConnChange struct {
	ChatID string
	Err    error
}

// UnreadChange is the payload of bus.UnreadChanged.
type UnreadChange struct {
	ChatID string
	Reset  bool
}

// HistoryResult is the payload of bus.MessagesLoaded.
type HistoryResult struct {
	ChatID    string
	Count     int
	FromCache bool
}

// Localized notices shown to the user.
const (
	NoticeNoConnection  = "Sem conexão com o servidor."
	NoticeConnectFailed = "Falha ao conectar."
	NoticeSendFailed    = "Falha ao enviar a mensagem."
	NoticeHistoryFailed = "Não foi possível carregar o histórico."
	NoticeNoChat        = "Nenhum chat aberto."
)
