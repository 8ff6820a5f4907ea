package bus

import "time"

// Event kinds published for the presentation layer. Subscribers filter by
// namespace prefix ("conn.", "message.", ...).
const (
	ConnConnected     = "conn.connected"
	ConnDisconnected  = "conn.disconnected"
	ConnStatusChanged = "conn.status_changed"
	ChatNotice        = "chat.notice"
	ChatOpened        = "chat.opened"
	MessageUpserted   = "message.upserted"
	MessageStatus     = "message.status"
	MessagesReset     = "message.reset"
	OutboxResent      = "message.resent"
	MessagesLoaded    = "message.history"
	UnreadChanged     = "unread.changed"
)

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
