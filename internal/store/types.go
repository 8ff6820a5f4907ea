package store

// Outbox entry states.
const (
	OutboxQueued = "queued"
	OutboxSent   = "sent"
	OutboxFailed = "failed"
)

// OutboxEntry is a message that could not be written to the socket.
type OutboxEntry struct {
	ID           int64
	MsgID        string
	ChatID       string
	Content      string
	Status       string
	ErrorMessage string
	CreatedAt    int64
}

// SearchResult is an archived message matching a search query.
type SearchResult struct {
	ChatID     string
	MsgID      string
	SenderName string
	Content    string
	CreatedAt  int64
}
