package chat

import "time"

// Identity is the (user, username) pair a client connects as.
type Identity struct {
	UserID   string
	Username string
}

// Message is a chat message as seen by this client. Zero-valued fields mean
// "not observed" when merging.
type Message struct {
	ID                string    `json:"id"`
	ChatID            string    `json:"chatId"`
	SenderID          string    `json:"senderId"`
	SenderName        string    `json:"senderName"`
	Content           string    `json:"content"`
	CreatedAt         time.Time `json:"createdAt"`
	Status            Status    `json:"status"`
	DeliveredCount    int       `json:"deliveredCount"`
	SeenCount         int       `json:"seenCount"`
	TotalParticipants int       `json:"totalParticipants"`
}

// Merge overwrites m with every non-zero field of incoming. Fields absent from
// incoming are kept.
func (m *Message) Merge(incoming Message) {
	if incoming.ChatID != "" {
		m.ChatID = incoming.ChatID
	}
	if incoming.SenderID != "" {
		m.SenderID = incoming.SenderID
	}
	if incoming.SenderName != "" {
		m.SenderName = incoming.SenderName
	}
	if incoming.Content != "" {
		m.Content = incoming.Content
	}
	if !incoming.CreatedAt.IsZero() {
		m.CreatedAt = incoming.CreatedAt
	}
	if incoming.Status != "" {
		m.Status = incoming.Status
	}
	if incoming.DeliveredCount != 0 {
		m.DeliveredCount = incoming.DeliveredCount
	}
	if incoming.SeenCount != 0 {
		m.SeenCount = incoming.SeenCount
	}
	if incoming.TotalParticipants != 0 {
		m.TotalParticipants = incoming.TotalParticipants
	}
}

// IsFrom reports whether the message was authored by userID.
func (m *Message) IsFrom(userID string) bool {
	return userID != "" && m.SenderID == userID
}

// Summary is one row of the chat list.
type Summary struct {
	ID                 string
	Name               string
	TotalMembers       int
	UnreadCount        int
	LastMessageID      string
	LastMessagePreview string
	LastMessageAt      int64
}
