package api

import (
	"strings"
	"time"

	"github.com/andrejr971/chat/internal/chat"
)

// User is a registered chat user.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Chat is a chat room as listed by the server.
type Chat struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TotalMembers int       `json:"total_members"`
	CreatedAt    Timestamp `json:"created_at"`
	UpdatedAt    Timestamp `json:"updated_at"`
}

// Summary converts c to a chat list row.
func (c Chat) Summary() chat.Summary {
	return chat.Summary{ID: c.ID, Name: c.Name, TotalMembers: c.TotalMembers}
}

// Message is a message of the history endpoint.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt Timestamp `json:"created_at"`
	Sender    *User     `json:"sender"`
}

// ToChat converts a history message to the socket representation.
func (m Message) ToChat() chat.Message {
	out := chat.Message{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Status:    chat.Status(m.Status),
		CreatedAt: m.CreatedAt.Time,
	}
	if m.Sender != nil {
		out.SenderName = m.Sender.Username
	}
	return out
}

// Timestamp decodes the server's ISO-8601 datetimes, with or without a zone.
// Naive values are read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	var err error
	for _, layout := range timestampLayouts {
		var parsed time.Time
		if parsed, err = time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return err
}
