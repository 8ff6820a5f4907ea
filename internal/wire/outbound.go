package wire

import (
	"encoding/json"
	"fmt"

	"github.com/andrejr971/chat/internal/chat"
)

// Join announces the user to the chat right after the socket opens.
type Join struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	ChatID   string `json:"chat_id"`
}

// Ack acknowledges a message as delivered or seen by a user.
type Ack struct {
	MessageID string         `json:"message_id"`
	UserID    string         `json:"user_id"`
	Status    chat.AckStatus `json:"status"`
}

// Encode wraps payload in a typed envelope.
func Encode(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return json.Marshal(Frame{Type: typ, Payload: raw})
}

// EncodeJoin builds a join frame.
func EncodeJoin(id chat.Identity, chatID string) ([]byte, error) {
	return Encode(TypeJoin, Join{UserID: id.UserID, Username: id.Username, ChatID: chatID})
}

// EncodeMessage builds an outbound message frame. Counters are always sent zeroed.
func EncodeMessage(m chat.Message) ([]byte, error) {
	m.DeliveredCount = 0
	m.SeenCount = 0
	m.TotalParticipants = 0
	return Encode(TypeMessage, m)
}

// EncodeAck builds an ack frame.
func EncodeAck(messageID, userID string, status chat.AckStatus) ([]byte, error) {
	return Encode(TypeAck, Ack{MessageID: messageID, UserID: userID, Status: status})
}
