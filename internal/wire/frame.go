// Package wire encodes and decodes the JSON frames exchanged over the chat socket.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andrejr971/chat/internal/chat"
)

// Frame discriminators.
const (
	TypeJoin     = "join"
	TypeMessage  = "message"
	TypeAck      = "ack"
	TypeStatus   = "status"
	TypeUserJoin = "user:join"
	TypeTyping   = "typing"
)

// Frame is the envelope of every socket message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is a decoded server frame. It is one of MessageFrame, StatusFrame,
// Housekeeping or Unknown.
type Inbound interface {
	Kind() string
}

// MessageFrame carries a new or updated message.
type MessageFrame struct {
	Message chat.Message
}

// StatusFrame carries aggregate delivery counters for a message.
type StatusFrame struct {
	MessageID         string
	DeliveredCount    int
	SeenCount         int
	TotalParticipants int
	Status            chat.Status
}

// Housekeeping is a frame the server emits for presence or typing. Clients ignore it.
type Housekeeping struct {
	Type    string
	Payload json.RawMessage
}

// Unknown is any frame with an unrecognized discriminator.
type Unknown struct {
	Type string
}

func (MessageFrame) Kind() string   { return TypeMessage }
func (StatusFrame) Kind() string    { return TypeStatus }
func (h Housekeeping) Kind() string { return h.Type }
func (u Unknown) Kind() string      { return u.Type }

// ErrEmptyType is returned for frames without a discriminator.
var ErrEmptyType = errors.New("frame has no type")

type statusPayload struct {
	MessageID         string `json:"message_id"`
	DeliveredCount    int    `json:"delivered_count"`
	SeenCount         int    `json:"seen_count"`
	TotalParticipants int    `json:"total_participants"`
	Status            string `json:"status,omitempty"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (Inbound, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if f.Type == "" {
		return nil, ErrEmptyType
	}

	switch f.Type {
	case TypeMessage:
		var m chat.Message
		if err := json.Unmarshal(f.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode message payload: %w", err)
		}
		if m.ID == "" {
			return nil, fmt.Errorf("decode message payload: missing id")
		}
		return MessageFrame{Message: m}, nil
	case TypeStatus:
		var p statusPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return nil, fmt.Errorf("decode status payload: %w", err)
		}
		st := chat.Status(p.Status)
		if st == "" {
			// The first status broadcast after a message has no status field.
			st = chat.Project(p.DeliveredCount, p.SeenCount, p.TotalParticipants)
		}
		return StatusFrame{
			MessageID:         p.MessageID,
			DeliveredCount:    p.DeliveredCount,
			SeenCount:         p.SeenCount,
			TotalParticipants: p.TotalParticipants,
			Status:            st,
		}, nil
	case TypeUserJoin, TypeTyping:
		return Housekeeping{Type: f.Type, Payload: f.Payload}, nil
	default:
		return Unknown{Type: f.Type}, nil
	}
}
