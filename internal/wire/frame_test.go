package wire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/andrejr971/chat/internal/chat"
)

func TestDecodeMessage(t *testing.T) {
	data := []byte(`{"type":"message","payload":{"id":"m1","chatId":"c1","senderId":"u2","senderName":"bob","content":"oi","createdAt":"2025-03-01T12:00:00.000Z","status":"sent","deliveredCount":0,"seenCount":0,"totalParticipants":0}}`)

	in, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	mf, ok := in.(MessageFrame)
	if !ok {
		t.Fatalf("got %T, want MessageFrame", in)
	}
	m := mf.Message
	if m.ID != "m1" || m.ChatID != "c1" || m.SenderID != "u2" || m.SenderName != "bob" || m.Content != "oi" {
		t.Errorf("message = %+v", m)
	}
	if m.Status != chat.StatusSent {
		t.Errorf("status = %s, want sent", m.Status)
	}
	if !m.CreatedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("createdAt = %v", m.CreatedAt)
	}
}

func TestDecodeStatus(t *testing.T) {
	data := []byte(`{"type":"status","payload":{"message_id":"m1","delivered_count":5,"seen_count":3,"total_participants":5,"status":"seen_partial"}}`)

	in, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	sf, ok := in.(StatusFrame)
	if !ok {
		t.Fatalf("got %T, want StatusFrame", in)
	}
	want := StatusFrame{MessageID: "m1", DeliveredCount: 5, SeenCount: 3, TotalParticipants: 5, Status: chat.StatusSeenPartial}
	if sf != want {
		t.Errorf("got %+v, want %+v", sf, want)
	}
}

func TestDecodeStatusWithoutStatusIsProjected(t *testing.T) {
	data := []byte(`{"type":"status","payload":{"message_id":"m1","delivered_count":1,"seen_count":0,"total_participants":1}}`)

	in, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := in.(StatusFrame).Status; got != chat.StatusDeliveredAll {
		t.Errorf("status = %s, want delivered_all", got)
	}
}

func TestDecodeHousekeepingAndUnknown(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"user join", `{"type":"user:join","payload":{"user_id":"u1","username":"ana"}}`, "wire.Housekeeping"},
		{"typing", `{"type":"typing","payload":{}}`, "wire.Housekeeping"},
		{"unknown", `{"type":"reaction","payload":{"x":1}}`, "wire.Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := Decode([]byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			switch in.(type) {
			case Housekeeping:
				if tt.want != "wire.Housekeeping" {
					t.Errorf("got Housekeeping, want %s", tt.want)
				}
			case Unknown:
				if tt.want != "wire.Unknown" {
					t.Errorf("got Unknown, want %s", tt.want)
				}
			default:
				t.Errorf("got %T, want %s", in, tt.want)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"type":`},
		{"no type", `{"payload":{}}`},
		{"message without id", `{"type":"message","payload":{"content":"x"}}`},
		{"bad status payload", `{"type":"status","payload":"nope"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode([]byte(tt.data)); err == nil {
				t.Error("Decode() expected error")
			}
		})
	}
}

func TestEncodeAck(t *testing.T) {
	data, err := EncodeAck("m1", "u1", chat.AckSeen)
	if err != nil {
		t.Fatal(err)
	}
	var f struct {
		Type    string `json:"type"`
		Payload Ack    `json:"payload"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	if f.Type != TypeAck {
		t.Errorf("type = %q, want ack", f.Type)
	}
	if f.Payload != (Ack{MessageID: "m1", UserID: "u1", Status: chat.AckSeen}) {
		t.Errorf("payload = %+v", f.Payload)
	}
}

func TestEncodeMessageZeroesCounters(t *testing.T) {
	data, err := EncodeMessage(chat.Message{ID: "m1", ChatID: "c1", Content: "hi", DeliveredCount: 4, SeenCount: 2, TotalParticipants: 9})
	if err != nil {
		t.Fatal(err)
	}
	var f struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"deliveredCount", "seenCount", "totalParticipants"} {
		v, ok := f.Payload[k]
		if !ok {
			t.Errorf("payload missing %s", k)
			continue
		}
		if v.(float64) != 0 {
			t.Errorf("%s = %v, want 0", k, v)
		}
	}
	if f.Payload["id"] != "m1" {
		t.Errorf("id = %v, want m1", f.Payload["id"])
	}
}

func TestEncodeJoin(t *testing.T) {
	data, err := EncodeJoin(chat.Identity{UserID: "u1", Username: "ana"}, "c1")
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"join","payload":{"user_id":"u1","username":"ana","chat_id":"c1"}}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}
