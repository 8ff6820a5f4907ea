// Package outbox resends messages that were written while the chat socket
// was down.
package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/store"
	"github.com/andrejr971/chat/internal/transport"
	"go.uber.org/zap"
)

// MessageSender writes a message to the open socket.
type MessageSender interface {
	Send(m chat.Message) error
}

// Queue is the persistent outbox.
type Queue interface {
	PendingOutbox(chatID string) ([]store.OutboxEntry, error)
	MarkOutboxSent(msgID string) error
	MarkOutboxFailed(msgID, errMsg string) error
}

// Result is the payload of bus.OutboxResent.
type Result struct {
	ChatID string
	Sent   []string
	Failed []string
}

// Resender replays queued messages of a chat with their original ids.
type Resender struct {
	queue  Queue
	sender MessageSender
	self   chat.Identity
	bus    *bus.Bus
	logger *zap.Logger
}

// NewResender creates a resender writing as self.
func NewResender(q Queue, sender MessageSender, self chat.Identity, b *bus.Bus, logger *zap.Logger) *Resender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resender{
		queue:  q,
		sender: sender,
		self:   self,
		bus:    b,
		logger: logger.Named("outbox"),
	}
}

// Resend writes every queued message of chatID in queue order. It stops at
// the first ErrNotConnected and leaves the rest queued; any other send error
// marks that entry failed and moves on.
func (r *Resender) Resend(chatID string) (Result, error) {
	res := Result{ChatID: chatID}
	pending, err := r.queue.PendingOutbox(chatID)
	if err != nil {
		return res, fmt.Errorf("read outbox: %w", err)
	}
	if len(pending) == 0 {
		return res, nil
	}

	for _, entry := range pending {
		m := chat.Message{
			ID:         entry.MsgID,
			ChatID:     entry.ChatID,
			SenderID:   r.self.UserID,
			SenderName: r.self.Username,
			Content:    entry.Content,
			Status:     chat.StatusPending,
			CreatedAt:  time.UnixMilli(entry.CreatedAt),
		}
		err := r.sender.Send(m)
		if errors.Is(err, transport.ErrNotConnected) {
			r.logger.Info("socket closed during resend", zap.String("chat_id", chatID),
				zap.Int("left", len(pending)-len(res.Sent)-len(res.Failed)))
			break
		}
		if err != nil {
			r.logger.Error("failed to resend message", zap.Error(err), zap.String("msg_id", entry.MsgID))
			if mErr := r.queue.MarkOutboxFailed(entry.MsgID, err.Error()); mErr != nil {
				r.logger.Error("failed to mark failed", zap.Error(mErr), zap.String("msg_id", entry.MsgID))
			}
			res.Failed = append(res.Failed, entry.MsgID)
			continue
		}
		if err := r.queue.MarkOutboxSent(entry.MsgID); err != nil {
			r.logger.Error("failed to mark sent", zap.Error(err), zap.String("msg_id", entry.MsgID))
		}
		res.Sent = append(res.Sent, entry.MsgID)
	}

	r.logger.Info("outbox resent", zap.String("chat_id", chatID),
		zap.Int("sent", len(res.Sent)), zap.Int("failed", len(res.Failed)))
	r.bus.Emit(bus.OutboxResent, res)
	return res, nil
}
