// Package sync runs the message synchronization engine of the open chat. All
// engine state is owned by one goroutine (Run); everything else talks to it by
// posting events.
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrejr971/chat/internal/ack"
	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/metrics"
	"github.com/andrejr971/chat/internal/outbox"
	"github.com/andrejr971/chat/internal/status"
	"github.com/andrejr971/chat/internal/timeline"
	"github.com/andrejr971/chat/internal/transport"
	"github.com/andrejr971/chat/internal/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cacheLimit bounds the backlog read from the local cache when the history
// endpoint is unreachable.
const cacheLimit = 200

// Transport is the socket session bound to the open chat.
type Transport interface {
	Connect(ctx context.Context, id chat.Identity, chatID string) uint64
	Disconnect() bool
	Send(m chat.Message) error
	SendAck(messageID, userID string, status chat.AckStatus) bool
}

// Summaries keeps the chat list counters.
type Summaries interface {
	IncrementUnread(chatID, messageID string) (bool, error)
	ResetUnread(chatID string) error
	SetLastMessage(m *chat.Message) error
}

// Archive is the local message cache.
type Archive interface {
	UpsertMessage(m *chat.Message) error
	ApplyMessageStatus(id string, status chat.Status, delivered, seen, total int) error
	ListMessages(chatID string, beforeMs int64, limit int) ([]chat.Message, error)
}

// History fetches the stored messages of a chat from the server.
type History interface {
	History(ctx context.Context, chatID string) ([]chat.Message, error)
}

// Outbox records messages that could not be written.
type Outbox interface {
	QueueOutbox(msgID, chatID, content string) error
}

// Resender replays the outbox of a chat.
type Resender interface {
	Resend(chatID string) (outbox.Result, error)
}

// Deps are the collaborators of an engine. Only Transport is required.
type Deps struct {
	Transport Transport
	Summaries Summaries
	Archive   Archive
	History   History
	Outbox    Outbox
	Resender  Resender
	Bus       *bus.Bus
	Machine   *status.Machine
	Logger    *zap.Logger
}

// Options tune engine behaviour.
type Options struct {
	// ResendOnReconnect replays the outbox every time the socket opens.
	ResendOnReconnect bool
}

// Engine reconciles the open chat with the server and dispatches acks.
type Engine struct {
	queue     *Queue
	transport Transport
	summaries Summaries
	archive   Archive
	history   History
	outbox    Outbox
	resender  Resender
	bus       *bus.Bus
	machine   *status.Machine
	logger    *zap.Logger
	self      chat.Identity
	opts      Options
	ctx       context.Context

	// Owned by the loop.
	timeline  *timeline.Store
	pending   *ack.Tracker
	chatID    string
	gen       uint64
	connected bool
	visible   bool
}

// NewEngine creates an engine for self reading events from q. The surface
// starts visible.
func NewEngine(q *Queue, d Deps, self chat.Identity, opts Options) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		queue:     q,
		transport: d.Transport,
		summaries: d.Summaries,
		archive:   d.Archive,
		history:   d.History,
		outbox:    d.Outbox,
		resender:  d.Resender,
		bus:       d.Bus,
		machine:   d.Machine,
		logger:    logger.Named("sync"),
		self:      self,
		opts:      opts,
		ctx:       context.Background(),
		timeline:  timeline.New(),
		pending:   ack.NewTracker(),
		visible:   true,
	}
}

// Post enqueues an event for the loop.
func (e *Engine) Post(ev any) {
	e.queue.Post(ev)
}

// Run processes events until ctx is cancelled, then closes the socket.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer e.queue.close()
	for {
		select {
		case <-ctx.Done():
			e.transport.Disconnect()
			return ctx.Err()
		case ev := <-e.queue.ch:
			e.Handle(ev)
		}
	}
}

// Snapshot asks the loop for a copy of its state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	select {
	case e.queue.ch <- req:
	case <-e.queue.done:
		return Snapshot{}, errors.New("engine stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-e.queue.done:
		return Snapshot{}, errors.New("engine stopped")
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Handle applies one event. It must only be called from the loop goroutine,
// or from tests that own the engine.
func (e *Engine) Handle(ev any) {
	switch ev := ev.(type) {
	case ConnectIntent:
		e.connect(ev.ChatID)
	case DisconnectIntent:
		e.disconnect()
	case SendIntent:
		e.send(ev.Content)
	case VisibilityChanged:
		e.setVisible(ev.Visible)
	case HistoryLoaded:
		e.loadHistory(ev)
	case transport.Opened:
		e.opened(ev)
	case transport.Closed:
		e.closed(ev)
	case transport.Frame:
		e.frame(ev)
	case snapshotRequest:
		ev.reply <- e.view()
	default:
		e.logger.Warn("ignoring unknown event", zap.String("type", fmt.Sprintf("%T", ev)))
	}
}

func (e *Engine) view() Snapshot {
	return Snapshot{
		ChatID:      e.chatID,
		Connected:   e.connected,
		Visible:     e.visible,
		Messages:    e.timeline.Messages(),
		PendingSeen: e.pending.Len(),
	}
}

func (e *Engine) connect(chatID string) {
	if chatID == "" {
		e.logger.Warn("connect without chat id")
		return
	}
	if e.chatID != "" {
		e.transport.Disconnect()
		if e.chatID != chatID {
			// Seen acks of the previous chat are abandoned.
			e.clearPending()
		}
	}

	e.resetTimeline(chatID)
	e.chatID = chatID
	e.connected = false
	e.resetUnread(chatID)
	e.setState(status.Connecting)

	e.gen = e.transport.Connect(e.ctx, e.self, chatID)
	e.logger.Info("binding chat", zap.String("chat_id", chatID), zap.Uint64("gen", e.gen))
	e.bus.Emit(bus.ChatOpened, chatID)
	e.fetchHistory(chatID)
}

func (e *Engine) disconnect() {
	e.transport.Disconnect()
	e.clearPending()

	chatID := e.chatID
	wasBound := chatID != ""
	e.gen = 0
	e.connected = false
	e.chatID = ""
	e.timeline.Reset()

	switch e.currentState() {
	case status.Connecting, status.Open:
		e.setState(status.Closed)
	case status.Error:
		e.setState(status.Idle)
	}
	if wasBound {
		e.logger.Info("chat unbound", zap.String("chat_id", chatID))
		e.bus.Emit(bus.MessagesReset, chatID)
	}
	e.bus.Emit(bus.ConnDisconnected, ConnChange{ChatID: chatID})
}

func (e *Engine) send(content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if e.chatID == "" {
		e.notice(NoticeNoChat, nil)
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	m := chat.Message{
		ID:         id.String(),
		ChatID:     e.chatID,
		SenderID:   e.self.UserID,
		SenderName: e.self.Username,
		Content:    content,
		CreatedAt:  time.Now(),
		Status:     chat.StatusPending,
	}
	e.timeline.Upsert(m)
	e.bus.Emit(bus.MessageUpserted, m)
	e.archiveMessage(&m)
	e.setLastMessage(&m)

	err = e.transport.Send(m)
	if err == nil {
		return
	}
	if errors.Is(err, transport.ErrNotConnected) {
		e.logger.Info("send without connection", zap.String("msg_id", m.ID))
		e.notice(NoticeNoConnection, err)
	} else {
		e.logger.Error("send failed", zap.String("msg_id", m.ID), zap.Error(err))
		e.notice(NoticeSendFailed, err)
	}
	// The message stays pending; it is kept for a resend on reconnect.
	if e.outbox != nil {
		if err := e.outbox.QueueOutbox(m.ID, m.ChatID, m.Content); err != nil {
			e.logger.Error("failed to queue outbox", zap.String("msg_id", m.ID), zap.Error(err))
		}
	}
}

func (e *Engine) setVisible(visible bool) {
	if visible == e.visible {
		return
	}
	e.visible = visible
	e.logger.Debug("visibility changed", zap.Bool("visible", visible))
	if !visible {
		return
	}
	if e.chatID != "" {
		e.resetUnread(e.chatID)
	}
	if e.connected {
		e.drainSeen()
	}
}

func (e *Engine) opened(ev transport.Opened) {
	if ev.Gen != e.gen {
		e.logger.Debug("dropping open of superseded socket", zap.Uint64("gen", ev.Gen))
		return
	}
	e.connected = true
	e.setState(status.Open)
	e.logger.Info("chat connected", zap.String("chat_id", ev.ChatID))
	e.bus.Emit(bus.ConnConnected, ConnChange{ChatID: ev.ChatID})

	if e.visible {
		e.drainSeen()
	}
	if e.opts.ResendOnReconnect && e.resender != nil {
		if _, err := e.resender.Resend(ev.ChatID); err != nil {
			e.logger.Error("outbox resend failed", zap.String("chat_id", ev.ChatID), zap.Error(err))
		}
	}
}

func (e *Engine) closed(ev transport.Closed) {
	if ev.Gen != e.gen {
		e.logger.Debug("dropping close of superseded socket", zap.Uint64("gen", ev.Gen))
		return
	}
	e.gen = 0
	e.connected = false
	if ev.Err != nil {
		e.setState(status.Error)
		e.logger.Warn("chat connection lost", zap.String("chat_id", e.chatID), zap.Error(ev.Err))
		e.notice(NoticeConnectFailed, ev.Err)
	} else {
		e.setState(status.Closed)
		e.logger.Info("chat connection closed", zap.String("chat_id", e.chatID))
	}
	e.bus.Emit(bus.ConnDisconnected, ConnChange{ChatID: e.chatID, Err: ev.Err})
}

func (e *Engine) frame(ev transport.Frame) {
	if ev.Gen != e.gen || e.gen == 0 {
		e.logger.Debug("dropping frame of superseded socket", zap.Uint64("gen", ev.Gen))
		return
	}
	switch in := ev.Inbound.(type) {
	case wire.MessageFrame:
		e.receiveMessage(in.Message)
	case wire.StatusFrame:
		e.receiveStatus(in)
	default:
		e.logger.Debug("ignoring frame", zap.String("type", in.Kind()))
	}
}

func (e *Engine) receiveMessage(m chat.Message) {
	if m.ChatID == "" {
		m.ChatID = e.chatID
	}
	foreign := !m.IsFrom(e.self.UserID)

	if m.ChatID != e.chatID {
		// Another chat: only its summary moves.
		e.setLastMessage(&m)
		if foreign {
			e.transport.SendAck(m.ID, e.self.UserID, chat.AckDelivered)
			e.countUnread(m.ChatID, m.ID)
		}
		return
	}

	e.timeline.Upsert(m)
	if merged, ok := e.timeline.Get(m.ID); ok {
		e.bus.Emit(bus.MessageUpserted, merged)
		e.archiveMessage(&merged)
	}
	e.setLastMessage(&m)

	if !foreign {
		return
	}
	e.transport.SendAck(m.ID, e.self.UserID, chat.AckDelivered)
	if e.visible {
		e.transport.SendAck(m.ID, e.self.UserID, chat.AckSeen)
		return
	}
	if e.pending.Add(m.ID) {
		metrics.PendingSeen.Set(float64(e.pending.Len()))
	}
}

func (e *Engine) receiveStatus(f wire.StatusFrame) {
	if prev, ok := e.timeline.Get(f.MessageID); ok && prev.Status.Regresses(f.Status) {
		e.logger.Warn("status regression",
			zap.String("msg_id", f.MessageID),
			zap.String("from", string(prev.Status)),
			zap.String("to", string(f.Status)))
	}
	if e.timeline.ApplyStatus(f.MessageID, f.Status, f.DeliveredCount, f.SeenCount, f.TotalParticipants) {
		if m, ok := e.timeline.Get(f.MessageID); ok {
			e.bus.Emit(bus.MessageStatus, m)
		}
	}
	if e.archive != nil {
		if err := e.archive.ApplyMessageStatus(f.MessageID, f.Status, f.DeliveredCount, f.SeenCount, f.TotalParticipants); err != nil {
			e.logger.Error("failed to archive status", zap.String("msg_id", f.MessageID), zap.Error(err))
		}
	}
}

func (e *Engine) loadHistory(ev HistoryLoaded) {
	if ev.ChatID != e.chatID {
		e.logger.Debug("dropping history of unbound chat", zap.String("chat_id", ev.ChatID))
		return
	}
	msgs := ev.Messages
	fromCache := false
	if ev.Err != nil {
		e.logger.Warn("history fetch failed", zap.String("chat_id", ev.ChatID), zap.Error(ev.Err))
		e.notice(NoticeHistoryFailed, ev.Err)
		msgs = e.cachedHistory(ev.ChatID)
		fromCache = true
	}

	for i := range msgs {
		m := msgs[i]
		if m.ChatID == "" {
			m.ChatID = ev.ChatID
		}
		e.timeline.Upsert(m)
		if !fromCache {
			e.archiveMessage(&m)
		}
	}
	e.logger.Info("history loaded", zap.String("chat_id", ev.ChatID),
		zap.Int("messages", len(msgs)), zap.Bool("from_cache", fromCache))
	e.bus.Emit(bus.MessagesLoaded, HistoryResult{ChatID: ev.ChatID, Count: len(msgs), FromCache: fromCache})
}

func (e *Engine) fetchHistory(chatID string) {
	if e.history == nil {
		return
	}
	ctx := e.ctx
	go func() {
		msgs, err := e.history.History(ctx, chatID)
		e.queue.Post(HistoryLoaded{ChatID: chatID, Messages: msgs, Err: err})
	}()
}

func (e *Engine) cachedHistory(chatID string) []chat.Message {
	if e.archive == nil {
		return nil
	}
	msgs, err := e.archive.ListMessages(chatID, 0, cacheLimit)
	if err != nil {
		e.logger.Error("failed to read message cache", zap.String("chat_id", chatID), zap.Error(err))
		return nil
	}
	return msgs
}

// drainSeen sends one seen ack per queued id, in the order they were queued.
// The first ack the socket refuses and every id after it go back on the
// queue.
func (e *Engine) drainSeen() {
	ids := e.pending.Drain()
	sent := 0
	for i, id := range ids {
		if !e.transport.SendAck(id, e.self.UserID, chat.AckSeen) {
			for _, rest := range ids[i:] {
				e.pending.Add(rest)
			}
			e.logger.Info("seen acks kept for next open", zap.Int("kept", len(ids)-i))
			break
		}
		sent++
	}
	metrics.PendingSeen.Set(float64(e.pending.Len()))
	if sent > 0 {
		e.logger.Debug("flushed seen acks", zap.Int("count", sent))
	}
}

func (e *Engine) clearPending() {
	e.pending.Clear()
	metrics.PendingSeen.Set(0)
}

func (e *Engine) resetTimeline(chatID string) {
	e.timeline.Reset()
	e.bus.Emit(bus.MessagesReset, chatID)
}

// countUnread bumps the counter of chatID once per message id. The store
// owns the dedup, so a failed write is retried by the next delivery.
func (e *Engine) countUnread(chatID, msgID string) {
	if e.summaries != nil {
		moved, err := e.summaries.IncrementUnread(chatID, msgID)
		if err != nil {
			e.logger.Error("failed to count unread", zap.String("chat_id", chatID), zap.Error(err))
			return
		}
		if !moved {
			return
		}
	}
	e.bus.Emit(bus.UnreadChanged, UnreadChange{ChatID: chatID})
}

func (e *Engine) resetUnread(chatID string) {
	if e.summaries != nil {
		if err := e.summaries.ResetUnread(chatID); err != nil {
			e.logger.Error("failed to reset unread", zap.String("chat_id", chatID), zap.Error(err))
		}
	}
	e.bus.Emit(bus.UnreadChanged, UnreadChange{ChatID: chatID, Reset: true})
}

func (e *Engine) archiveMessage(m *chat.Message) {
	if e.archive == nil {
		return
	}
	if err := e.archive.UpsertMessage(m); err != nil {
		e.logger.Error("failed to archive message", zap.String("msg_id", m.ID), zap.Error(err))
	}
}

func (e *Engine) setLastMessage(m *chat.Message) {
	if e.summaries == nil {
		return
	}
	if err := e.summaries.SetLastMessage(m); err != nil {
		e.logger.Error("failed to update chat summary", zap.String("chat_id", m.ChatID), zap.Error(err))
	}
}

func (e *Engine) notice(text string, err error) {
	e.bus.Emit(bus.ChatNotice, Notice{ChatID: e.chatID, Text: text, Err: err})
}

func (e *Engine) currentState() status.State {
	if e.machine == nil {
		return status.Idle
	}
	return e.machine.Current()
}

func (e *Engine) setState(to status.State) {
	if e.machine == nil {
		return
	}
	if err := e.machine.Transition(to); err != nil {
		e.logger.Debug("state transition skipped", zap.Error(err))
	}
}
