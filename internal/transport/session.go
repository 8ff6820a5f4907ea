package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/metrics"
	"github.com/andrejr971/chat/internal/wire"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Send when the socket is not open.
var ErrNotConnected = errors.New("no connection")

// Event is something the session reports to its owner. Every event carries
// the generation of the connection it came from; a new Connect bumps the
// generation so events of a superseded socket can be recognized and dropped.
type Event interface {
	Generation() uint64
}

// Opened reports an established socket that already sent its join frame.
type Opened struct {
	Gen    uint64
	ChatID string
}

// Frame carries one decoded inbound frame.
type Frame struct {
	Gen     uint64
	Inbound wire.Inbound
}

// Closed reports a failed dial or a dropped socket. Err is nil for a clean
// server-side close.
type Closed struct {
	Gen uint64
	Err error
}

func (e Opened) Generation() uint64 { return e.Gen }
func (e Frame) Generation() uint64  { return e.Gen }
func (e Closed) Generation() uint64 { return e.Gen }

// Session owns at most one live socket. Connect, Disconnect, Send and SendAck
// are safe to call from any goroutine; events are delivered through emit from
// the connection's own goroutine, in socket order.
type Session struct {
	dialer  Dialer
	baseURL string
	emit    func(Event)
	logger  *zap.Logger

	mu      sync.Mutex
	gen     uint64
	conn    Conn
	chatID  string
	cancel  context.CancelFunc
	writeMu sync.Mutex
}

// NewSession creates a session dialing chats under baseURL.
func NewSession(d Dialer, baseURL string, emit func(Event), logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		dialer:  d,
		baseURL: baseURL,
		emit:    emit,
		logger:  logger.Named("transport"),
	}
}

// Connect closes any existing socket and starts dialing chatID. It returns
// immediately with the generation of the new connection.
func (s *Session) Connect(ctx context.Context, id chat.Identity, chatID string) uint64 {
	s.mu.Lock()
	s.closeLocked()
	s.gen++
	gen := s.gen
	dialCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.chatID = chatID
	s.mu.Unlock()

	go s.run(dialCtx, gen, id, chatID)
	return gen
}

// Disconnect closes the socket if one is open or being dialed. It reports
// whether anything was torn down. Safe to call with no connection.
func (s *Session) Disconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	active := s.conn != nil || s.cancel != nil
	s.closeLocked()
	s.gen++
	s.chatID = ""
	return active
}

// Connected reports whether the socket is open.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ChatID returns the chat the session is bound to.
func (s *Session) ChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatID
}

// Send writes an outbound chat message. Nothing is queued when the socket is
// not open: ErrNotConnected is returned instead.
func (s *Session) Send(m chat.Message) error {
	conn := s.openConn()
	if conn == nil {
		metrics.SendFailures.Inc()
		return ErrNotConnected
	}
	data, err := wire.EncodeMessage(m)
	if err != nil {
		return err
	}
	if err := s.write(conn, data); err != nil {
		return fmt.Errorf("send message %s: %w", m.ID, err)
	}
	metrics.FramesSent.WithLabelValues(wire.TypeMessage).Inc()
	return nil
}

// SendAck writes an acknowledgement. It is silently dropped when the socket
// is not open; the return value tells whether it was written.
func (s *Session) SendAck(messageID, userID string, status chat.AckStatus) bool {
	conn := s.openConn()
	if conn == nil {
		metrics.AcksDropped.WithLabelValues(string(status)).Inc()
		return false
	}
	data, err := wire.EncodeAck(messageID, userID, status)
	if err != nil {
		return false
	}
	if err := s.write(conn, data); err != nil {
		s.logger.Warn("ack write failed", zap.String("msg_id", messageID), zap.Error(err))
		metrics.AcksDropped.WithLabelValues(string(status)).Inc()
		return false
	}
	metrics.FramesSent.WithLabelValues(wire.TypeAck).Inc()
	metrics.AcksSent.WithLabelValues(string(status)).Inc()
	return true
}

func (s *Session) run(ctx context.Context, gen uint64, id chat.Identity, chatID string) {
	target := ChatURL(s.baseURL, chatID)
	s.logger.Info("dialing chat socket", zap.String("url", target), zap.Uint64("gen", gen))

	conn, err := s.dialer.Dial(ctx, target)
	if err != nil {
		metrics.Connections.WithLabelValues("failed").Inc()
		s.logger.Warn("dial failed", zap.String("chat_id", chatID), zap.Error(err))
		if s.isCurrent(gen) {
			s.clearDial(gen)
			s.emit(Closed{Gen: gen, Err: err})
		}
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	join, err := wire.EncodeJoin(id, chatID)
	if err == nil {
		err = s.write(conn, join)
	}
	if err != nil {
		s.logger.Warn("join failed", zap.String("chat_id", chatID), zap.Error(err))
		if s.release(gen, conn) {
			_ = conn.Close()
			s.emit(Closed{Gen: gen, Err: fmt.Errorf("join: %w", err)})
		}
		return
	}
	metrics.FramesSent.WithLabelValues(wire.TypeJoin).Inc()
	metrics.Connections.WithLabelValues("opened").Inc()
	s.logger.Info("chat socket open", zap.String("chat_id", chatID), zap.Uint64("gen", gen))
	s.emit(Opened{Gen: gen, ChatID: chatID})

	go s.pingLoop(ctx, conn)
	s.readLoop(gen, conn)
}

// readLoop pumps frames from conn until it fails. It is the only reader of conn.
func (s *Session) readLoop(gen uint64, conn Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !s.release(gen, conn) {
				// Closed locally by Disconnect or a newer Connect.
				return
			}
			_ = conn.Close()
			metrics.Connections.WithLabelValues("dropped").Inc()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info("chat socket closed by server", zap.Uint64("gen", gen))
				s.emit(Closed{Gen: gen})
				return
			}
			s.logger.Warn("chat socket dropped", zap.Uint64("gen", gen), zap.Error(err))
			s.emit(Closed{Gen: gen, Err: err})
			return
		}

		in, err := wire.Decode(data)
		if err != nil {
			metrics.MalformedFrames.Inc()
			s.logger.Warn("dropping malformed frame", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		label := in.Kind()
		if _, ok := in.(wire.Unknown); ok {
			label = "unknown"
		}
		metrics.FramesReceived.WithLabelValues(label).Inc()
		s.emit(Frame{Gen: gen, Inbound: in})
	}
}

// pingLoop keeps the socket alive until ctx is cancelled or a ping fails.
func (s *Session) pingLoop(ctx context.Context, conn Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *Session) write(conn Conn, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) openConn() Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Session) isCurrent(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// clearDial forgets the cancel func of a failed dial.
func (s *Session) clearDial(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// release detaches conn if it is still the live connection of gen.
func (s *Session) release(gen uint64, conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.conn != conn {
		return false
	}
	s.conn = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

func (s *Session) closeLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
