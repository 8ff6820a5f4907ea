package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andrejr971/chat/internal/bus"
	"github.com/andrejr971/chat/internal/chat"
	"github.com/andrejr971/chat/internal/config"
	"github.com/andrejr971/chat/internal/lock"
	"github.com/andrejr971/chat/internal/profile"
	"github.com/andrejr971/chat/internal/store"
	intsync "github.com/andrejr971/chat/internal/sync"
	"github.com/andrejr971/chat/internal/wire"
	"github.com/gorilla/websocket"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

// chatServer is a minimal server: an empty history endpoint and one chat
// socket that greets the client with a message from another member.
type chatServer struct {
	t     *testing.T
	joins chan wire.Join
	acks  chan wire.Ack
}

func newChatServer(t *testing.T) (*chatServer, *httptest.Server) {
	cs := &chatServer{t: t, joins: make(chan wire.Join, 1), acks: make(chan wire.Ack, 8)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chats/c1/messages", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, "[]")
	})
	mux.HandleFunc("/ws/chat/c1", cs.serveSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return cs, srv
}

func (cs *chatServer) serveSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cs.t.Errorf("upgrade: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	var join wire.Join
	if f := readFrame(conn); f == nil || f.Type != wire.TypeJoin {
		cs.t.Errorf("first frame = %+v, want join", f)
		return
	} else if err := json.Unmarshal(f.Payload, &join); err != nil {
		cs.t.Errorf("decode join: %v", err)
		return
	}
	cs.joins <- join

	out, err := wire.Encode(wire.TypeMessage, chat.Message{
		ID:         "m1",
		ChatID:     "c1",
		SenderID:   "u2",
		SenderName: "bia",
		Content:    "oi",
		Status:     chat.StatusPending,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		cs.t.Errorf("encode: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
		return
	}

	for {
		f := readFrame(conn)
		if f == nil {
			return
		}
		if f.Type != wire.TypeAck {
			continue
		}
		var a wire.Ack
		if err := json.Unmarshal(f.Payload, &a); err == nil {
			cs.acks <- a
		}
	}
}

func readFrame(conn *websocket.Conn) *wire.Frame {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	var f wire.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return &f
}

func testParams(t *testing.T, srv *httptest.Server) Params {
	t.Helper()
	t.Setenv(config.EnvHome, t.TempDir())
	p := config.DefaultProfile()
	p.APIURL = srv.URL
	p.WSURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	p.UserID = "u1"
	p.Username = "ana"
	p.MetricsAddr = "127.0.0.1:0"
	p.DialTimeout = config.Duration{Duration: 2 * time.Second}
	return Params{ProfileName: "test", Profile: p}
}

func nextAck(t *testing.T, ch <-chan wire.Ack) wire.Ack {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for ack")
		return wire.Ack{}
	}
}

func TestModuleConnectsAndAcks(t *testing.T) {
	cs, srv := newChatServer(t)
	params := testParams(t, srv)

	var (
		engine *intsync.Engine
		b      *bus.Bus
		db     *store.DB
	)
	app := fxtest.New(t, Module(params), fx.Populate(&engine, &b, &db))
	app.RequireStart()
	defer app.RequireStop()

	connected, unsub := b.Subscribe(bus.ConnConnected, 4)
	defer unsub()

	engine.Post(intsync.ConnectIntent{ChatID: "c1"})

	select {
	case join := <-cs.joins:
		if join.UserID != "u1" || join.Username != "ana" || join.ChatID != "c1" {
			t.Errorf("join = %+v", join)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for join")
	}
	select {
	case <-connected:
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for connected event")
	}

	if a := nextAck(t, cs.acks); a.MessageID != "m1" || a.Status != chat.AckDelivered || a.UserID != "u1" {
		t.Errorf("first ack = %+v, want delivered m1", a)
	}
	if a := nextAck(t, cs.acks); a.MessageID != "m1" || a.Status != chat.AckSeen {
		t.Errorf("second ack = %+v, want seen m1", a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := engine.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.ChatID != "c1" || !snap.Connected {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Messages) != 1 || snap.Messages[0].ID != "m1" {
		t.Errorf("messages = %+v", snap.Messages)
	}

	if n, err := db.MessageCount(); err != nil || n != 1 {
		t.Errorf("archived = %d, %v; want 1", n, err)
	}
}

func TestModuleServesMetrics(t *testing.T) {
	_, srv := newChatServer(t)
	params := testParams(t, srv)

	var ms *MetricsServer
	app := fxtest.New(t, Module(params), fx.Populate(&ms))
	app.RequireStart()
	defer app.RequireStop()

	resp, err := http.Get("http://" + ms.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "chatdev_pending_seen_acks") {
		t.Error("expected chatdev_pending_seen_acks in metrics output")
	}
}

func TestMetricsDisabledWithoutAddr(t *testing.T) {
	ms := NewMetricsServer(Params{Profile: config.DefaultProfile()}, zap.NewNop())
	if err := ms.Start(); err != nil {
		t.Fatal(err)
	}
	if ms.Addr() != "" {
		t.Errorf("Addr() = %q, want empty", ms.Addr())
	}
	ms.Stop(context.Background())
}

func TestModuleReleasesLockOnStop(t *testing.T) {
	_, srv := newChatServer(t)
	params := testParams(t, srv)

	app := fxtest.New(t, Module(params))
	app.RequireStart()

	if _, err := lock.Acquire(profile.Dir(params.ProfileName)); err == nil {
		t.Fatal("expected lock to be held while running")
	}

	app.RequireStop()

	l, err := lock.Acquire(profile.Dir(params.ProfileName))
	if err != nil {
		t.Fatalf("lock after stop: %v", err)
	}
	_ = l.Release()
}
