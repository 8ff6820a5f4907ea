package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/andrejr971/chat/internal/chat"
)

// recorder is an httptest handler that records requests and answers from a
// route table keyed by "METHOD path".
type recorder struct {
	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	bodies map[string]map[string]string
}

func newRecorder() *recorder {
	return &recorder{
		routes: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		bodies: make(map[string]map[string]string),
	}
}

func (rec *recorder) handle(method, path string, status int, body string) {
	rec.routes[method+" "+path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.EscapedPath()
	if r.Body != nil && r.ContentLength != 0 {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		rec.mu.Lock()
		rec.bodies[key] = body
		rec.mu.Unlock()
	}
	h, ok := rec.routes[key]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}
	h(w, r)
}

func (rec *recorder) body(key string) map[string]string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.bodies[key]
}

func testClient(t *testing.T, rec *recorder) *Client {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second)
}

func TestCreateUser(t *testing.T) {
	rec := newRecorder()
	rec.handle("POST", "/users", http.StatusCreated,
		`{"id":"u1","username":"ana","created_at":"2025-03-01T12:00:00.123456","updated_at":"2025-03-01T12:00:00"}`)
	c := testClient(t, rec)

	u, err := c.CreateUser(context.Background(), "ana")
	if err != nil {
		t.Fatal(err)
	}
	if u.ID != "u1" || u.Username != "ana" {
		t.Errorf("user = %+v", u)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)
	if !u.CreatedAt.Equal(want) {
		t.Errorf("created_at = %v, want %v", u.CreatedAt, want)
	}
	if got := rec.body("POST /users")["username"]; got != "ana" {
		t.Errorf("sent username = %q", got)
	}
}

func TestChats(t *testing.T) {
	rec := newRecorder()
	chats := `[{"id":"c1","name":"Geral","total_members":3,"created_at":"2025-03-01T12:00:00Z","updated_at":"2025-03-01T12:00:00Z"}]`
	rec.handle("GET", "/users/u1/chats", http.StatusOK, chats)
	rec.handle("GET", "/chats", http.StatusOK, chats)
	rec.handle("GET", "/chats/c1", http.StatusOK, `{"id":"c1","name":"Geral","created_at":null,"updated_at":null}`)
	rec.handle("POST", "/chats", http.StatusCreated, `{"id":"c2","name":"Nova","created_at":"2025-03-01T12:00:00+00:00","updated_at":"2025-03-01T12:00:00+00:00"}`)
	rec.handle("POST", "/chats/c1/join-member", http.StatusNoContent, ``)
	c := testClient(t, rec)
	ctx := context.Background()

	mine, err := c.ListMyChats(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || mine[0].Summary() != (chat.Summary{ID: "c1", Name: "Geral", TotalMembers: 3}) {
		t.Errorf("my chats = %+v", mine)
	}

	all, err := c.ListChats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("got %d chats, want 1", len(all))
	}

	one, err := c.GetChat(ctx, "c1")
	if err != nil {
		t.Fatal(err)
	}
	if one.Name != "Geral" || !one.CreatedAt.IsZero() {
		t.Errorf("chat = %+v", one)
	}

	created, err := c.CreateChat(ctx, "Nova", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "c2" {
		t.Errorf("created = %+v", created)
	}
	if body := rec.body("POST /chats"); body["name"] != "Nova" || body["user_id"] != "u1" {
		t.Errorf("create body = %v", body)
	}

	if err := c.JoinChat(ctx, "c1", "u1"); err != nil {
		t.Fatal(err)
	}
	if got := rec.body("POST /chats/c1/join-member")["user_id"]; got != "u1" {
		t.Errorf("join body user_id = %q", got)
	}
}

func TestHistory(t *testing.T) {
	rec := newRecorder()
	rec.handle("GET", "/chats/c1/messages", http.StatusOK, `[
		{"id":"m1","chat_id":"c1","sender_id":"u2","content":"oi","status":"seen_all",
		 "created_at":"2025-03-01T12:00:00","sender":{"id":"u2","username":"bia"}},
		{"id":"m2","chat_id":"c1","sender_id":"u1","content":"tudo bem?","status":"sent",
		 "created_at":"2025-03-01T12:01:00","sender":null}
	]`)
	c := testClient(t, rec)

	msgs, err := c.History(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].SenderName != "bia" || msgs[0].Status != chat.StatusSeenAll {
		t.Errorf("first = %+v", msgs[0])
	}
	if msgs[1].SenderName != "" || msgs[1].CreatedAt.Minute() != 1 {
		t.Errorf("second = %+v", msgs[1])
	}
}

func TestErrorsCarryDetail(t *testing.T) {
	rec := newRecorder()
	rec.handle("POST", "/chats/c9/join-member", http.StatusNotFound, `{"detail":"Chat não encontrado"}`)
	rec.handle("POST", "/users", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","username"],"msg":"field required"}]}`)
	rec.handle("GET", "/chats", http.StatusInternalServerError, `oops`)
	c := testClient(t, rec)
	ctx := context.Background()

	tests := []struct {
		name       string
		call       func() error
		wantStatus int
		wantDetail string
	}{
		{"string detail", func() error { return c.JoinChat(ctx, "c9", "u1") }, 404, "Chat não encontrado"},
		{"validation detail", func() error { _, err := c.CreateUser(ctx, ""); return err }, 422,
			`[{"loc":["body","username"],"msg":"field required"}]`},
		{"no detail", func() error { _, err := c.ListChats(ctx); return err }, 500, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Status != tt.wantStatus || apiErr.Detail != tt.wantDetail {
				t.Errorf("got %d %q, want %d %q", apiErr.Status, apiErr.Detail, tt.wantStatus, tt.wantDetail)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	c := testClient(t, newRecorder())
	_, err := c.GetChat(context.Background(), "missing")
	var apiErr *Error
	if !errors.As(err, &apiErr) || !apiErr.NotFound() {
		t.Fatalf("err = %v, want not found", err)
	}
}
