// Package api is the REST client of the chat server: users, chats, members
// and message history.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andrejr971/chat/internal/chat"
)

// Error is a non-2xx answer of the server.
type Error struct {
	Method string
	Path   string
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// NotFound reports whether the server answered 404.
func (e *Error) NotFound() bool { return e.Status == http.StatusNotFound }

// Client talks to the chat server's REST API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client for baseURL (http://host:port).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// do performs a request and decodes a JSON answer into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Method: method, Path: path, Status: resp.StatusCode}
		var errResp struct {
			Detail json.RawMessage `json:"detail"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && len(errResp.Detail) > 0 {
			var detail string
			if json.Unmarshal(errResp.Detail, &detail) == nil {
				apiErr.Detail = detail
			} else {
				// Validation errors carry a list of objects.
				apiErr.Detail = string(errResp.Detail)
			}
		}
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// CreateUser registers username and returns the new user.
func (c *Client) CreateUser(ctx context.Context, username string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/users", map[string]string{"username": username}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListMyChats returns the chats userID is a member of.
func (c *Client) ListMyChats(ctx context.Context, userID string) ([]Chat, error) {
	var chats []Chat
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/chats", nil, &chats)
	return chats, err
}

// ListChats returns every chat on the server.
func (c *Client) ListChats(ctx context.Context) ([]Chat, error) {
	var chats []Chat
	err := c.do(ctx, http.MethodGet, "/chats", nil, &chats)
	return chats, err
}

// GetChat returns one chat.
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	var ch Chat
	if err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateChat creates a chat named name with userID as first member.
func (c *Client) CreateChat(ctx context.Context, name, userID string) (*Chat, error) {
	var ch Chat
	body := map[string]string{"name": name, "user_id": userID}
	if err := c.do(ctx, http.MethodPost, "/chats", body, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// JoinChat adds userID to chatID.
func (c *Client) JoinChat(ctx context.Context, chatID, userID string) error {
	return c.do(ctx, http.MethodPost, "/chats/"+url.PathEscape(chatID)+"/join-member",
		map[string]string{"user_id": userID}, nil)
}

// ListMembers returns the members of chatID.
func (c *Client) ListMembers(ctx context.Context, chatID string) ([]User, error) {
	var users []User
	err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/members", nil, &users)
	return users, err
}

// ListMessages returns the stored history of chatID, oldest first.
func (c *Client) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	err := c.do(ctx, http.MethodGet, "/chats/"+url.PathEscape(chatID)+"/messages", nil, &msgs)
	return msgs, err
}

// History returns the history of chatID converted for the timeline.
func (c *Client) History(ctx context.Context, chatID string) ([]chat.Message, error) {
	msgs, err := c.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ToChat())
	}
	return out, nil
}
