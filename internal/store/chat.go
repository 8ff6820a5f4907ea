package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/andrejr971/chat/internal/chat"
)

// UpsertChat inserts a chat summary or refreshes its name and member count.
// Unread and last-message columns are owned by the sync engine and left alone.
func (db *DB) UpsertChat(s *chat.Summary) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chats (id, name, total_members, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
			total_members = CASE WHEN excluded.total_members > 0 THEN excluded.total_members ELSE chats.total_members END,
			updated_at = excluded.updated_at`,
		s.ID, s.Name, s.TotalMembers, now)
	return err
}

// ListChats returns chats with the most recent activity first.
func (db *DB) ListChats(limit, offset int) ([]chat.Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, COALESCE(NULLIF(name, ''), id), total_members, unread_count,
			last_message_id, last_message_preview, last_message_at
		FROM chats
		ORDER BY last_message_at DESC, name ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []chat.Summary
	for rows.Next() {
		var s chat.Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.TotalMembers, &s.UnreadCount,
			&s.LastMessageID, &s.LastMessagePreview, &s.LastMessageAt); err != nil {
			return nil, err
		}
		chats = append(chats, s)
	}
	return chats, rows.Err()
}

// GetChat returns one chat summary, or nil when it is not known.
func (db *DB) GetChat(id string) (*chat.Summary, error) {
	var s chat.Summary
	err := db.QueryRow(`
		SELECT id, COALESCE(NULLIF(name, ''), id), total_members, unread_count,
			last_message_id, last_message_preview, last_message_at
		FROM chats WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.TotalMembers, &s.UnreadCount,
			&s.LastMessageID, &s.LastMessagePreview, &s.LastMessageAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// IncrementUnread counts messageID as unread in chatID. A message already
// counted is ignored; the result tells whether the counter moved.
func (db *DB) IncrementUnread(chatID, messageID string) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`INSERT OR IGNORE INTO unread_marks (chat_id, message_id) VALUES (?, ?)`, chatID, messageID)
	if err != nil {
		return false, fmt.Errorf("mark unread %s: %w", messageID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}

	now := time.Now().UnixMilli()
	if _, err := tx.Exec(`
		INSERT INTO chats (id, unread_count, updated_at) VALUES (?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			unread_count = chats.unread_count + 1,
			updated_at = excluded.updated_at`, chatID, now); err != nil {
		return false, fmt.Errorf("increment unread %s: %w", chatID, err)
	}
	return true, tx.Commit()
}

// ResetUnread zeroes the unread counter of chatID.
func (db *DB) ResetUnread(chatID string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE chats SET unread_count = 0, updated_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), chatID); err != nil {
		return err
	}
	// Marks are kept so a message counted before stays counted once.
	return tx.Commit()
}

// UnreadCount returns the unread counter of chatID, 0 for unknown chats.
func (db *DB) UnreadCount(chatID string) (int, error) {
	var n int
	err := db.QueryRow(`SELECT unread_count FROM chats WHERE id = ?`, chatID).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// SetLastMessage records m as the latest message of its chat unless a newer
// one is already recorded.
func (db *DB) SetLastMessage(m *chat.Message) error {
	at := millis(m.CreatedAt)
	if at == 0 {
		at = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO chats (id, last_message_id, last_message_preview, last_message_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_message_id = excluded.last_message_id,
			last_message_preview = excluded.last_message_preview,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at
		WHERE excluded.last_message_at >= chats.last_message_at`,
		m.ChatID, m.ID, preview(m.Content), at, time.Now().UnixMilli())
	return err
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}

const previewLen = 80

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLen {
		return content
	}
	return string(r[:previewLen-1]) + "…"
}
