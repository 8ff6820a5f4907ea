package store

import (
	"time"

	"github.com/andrejr971/chat/internal/chat"
)

// UpsertMessage archives m. An existing row is merged: empty or zero fields
// of m never overwrite stored values.
func (db *DB) UpsertMessage(m *chat.Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (id, chat_id, sender_id, sender_name, content, status,
			delivered_count, seen_count, total_participants, created_at, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sender_id = CASE WHEN excluded.sender_id != '' THEN excluded.sender_id ELSE messages.sender_id END,
			sender_name = CASE WHEN excluded.sender_name != '' THEN excluded.sender_name ELSE messages.sender_name END,
			content = CASE WHEN excluded.content != '' THEN excluded.content ELSE messages.content END,
			status = CASE WHEN excluded.status != '' THEN excluded.status ELSE messages.status END,
			delivered_count = CASE WHEN excluded.delivered_count != 0 THEN excluded.delivered_count ELSE messages.delivered_count END,
			seen_count = CASE WHEN excluded.seen_count != 0 THEN excluded.seen_count ELSE messages.seen_count END,
			total_participants = CASE WHEN excluded.total_participants != 0 THEN excluded.total_participants ELSE messages.total_participants END,
			created_at = CASE WHEN excluded.created_at != 0 THEN excluded.created_at ELSE messages.created_at END`,
		m.ID, m.ChatID, m.SenderID, m.SenderName, m.Content, string(m.Status),
		m.DeliveredCount, m.SeenCount, m.TotalParticipants, millis(m.CreatedAt), now)
	return err
}

// ApplyMessageStatus overwrites the status and counters of an archived message.
// Unknown ids are ignored.
func (db *DB) ApplyMessageStatus(id string, status chat.Status, delivered, seen, total int) error {
	_, err := db.Exec(`
		UPDATE messages SET status = ?, delivered_count = ?, seen_count = ?, total_participants = ?
		WHERE id = ?`, string(status), delivered, seen, total, id)
	return err
}

// ListMessages returns up to limit messages of chatID created before beforeMs,
// oldest first. beforeMs <= 0 means now.
func (db *DB) ListMessages(chatID string, beforeMs int64, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	if beforeMs <= 0 {
		beforeMs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`
		SELECT id, chat_id, sender_id, sender_name, content, status,
			delivered_count, seen_count, total_participants, created_at
		FROM messages
		WHERE chat_id = ? AND created_at < ?
		ORDER BY created_at DESC, stored_at DESC
		LIMIT ?`, chatID, beforeMs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		var (
			m       chat.Message
			status  string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.SenderName, &m.Content, &status,
			&m.DeliveredCount, &m.SeenCount, &m.TotalParticipants, &created); err != nil {
			return nil, err
		}
		m.Status = chat.Status(status)
		m.CreatedAt = fromMillis(created)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// MessageCount returns the total number of archived messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
