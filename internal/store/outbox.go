package store

import "time"

// QueueOutbox records a message that could not be written to the socket.
// Queuing the same message twice keeps the first entry.
func (db *DB) QueueOutbox(msgID, chatID, content string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO outbox (msg_id, chat_id, content, status, created_at, updated_at)
		VALUES (?, ?, ?, 'queued', ?, ?)
		ON CONFLICT(msg_id) DO NOTHING`,
		msgID, chatID, content, now, now)
	return err
}

// MarkOutboxSent marks an entry as written to the socket.
func (db *DB) MarkOutboxSent(msgID string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'sent', error_message = '', updated_at = ? WHERE msg_id = ?`, now, msgID)
	return err
}

// MarkOutboxFailed gives up on an entry, keeping the error for inspection.
func (db *DB) MarkOutboxFailed(msgID, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`UPDATE outbox SET status = 'failed', error_message = ?, updated_at = ? WHERE msg_id = ?`, errMsg, now, msgID)
	return err
}

// PendingOutbox returns the queued entries of chatID in the order they were queued.
func (db *DB) PendingOutbox(chatID string) ([]OutboxEntry, error) {
	rows, err := db.Query(`
		SELECT id, msg_id, chat_id, content, status, error_message, created_at
		FROM outbox WHERE status = 'queued' AND chat_id = ? ORDER BY id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.MsgID, &e.ChatID, &e.Content, &e.Status, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
