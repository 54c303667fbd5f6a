package store

import (
	"context"
	"fmt"
	"time"
)

// ChatMessage is one entry of the conversation window as handed to the
// completion backend: role plus content, oldest first.
type ChatMessage struct {
	Role    string
	Content string
}

// AppendMessage persists one message and evicts everything beyond the newest
// RetentionCap rows for that chat. Insert and eviction run in one transaction
// so no reader within a later operation ever observes more than the cap.
func (s *Store) AppendMessage(ctx context.Context, chatID int64, role, content string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (chat_id, role, content, created_at)
		VALUES (?, ?, ?, ?)
	`, chatID, role, content, at.UTC().UnixNano()); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert message: %w", err)
	}

	// Keep the RetentionCap rows with the largest (created_at, id); the
	// AUTOINCREMENT id breaks timestamp ties so retention is deterministic.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM messages
		WHERE chat_id = ? AND id NOT IN (
			SELECT id FROM messages
			WHERE chat_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
	`, chatID, chatID, RetentionCap); err != nil {
		tx.Rollback()
		return fmt.Errorf("evict old messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit most recent messages for the chat,
// oldest first. An empty (non-nil) slice is returned when there is no history.
func (s *Store) RecentMessages(ctx context.Context, chatID int64, limit int) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content, created_at FROM messages
			WHERE chat_id = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?
		)
		ORDER BY created_at ASC, id ASC
	`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent messages: %w", err)
	}
	defer rows.Close()

	messages := make([]ChatMessage, 0, limit)
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// CountMessages reports how many messages the chat currently has. A zero
// count means first contact.
func (s *Store) CountMessages(ctx context.Context, chatID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// RecentUserBodiesSince returns the bodies of user-role messages newer than
// cutoff, oldest first. Used by the scheduler's retrospective trigger scan.
func (s *Store) RecentUserBodiesSince(ctx context.Context, chatID int64, cutoff time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content FROM messages
		WHERE chat_id = ? AND role = ? AND created_at > ?
		ORDER BY created_at ASC, id ASC
	`, chatID, RoleUser, cutoff.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("select recent user messages: %w", err)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan message body: %w", err)
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message bodies: %w", err)
	}
	return bodies, nil
}

// ClearMessages deletes all messages for the chat. Clearing an empty chat is
// a no-op, not an error. The chat's stats row is left untouched.
func (s *Store) ClearMessages(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM messages WHERE chat_id = ?`, chatID,
	); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}
