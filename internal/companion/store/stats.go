package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// dateLayout is the calendar-date format used for the day counter and the
// boundary ledger field.
const dateLayout = "2006-01-02"

// ChatStats is a snapshot of the per-chat stats row. Timestamp fields are
// zero when never set; a stored value that fails to parse is also reported
// as zero so a corrupted ledger re-enables the reminder instead of wedging
// it off permanently.
type ChatStats struct {
	ChatID int64
	// MessagesToday is the number of messages recorded on LastMessageDate.
	MessagesToday int
	// LastMessageDate is the calendar date ("2006-01-02") of the most recent
	// recorded activity, empty when the chat has never been active.
	LastMessageDate string
	// LastAffirmationAt is when the scheduler last sent an affirmation.
	LastAffirmationAt time.Time
	// LastBoundaryDate is the day the boundary reminder was last sent,
	// at midnight UTC.
	LastBoundaryDate time.Time
}

// RecordActivity bumps the day counter for the chat: first activity ever or
// first activity of a new calendar day sets the count to 1, same-day activity
// increments it. The new count is returned so the caller can detect the
// dependency-warning threshold transition. Read-modify-write cycles are
// serialized across callers.
func (s *Store) RecordActivity(ctx context.Context, chatID int64, at time.Time) (int, error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	day := at.Format(dateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin stats tx: %w", err)
	}

	var count int
	var lastDate sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT message_count, last_message_date FROM chat_stats WHERE chat_id = ?`,
		chatID,
	).Scan(&count, &lastDate)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		count = 1
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_stats (chat_id, message_count, last_message_date)
			VALUES (?, ?, ?)
		`, chatID, count, day); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("insert stats: %w", err)
		}
	case err != nil:
		tx.Rollback()
		return 0, fmt.Errorf("read stats: %w", err)
	default:
		if lastDate.Valid && lastDate.String == day {
			count++
		} else {
			count = 1
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE chat_stats SET message_count = ?, last_message_date = ?
			WHERE chat_id = ?
		`, count, day, chatID); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("update stats: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stats tx: %w", err)
	}
	return count, nil
}

// Stats returns the current stats snapshot for the chat. A zero-valued
// snapshot is returned when no row exists yet.
func (s *Store) Stats(ctx context.Context, chatID int64) (ChatStats, error) {
	stats := ChatStats{ChatID: chatID}

	var lastDate, affirmationAt, boundaryDate sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT message_count, last_message_date, last_affirmation_at, last_boundary_date
		FROM chat_stats WHERE chat_id = ?
	`, chatID).Scan(&stats.MessagesToday, &lastDate, &affirmationAt, &boundaryDate)
	if errors.Is(err, sql.ErrNoRows) {
		return stats, nil
	}
	if err != nil {
		return ChatStats{ChatID: chatID}, fmt.Errorf("read stats: %w", err)
	}

	if lastDate.Valid {
		stats.LastMessageDate = lastDate.String
	}
	if affirmationAt.Valid && affirmationAt.String != "" {
		t, err := time.Parse(time.RFC3339, affirmationAt.String)
		if err != nil {
			slog.Warn("unparsable affirmation ledger value; treating as never sent",
				"chat_id", chatID, "value", affirmationAt.String)
		} else {
			stats.LastAffirmationAt = t
		}
	}
	if boundaryDate.Valid && boundaryDate.String != "" {
		t, err := time.ParseInLocation(dateLayout, boundaryDate.String, time.UTC)
		if err != nil {
			slog.Warn("unparsable boundary ledger value; treating as never sent",
				"chat_id", chatID, "value", boundaryDate.String)
		} else {
			stats.LastBoundaryDate = t
		}
	}
	return stats, nil
}

// LastAffirmationAt returns when the affirmation reminder last went out,
// zero when never (or when the stored value is unparsable).
func (s *Store) LastAffirmationAt(ctx context.Context, chatID int64) (time.Time, error) {
	stats, err := s.Stats(ctx, chatID)
	if err != nil {
		return time.Time{}, err
	}
	return stats.LastAffirmationAt, nil
}

// MarkAffirmationSent records when the scheduler last delivered an
// affirmation. Only that field is touched: sibling fields written by other
// call sites are never clobbered.
func (s *Store) MarkAffirmationSent(ctx context.Context, chatID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_stats (chat_id, last_affirmation_at)
		VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			last_affirmation_at = excluded.last_affirmation_at
	`, chatID, at.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mark affirmation sent: %w", err)
	}
	return nil
}

// MarkBoundarySent records the day the boundary reminder was last delivered.
// Field-level upsert, same partial-update semantics as MarkAffirmationSent.
func (s *Store) MarkBoundarySent(ctx context.Context, chatID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_stats (chat_id, last_boundary_date)
		VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			last_boundary_date = excluded.last_boundary_date
	`, chatID, at.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("mark boundary sent: %w", err)
	}
	return nil
}
