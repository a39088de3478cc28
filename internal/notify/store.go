package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-photoedit/internal/db"
)

// Store loads and saves preferences.
type Store interface {
	// Get returns the saved preferences of userID, or Defaults when none exist.
	Get(ctx context.Context, userID string) (Preferences, error)
	Upsert(ctx context.Context, p Preferences) (Preferences, error)
}

// PgStore persists preferences in the notification_preferences table.
type PgStore struct {
	DB db.DBTX
}

const preferenceColumns = `user_id, in_app, email, push, order_updates, payment_updates, editor_assignments,
marketing, silent_mode, silent_start, silent_end, timezone, updated_at`

const selectPreferences = `SELECT ` + preferenceColumns + ` FROM notification_preferences WHERE user_id = $1`

const upsertPreferences = `INSERT INTO notification_preferences (user_id, in_app, email, push, order_updates,
payment_updates, editor_assignments, marketing, silent_mode, silent_start, silent_end, timezone, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
ON CONFLICT (user_id) DO UPDATE SET
  in_app = EXCLUDED.in_app,
  email = EXCLUDED.email,
  push = EXCLUDED.push,
  order_updates = EXCLUDED.order_updates,
  payment_updates = EXCLUDED.payment_updates,
  editor_assignments = EXCLUDED.editor_assignments,
  marketing = EXCLUDED.marketing,
  silent_mode = EXCLUDED.silent_mode,
  silent_start = EXCLUDED.silent_start,
  silent_end = EXCLUDED.silent_end,
  timezone = EXCLUDED.timezone,
  updated_at = now()
RETURNING ` + preferenceColumns

// Get implements Store.
func (s PgStore) Get(ctx context.Context, userID string) (Preferences, error) {
	p, err := scanPreferences(s.DB.QueryRow(ctx, selectPreferences, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Defaults(userID), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("get notification preferences: %w", err)
	}
	return p, nil
}

// Upsert implements Store.
func (s PgStore) Upsert(ctx context.Context, p Preferences) (Preferences, error) {
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	row := s.DB.QueryRow(ctx, upsertPreferences,
		p.UserID, p.InApp, p.Email, p.Push, p.OrderUpdates, p.PaymentUpdates, p.EditorAssignments,
		p.Marketing, p.SilentMode, clockToTime(p.SilentStart), clockToTime(p.SilentEnd), p.Timezone,
	)
	saved, err := scanPreferences(row)
	if err != nil {
		return Preferences{}, fmt.Errorf("save notification preferences: %w", err)
	}
	return saved, nil
}

func scanPreferences(row pgx.Row) (Preferences, error) {
	var (
		p          Preferences
		start, end pgtype.Time
		updated    pgtype.Timestamptz
	)
	err := row.Scan(&p.UserID, &p.InApp, &p.Email, &p.Push, &p.OrderUpdates, &p.PaymentUpdates,
		&p.EditorAssignments, &p.Marketing, &p.SilentMode, &start, &end, &p.Timezone, &updated)
	if err != nil {
		return Preferences{}, err
	}
	p.SilentStart = timeToClock(start)
	p.SilentEnd = timeToClock(end)
	if updated.Valid {
		p.UpdatedAt = updated.Time
	}
	return p, nil
}

func clockToTime(c Clock) pgtype.Time {
	return pgtype.Time{Microseconds: int64(c) * int64(time.Minute/time.Microsecond), Valid: true}
}

func timeToClock(t pgtype.Time) Clock {
	if !t.Valid {
		return 0
	}
	return Clock(t.Microseconds / int64(time.Minute/time.Microsecond))
}
