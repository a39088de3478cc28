package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-photoedit/internal/db"
)

// PgStore persists events in the domain_events table.
type PgStore struct {
	DB db.DBTX
}

const insertEvent = `INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, topic, aggregate_id, payload, occurred_at`

// Insert stores ev and returns the stored row.
func (s PgStore) Insert(ctx context.Context, ev Event) (Event, error) {
	var out Event
	err := s.DB.QueryRow(ctx, insertEvent, ev.ID, ev.Topic, ev.AggregateID, []byte(ev.Payload), ev.OccurredAt).
		Scan(&out.ID, &out.Topic, &out.AggregateID, &out.Payload, &out.OccurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return out, nil
}

const listEventsByAggregate = `SELECT id, topic, aggregate_id, payload, occurred_at
FROM domain_events WHERE aggregate_id = $1 ORDER BY occurred_at, id`

// ListByAggregate returns the events recorded for one aggregate, oldest first.
func (s PgStore) ListByAggregate(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	rows, err := s.DB.Query(ctx, listEventsByAggregate, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("list domain events: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var ev Event
		err := row.Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
		return ev, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan domain events: %w", err)
	}
	return out, nil
}
