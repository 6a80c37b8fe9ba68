package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore appends events to the domain_events table.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Insert appends one event.
func (s *PGStore) Insert(ctx context.Context, e Event) error {
	if s == nil || s.Pool == nil {
		return errors.New("event store not configured")
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO domain_events (id, topic, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Topic, e.AggregateID, e.Payload, e.OccurredAt)
	return err
}
