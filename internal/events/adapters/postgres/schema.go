package postgres

import (
	"context"
	"fmt"
)

const createEventsSQL = `
CREATE TABLE IF NOT EXISTS events (
    id         BIGSERIAL PRIMARY KEY,
    event_id   TEXT,
    user_id    BIGINT NOT NULL,
    event_name TEXT NOT NULL,
    event_time TIMESTAMPTZ NOT NULL,
    dedupe_key TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS events_user_time_idx ON events (user_id, event_time);
`

// EnsureSchema creates the events table when it does not exist yet.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.ExecContext(ctx, createEventsSQL); err != nil {
		return fmt.Errorf("create events schema: %w", err)
	}
	return nil
}
