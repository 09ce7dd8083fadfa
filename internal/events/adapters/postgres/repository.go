package postgres

import (
	"context"

	"funnel-service/internal/events/core/domain"
	"funnel-service/internal/events/core/ports"
)

type EventRepository struct {
	db DB
}

func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

var _ ports.EventRepositoryPort = (*EventRepository)(nil)

// SQL template
const insertEventSQL = `
INSERT INTO events (
    event_id,
    user_id,
    event_name,
    event_time,
    dedupe_key
) VALUES (
    $1, $2, $3, $4, $5
)
ON CONFLICT (dedupe_key) DO NOTHING;
`

func (r *EventRepository) InsertEvent(ctx context.Context, e *domain.Event) (bool, error) {

	var eventID any
	if e.EventID == "" {
		eventID = nil
	} else {
		eventID = e.EventID
	}

	res, err := r.db.ExecContext(ctx, insertEventSQL,
		eventID,
		e.UserID,
		e.EventName,
		e.EventTime,
		e.DedupeKey,
	)
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	// rows == 1  -> new record
	// rows == 0  -> duplicate (ON CONFLICT DO NOTHING)
	return rows > 0, nil
}
