package postgres

import (
	"context"
	"fmt"
	"time"

	"funnel-service/internal/events/core/domain"
	funnel "funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"

	"github.com/lib/pq"
)

const indexSource = "postgres:events"

// IndexRepository materializes the events table into a funnel index.
type IndexRepository struct {
	db         DB
	eventNames []string
}

// NewIndexRepository loads every event, or only the given event names when
// any are passed.
func NewIndexRepository(db DB, eventNames ...string) *IndexRepository {
	return &IndexRepository{db: db, eventNames: eventNames}
}

var _ ports.IndexSource = (*IndexRepository)(nil)

func (r *IndexRepository) LoadIndex(ctx context.Context) (*funnel.EventIndex, error) {
	query := `
SELECT
    user_id,
    event_name,
    event_time
FROM events`
	var args []any

	if len(r.eventNames) > 0 {
		query += `
WHERE event_name = ANY($1)`
		args = append(args, pq.Array(r.eventNames))
	}
	query += `
ORDER BY user_id, event_time, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	b := funnel.NewIndexBuilder()
	row := 0
	for rows.Next() {
		row++

		var userID int64
		var name string
		var ts time.Time
		if err := rows.Scan(&userID, &name, &ts); err != nil {
			return nil, &domain.MalformedRecordError{Source: indexSource, Line: row, Reason: err.Error()}
		}
		if name == "" {
			return nil, &domain.MalformedRecordError{Source: indexSource, Line: row, Reason: "empty event name"}
		}

		b.Add(funnel.UserID(userID), name, ts.Unix())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}

	return b.Build(), nil
}
