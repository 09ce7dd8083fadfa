package ports

import (
	"context"

	"funnel-service/internal/events/core/domain"
)

type EventRepositoryPort interface {
	// InsertEvent:
	//   created = true,  err = nil  -> new record
	//   created = false, err = nil  -> duplicate (idempotent retry of the same event_id)
	//   created = false, err != nil -> DB error
	InsertEvent(ctx context.Context, e *domain.Event) (created bool, err error)
}
