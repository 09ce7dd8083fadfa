package ports

import (
	"context"

	"funnel-service/internal/funnel/core/domain"
)

// IndexSource materializes the full event log into an index.
// A malformed record aborts the load; no partial index is returned.
type IndexSource interface {
	LoadIndex(ctx context.Context) (*domain.EventIndex, error)
}
