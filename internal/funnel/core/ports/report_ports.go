package ports

import (
	"context"
	"time"

	"funnel-service/internal/funnel/core/domain"
)

type ReportStore interface {
	SaveReport(ctx context.Context, r *domain.FunnelReport) error
}

// ReportCache keeps finished reports. Reports are never mutated after they are
// built, so cached values may be shared between callers.
type ReportCache interface {
	Get(key string) (*domain.FunnelReport, bool)
	Set(key string, r *domain.FunnelReport)
}

type QueryObserver interface {
	IndexLoaded(ix *domain.EventIndex, took time.Duration)
	QueryCompleted(r *domain.FunnelReport, cached bool)
	QueryFailed(reason string)
}
