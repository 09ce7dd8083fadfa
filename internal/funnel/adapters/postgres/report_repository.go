package postgres

import (
	"context"
	"fmt"
	"time"

	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// FunnelReportRecord is one finished funnel query. Nullable rates stay NULL
// when their denominator was zero.
type FunnelReportRecord struct {
	QueryID    string `gorm:"primaryKey;type:uuid"`
	IndexID    string `gorm:"index;not null"`
	StartEvent string `gorm:"not null"`
	EndEvent   string `gorm:"not null"`
	GapSec     int64  `gorm:"not null"`

	TotalUsers      int
	TotalEventTypes int
	EventsScanned   int64

	StartCount     int64
	EndCount       int64
	TotalMatches   int64
	LatencySum     int64
	CompletionRate *float64
	MatchesPerUser *float64
	MeanLatency    *float64
	MedianLatency  int64
	Histogram      pq.Int64Array `gorm:"type:bigint[]"`

	Workers   int
	LoadMs    int64
	QueryMs   int64
	CreatedAt time.Time `gorm:"index"`
}

func (FunnelReportRecord) TableName() string {
	return "funnel_reports"
}

type ReportRepository struct {
	db *gorm.DB
}

var _ ports.ReportStore = (*ReportRepository)(nil)

// NewReportRepository connects and migrates the funnel_reports table.
func NewReportRepository(dsn string) (*ReportRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&FunnelReportRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &ReportRepository{db: db}, nil
}

func (r *ReportRepository) SaveReport(ctx context.Context, report *domain.FunnelReport) error {
	rec := toRecord(report)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("save funnel report %s: %w", report.QueryID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *ReportRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(r *domain.FunnelReport) FunnelReportRecord {
	return FunnelReportRecord{
		QueryID:    r.QueryID,
		IndexID:    r.IndexID,
		StartEvent: r.StartEvent,
		EndEvent:   r.EndEvent,
		GapSec:     r.Gap,

		TotalUsers:      r.TotalUsers,
		TotalEventTypes: r.TotalEventTypes,
		EventsScanned:   r.EventsScanned,

		StartCount:     r.StartCount,
		EndCount:       r.EndCount,
		TotalMatches:   r.TotalMatches,
		LatencySum:     r.LatencySum,
		CompletionRate: r.CompletionRate,
		MatchesPerUser: r.MatchesPerUser,
		MeanLatency:    r.MeanLatency,
		MedianLatency:  r.MedianLatency,
		Histogram:      pq.Int64Array(r.Histogram.Trimmed()),

		Workers:   r.Workers,
		LoadMs:    r.LoadDuration.Milliseconds(),
		QueryMs:   r.QueryDuration.Milliseconds(),
		CreatedAt: r.CreatedAt,
	}
}
