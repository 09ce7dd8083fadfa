package cache

import (
	"time"

	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"

	"github.com/dgraph-io/ristretto"
	"github.com/rs/zerolog/log"
)

// reportOverhead approximates the fixed part of a report in bytes.
const reportOverhead = 512

type Config struct {
	MaxSizeMB   int
	CounterSize int
	TTLSeconds  int // 0 = no expiry
}

// ReportCache keeps finished funnel reports in memory, costed by size.
type ReportCache struct {
	client *ristretto.Cache
	ttl    time.Duration
}

var _ ports.ReportCache = (*ReportCache)(nil)

func New(cfg Config) (*ReportCache, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(cfg.CounterSize),
		MaxCost:     int64(cfg.MaxSizeMB) * 1024 * 1024,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("max_size_mb", cfg.MaxSizeMB).
		Int("ttl_seconds", cfg.TTLSeconds).
		Int("counter_size", cfg.CounterSize).
		Msg("report cache initialized")

	return &ReportCache{
		client: client,
		ttl:    time.Duration(cfg.TTLSeconds) * time.Second,
	}, nil
}

func (c *ReportCache) Get(key string) (*domain.FunnelReport, bool) {
	v, ok := c.client.Get(key)
	if !ok {
		return nil, false
	}
	r, ok := v.(*domain.FunnelReport)
	return r, ok
}

// Set is asynchronous: the report may not be visible to Get right away, and
// ristretto may refuse it under memory pressure.
func (c *ReportCache) Set(key string, r *domain.FunnelReport) {
	c.client.SetWithTTL(key, r, cost(r), c.ttl)
}

// Wait blocks until pending writes are applied.
func (c *ReportCache) Wait() {
	c.client.Wait()
}

func (c *ReportCache) Close() {
	c.client.Close()
	log.Info().Msg("report cache closed")
}

func cost(r *domain.FunnelReport) int64 {
	return reportOverhead + int64(len(r.Histogram))*8
}
