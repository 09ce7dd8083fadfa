// Package app assembles the funnel service from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	csvsource "funnel-service/internal/events/adapters/csv"
	miniosource "funnel-service/internal/events/adapters/minio"
	eventsRepoPg "funnel-service/internal/events/adapters/postgres"
	"funnel-service/internal/funnel/adapters/cache"
	reportsRepoPg "funnel-service/internal/funnel/adapters/postgres"
	"funnel-service/internal/funnel/core/ports"
	"funnel-service/internal/funnel/core/usecase"
	"funnel-service/internal/platform/config"

	_ "github.com/lib/pq"
)

var errNoDatabase = errors.New("postgres source needs a database connection")

// OpenPostgres opens and pings the event store database.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// NewIndexSource picks the event log source named by cfg.Source.Kind.
// db is only used by the postgres source and may be nil otherwise.
func NewIndexSource(cfg config.Config, db *sql.DB) (ports.IndexSource, error) {
	switch cfg.Source.Kind {
	case config.SourceCSV:
		return csvsource.FileSource{Path: cfg.Source.CSVPath}, nil
	case config.SourceMinio:
		src, err := miniosource.NewObjectSource(miniosource.Config{
			Endpoint:  cfg.Minio.Endpoint,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Bucket:    cfg.Minio.Bucket,
			Object:    cfg.Minio.Object,
			UseSSL:    cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourcePostgres:
		if db == nil {
			return nil, errNoDatabase
		}
		return eventsRepoPg.NewIndexRepository(eventsRepoPg.NewSQLDB(db), cfg.Source.EventNames...), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// NewQueryUseCase builds the funnel query usecase with the optional cache and
// report store the config asks for. The returned cleanup releases both.
func NewQueryUseCase(cfg config.Config, source ports.IndexSource, observer ports.QueryObserver) (*usecase.RunFunnelQueryUseCase, func(), error) {
	opts := usecase.Options{
		DefaultWorkers: cfg.Query.Workers,
		MaxGap:         cfg.Query.MaxGapSec,
		Observer:       observer,
	}
	var closers []func()

	if cfg.Cache.Enabled {
		c, err := cache.New(cache.Config{
			MaxSizeMB:   cfg.Cache.MaxSizeMB,
			CounterSize: cfg.Cache.CounterSize,
			TTLSeconds:  cfg.Cache.TTLSeconds,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
		opts.Cache = c
		closers = append(closers, c.Close)
	}

	if cfg.Postgres.PersistReports {
		store, err := reportsRepoPg.NewReportRepository(cfg.Postgres.DSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		opts.Store = store
		closers = append(closers, func() { store.Close() })
	}

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return usecase.NewRunFunnelQueryUseCase(source, opts), cleanup, nil
}
