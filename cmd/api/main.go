package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	eventsHttp "funnel-service/internal/events/adapters/http/fiber"
	eventsRepoPg "funnel-service/internal/events/adapters/postgres"
	eventsUsecase "funnel-service/internal/events/core/usecase"

	"funnel-service/internal/app"
	funnelHttp "funnel-service/internal/funnel/adapters/http/fiber"
	"funnel-service/internal/funnel/adapters/telemetry"
	"funnel-service/internal/platform/config"
	"funnel-service/internal/platform/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	fiberSwagger "github.com/swaggo/fiber-swagger"

	_ "funnel-service/docs"
)

// @title Funnel Service API
// @version 1.0
// @description In-memory two-step funnel measurement over a user event log.
// @host localhost:8080
// @BasePath /

func main() {
	flags := pflag.NewFlagSet("api", pflag.ExitOnError)
	flags.String("config", "", "config file (default ./config.yaml)")
	flags.String("source", "", "event log source: csv | minio | postgres")
	flags.String("data", "", "CSV event log for the csv source")
	flags.String("port", "", "HTTP port")
	flags.String("log_level", "", "log level")
	flags.Parse(os.Args[1:])

	// Config
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		logger.Initialize("info", true)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// DB connection (event store and, optionally, the index source)
	var db *sql.DB
	if cfg.Postgres.DSN != "" {
		db, err = app.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable")
		}
		defer db.Close()

		if err := eventsRepoPg.EnsureSchema(ctx, eventsRepoPg.NewSQLDB(db)); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare events table")
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	// Usecases
	source, err := app.NewIndexSource(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event source")
	}
	funnelUC, cleanup, err := app.NewQueryUseCase(cfg, source, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create funnel usecase")
	}
	defer cleanup()

	if _, err := funnelUC.LoadIndex(ctx); err != nil {
		log.Fatal().Err(err).Str("source", cfg.Source.Kind).Msg("failed to load event index")
	}

	// HTTP (Fiber) app + handlers
	srv := fiber.New(fiber.Config{DisableStartupMessage: true})

	// events endpoints
	if db != nil {
		storeEventUC := eventsUsecase.NewStoreEventUseCase(eventsRepoPg.NewEventRepository(eventsRepoPg.NewSQLDB(db)))
		eventsHandler := eventsHttp.NewEventHandler(storeEventUC)
		srv.Post("/events", eventsHandler.CreateEvent)
		srv.Post("/events/bulk", eventsHandler.BulkCreateEvents)
	} else {
		log.Warn().Msg("postgres.dsn not set, event ingestion endpoints disabled")
	}

	// funnel endpoints
	funnelHandler := funnelHttp.NewFunnelHandler(funnelUC)
	srv.Get("/funnels", funnelHandler.GetFunnel)
	srv.Post("/funnels/reload", funnelHandler.ReloadIndex)

	srv.Get("/healthz", func(c *fiber.Ctx) error {
		ix := funnelUC.Index()
		return c.JSON(fiber.Map{
			"status":   "ok",
			"index_id": ix.ID(),
			"users":    ix.UserCount(),
		})
	})
	srv.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Swagger
	srv.Get("/docs/*", fiberSwagger.WrapHandler)

	// Graceful shutdown
	addr := ":" + cfg.Server.Port
	go func() {
		if err := srv.Listen(addr); err != nil {
			log.Error().Err(err).Msg("fiber stopped")
		}
	}()

	log.Info().Str("addr", addr).Str("source", cfg.Source.Kind).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("fiber shutdown error")
	}

	log.Info().Msg("server exiting")
}
