// Command funnel loads an event log and prints one funnel report.
//
//	funnel --data events.csv --start_event signup --end_event purchase --gap_sec 60
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"funnel-service/internal/app"
	"funnel-service/internal/funnel/adapters/text"
	"funnel-service/internal/funnel/core/usecase"
	"funnel-service/internal/platform/config"
	"funnel-service/internal/platform/logger"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

type queryFlags struct {
	startEvent string
	endEvent   string
	gapSec     int64
	workers    int
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "funnel:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var q queryFlags

	flags := pflag.NewFlagSet("funnel", pflag.ContinueOnError)
	flags.String("config", "", "config file (default ./config.yaml)")
	flags.String("source", "", "event log source: csv | minio | postgres")
	flags.String("data", "", "CSV file of user_id,event_name,timestamp rows")
	flags.String("log_level", "info", "log level")
	flags.Bool("log_pretty", false, "human readable logs")
	flags.StringVar(&q.startEvent, "start_event", "", "funnel start event name")
	flags.StringVar(&q.endEvent, "end_event", "", "funnel end event name")
	flags.Int64Var(&q.gapSec, "gap_sec", -1, "maximum seconds between start and end (at most query.max_gap_sec, default 604800)")
	flags.IntVar(&q.workers, "workers", 0, "parallel workers (0 = number of CPUs)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if q.startEvent == "" || q.endEvent == "" || !flags.Changed("gap_sec") {
		return errors.New("--start_event, --end_event and --gap_sec are required")
	}

	cfg, err := config.LoadConfig(flags)
	if err != nil {
		return err
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Pretty)

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.Source.Kind == config.SourcePostgres || cfg.Postgres.PersistReports {
		db, err = app.OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	source, err := app.NewIndexSource(cfg, db)
	if err != nil {
		return err
	}
	uc, cleanup, err := app.NewQueryUseCase(cfg, source, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := uc.LoadIndex(ctx); err != nil {
		return err
	}

	report, err := uc.Execute(ctx, usecase.RunFunnelQueryInput{
		StartEvent: q.startEvent,
		EndEvent:   q.endEvent,
		Gap:        q.gapSec,
		Workers:    q.workers,
	})
	if err != nil {
		return err
	}

	log.Debug().Str("query_id", report.QueryID).Msg("writing report")
	return text.WriteReport(stdout, report)
}
