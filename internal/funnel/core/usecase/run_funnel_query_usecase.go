package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrIndexNotLoaded   = errors.New("event index not loaded")
)

// Failure reasons reported to the QueryObserver.
const (
	FailureInvalidParameter = "invalid_parameter"
	FailureIndexNotLoaded   = "index_not_loaded"
	FailureCanceled         = "canceled"
	FailureInternal         = "internal"
)

// DefaultMaxGap caps the latency histogram at one week of one-second buckets
// when Options.MaxGap is not set. Every worker allocates gap+1 buckets.
const DefaultMaxGap int64 = 7 * 24 * 60 * 60

// cancellation is checked once per this many users inside a partition.
const cancelCheckEvery = 1024

type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

type RunFunnelQueryInput struct {
	StartEvent string
	EndEvent   string
	Gap        int64 // seconds
	Workers    int   // 0 = use the configured default
}

type Options struct {
	DefaultWorkers int   // 0 = runtime.NumCPU()
	MaxGap         int64 // 0 = DefaultMaxGap

	Store    ports.ReportStore   // optional
	Cache    ports.ReportCache   // optional
	Observer ports.QueryObserver // optional
}

type RunFunnelQueryUseCase struct {
	source ports.IndexSource
	opts   Options

	mu           sync.RWMutex
	index        *domain.EventIndex
	loadDuration time.Duration

	now func() time.Time
}

func NewRunFunnelQueryUseCase(source ports.IndexSource, opts Options) *RunFunnelQueryUseCase {
	if opts.DefaultWorkers <= 0 {
		opts.DefaultWorkers = runtime.NumCPU()
	}
	if opts.MaxGap <= 0 {
		opts.MaxGap = DefaultMaxGap
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &RunFunnelQueryUseCase{
		source: source,
		opts:   opts,
		now:    time.Now,
	}
}

// LoadIndex materializes the index from the source and makes it the one
// queried by Execute. Queries already running keep the previous index.
func (uc *RunFunnelQueryUseCase) LoadIndex(ctx context.Context) (*domain.EventIndex, error) {
	start := uc.now()
	ix, err := uc.source.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	took := uc.now().Sub(start)

	uc.mu.Lock()
	uc.index = ix
	uc.loadDuration = took
	uc.mu.Unlock()

	uc.opts.Observer.IndexLoaded(ix, took)
	log.Info().
		Str("index_id", ix.ID()).
		Int("users", ix.UserCount()).
		Int("event_types", ix.EventTypeCount()).
		Int("events", ix.EventCount()).
		Dur("took", took).
		Msg("event index loaded")

	return ix, nil
}

// Index returns the current index, or nil before the first LoadIndex.
func (uc *RunFunnelQueryUseCase) Index() *domain.EventIndex {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.index
}

// Execute runs the funnel query against the loaded index.
func (uc *RunFunnelQueryUseCase) Execute(ctx context.Context, in RunFunnelQueryInput) (*domain.FunnelReport, error) {
	if err := uc.validateInput(in); err != nil {
		uc.opts.Observer.QueryFailed(FailureInvalidParameter)
		return nil, err
	}

	uc.mu.RLock()
	ix, loadDuration := uc.index, uc.loadDuration
	uc.mu.RUnlock()
	if ix == nil {
		uc.opts.Observer.QueryFailed(FailureIndexNotLoaded)
		return nil, ErrIndexNotLoaded
	}

	key := cacheKey(ix, in)
	if uc.opts.Cache != nil {
		if r, ok := uc.opts.Cache.Get(key); ok {
			uc.opts.Observer.QueryCompleted(r, true)
			return r, nil
		}
	}

	workers := uc.resolveWorkers(in.Workers, ix.UserCount())

	start := uc.now()
	agg, err := foldPartitions(ctx, ix, in, workers)
	if err != nil {
		reason := FailureInternal
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reason = FailureCanceled
		}
		uc.opts.Observer.QueryFailed(reason)
		return nil, err
	}
	took := uc.now().Sub(start)

	r := domain.BuildReport(domain.ReportMeta{
		QueryID:       uuid.NewString(),
		StartEvent:    in.StartEvent,
		EndEvent:      in.EndEvent,
		Workers:       workers,
		LoadDuration:  loadDuration,
		QueryDuration: took,
		CreatedAt:     uc.now().UTC(),
	}, ix, agg)

	log.Info().
		Str("query_id", r.QueryID).
		Str("start_event", r.StartEvent).
		Str("end_event", r.EndEvent).
		Int64("gap", r.Gap).
		Int("workers", workers).
		Int64("events_scanned", r.EventsScanned).
		Int64("matches", r.TotalMatches).
		Dur("took", took).
		Msg("funnel query finished")

	if uc.opts.Store != nil {
		if err := uc.opts.Store.SaveReport(ctx, r); err != nil {
			log.Error().Err(err).Str("query_id", r.QueryID).Msg("failed to persist funnel report")
		}
	}
	if uc.opts.Cache != nil {
		uc.opts.Cache.Set(key, r)
	}
	uc.opts.Observer.QueryCompleted(r, false)

	return r, nil
}

func (uc *RunFunnelQueryUseCase) validateInput(in RunFunnelQueryInput) error {
	if in.StartEvent == "" {
		return &InvalidParameterError{Param: "start_event", Reason: "must not be empty"}
	}
	if in.EndEvent == "" {
		return &InvalidParameterError{Param: "end_event", Reason: "must not be empty"}
	}
	if in.Gap < 0 {
		return &InvalidParameterError{Param: "gap", Reason: "must not be negative"}
	}
	if in.Gap > uc.opts.MaxGap {
		return &InvalidParameterError{Param: "gap", Reason: fmt.Sprintf("must not exceed %d seconds", uc.opts.MaxGap)}
	}
	if in.Workers < 0 {
		return &InvalidParameterError{Param: "workers", Reason: "must not be negative"}
	}
	return nil
}

func (uc *RunFunnelQueryUseCase) resolveWorkers(requested, users int) int {
	w := requested
	if w == 0 {
		w = uc.opts.DefaultWorkers
	}
	if w > users {
		w = users
	}
	if w < 1 {
		w = 1
	}
	return w
}

// foldPartitions splits the users into contiguous partitions, folds each into
// its own aggregate and merges them once every partition is done.
func foldPartitions(ctx context.Context, ix *domain.EventIndex, in RunFunnelQueryInput, workers int) (*domain.Aggregate, error) {
	users := ix.Users()
	size := (len(users) + workers - 1) / workers

	partials := make([]*domain.Aggregate, workers)
	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		lo := min(w*size, len(users))
		hi := min(lo+size, len(users))
		agg := domain.NewAggregate(in.Gap)
		partials[w] = agg

		part := users[lo:hi]
		g.Go(func() error {
			for n, u := range part {
				if n%cancelCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				starts, _ := ix.Lookup(u, in.StartEvent)
				ends, _ := ix.Lookup(u, in.EndEvent)
				agg.Fold(starts, ends)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := partials[0]
	for _, p := range partials[1:] {
		if err := total.Merge(p); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func cacheKey(ix *domain.EventIndex, in RunFunnelQueryInput) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d", ix.ID(), in.StartEvent, in.EndEvent, in.Gap)
}

type noopObserver struct{}

func (noopObserver) IndexLoaded(*domain.EventIndex, time.Duration) {}
func (noopObserver) QueryCompleted(*domain.FunnelReport, bool)     {}
func (noopObserver) QueryFailed(string)                            {}
