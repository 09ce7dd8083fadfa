package usecase_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"funnel-service/internal/funnel/core/domain"
	"funnel-service/internal/funnel/core/usecase"
)

// fakeIndexSource, IndexSource'u test için fake'ler.
type fakeIndexSource struct {
	LoadFn func(ctx context.Context) (*domain.EventIndex, error)
	calls  int
}

func (f *fakeIndexSource) LoadIndex(ctx context.Context) (*domain.EventIndex, error) {
	f.calls++
	if f.LoadFn != nil {
		return f.LoadFn(ctx)
	}
	return domain.NewIndexBuilder().Build(), nil
}

type fakeReportStore struct {
	saved []*domain.FunnelReport
	err   error
}

func (f *fakeReportStore) SaveReport(ctx context.Context, r *domain.FunnelReport) error {
	f.saved = append(f.saved, r)
	return f.err
}

type fakeReportCache struct {
	items map[string]*domain.FunnelReport
	gets  int
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{items: map[string]*domain.FunnelReport{}}
}

func (f *fakeReportCache) Get(key string) (*domain.FunnelReport, bool) {
	f.gets++
	r, ok := f.items[key]
	return r, ok
}

func (f *fakeReportCache) Set(key string, r *domain.FunnelReport) {
	f.items[key] = r
}

type fakeObserver struct {
	loaded    int
	completed []bool
	failures  []string
}

func (f *fakeObserver) IndexLoaded(ix *domain.EventIndex, took time.Duration) { f.loaded++ }
func (f *fakeObserver) QueryCompleted(r *domain.FunnelReport, cached bool) {
	f.completed = append(f.completed, cached)
}
func (f *fakeObserver) QueryFailed(reason string) { f.failures = append(f.failures, reason) }

func sampleIndex() *domain.EventIndex {
	b := domain.NewIndexBuilder()
	// user 1: one start covering two ends
	b.Add(1, "login", 10)
	b.Add(1, "purchase", 15)
	b.Add(1, "purchase", 25)
	// user 2: closest start wins, trailing start unused
	b.Add(2, "login", 10)
	b.Add(2, "login", 20)
	b.Add(2, "login", 100)
	b.Add(2, "purchase", 15)
	b.Add(2, "purchase", 25)
	// user 3: starts only
	b.Add(3, "login", 500)
	// user 4: never starts
	b.Add(4, "purchase", 1)
	b.Add(4, "view", 1)
	// user 5: end too late
	b.Add(5, "login", 1)
	b.Add(5, "purchase", 1000)
	return b.Build()
}

func newLoadedUseCase(t *testing.T, ix *domain.EventIndex, opts usecase.Options) *usecase.RunFunnelQueryUseCase {
	t.Helper()
	src := &fakeIndexSource{
		LoadFn: func(ctx context.Context) (*domain.EventIndex, error) { return ix, nil },
	}
	uc := usecase.NewRunFunnelQueryUseCase(src, opts)
	if _, err := uc.LoadIndex(context.Background()); err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	return uc
}

// ------------------------------------------------------------
// SUCCESS
// ------------------------------------------------------------

func TestRunFunnelQuery_Success(t *testing.T) {
	obs := &fakeObserver{}
	store := &fakeReportStore{}
	uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{Observer: obs, Store: store})

	r, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{
		StartEvent: "login",
		EndEvent:   "purchase",
		Gap:        10,
		Workers:    1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.TotalUsers != 5 || r.TotalEventTypes != 3 {
		t.Fatalf("unexpected totals: users=%d types=%d", r.TotalUsers, r.TotalEventTypes)
	}
	if r.StartCount != 4 {
		t.Fatalf("expected start_count=4, got %d", r.StartCount)
	}
	if r.EndCount != 2 {
		t.Fatalf("expected end_count=2, got %d", r.EndCount)
	}
	// user 1 with gap 10: (10,15) only, 25-10 > 10
	// user 2: (10,15), (20,25)
	if r.TotalMatches != 3 {
		t.Fatalf("expected total_matches=3, got %d", r.TotalMatches)
	}
	if r.LatencySum != 15 {
		t.Fatalf("expected latency_sum=15, got %d", r.LatencySum)
	}
	// users 1, 2 and 5 hold both series
	if r.EventsScanned != 3+5+2 {
		t.Fatalf("expected events_scanned=10, got %d", r.EventsScanned)
	}
	if r.MeanLatency == nil || *r.MeanLatency != 5 {
		t.Fatalf("expected mean latency 5, got %v", r.MeanLatency)
	}
	if r.MedianLatency != 6 {
		t.Fatalf("expected median 6, got %d", r.MedianLatency)
	}
	if r.QueryID == "" {
		t.Fatalf("expected query id")
	}

	if len(store.saved) != 1 || store.saved[0] != r {
		t.Fatalf("expected report to be persisted once")
	}
	if obs.loaded != 1 || !reflect.DeepEqual(obs.completed, []bool{false}) {
		t.Fatalf("unexpected observer state: %+v", obs)
	}
}

func TestRunFunnelQuery_ParallelMatchesSequential(t *testing.T) {
	b := domain.NewIndexBuilder()
	for u := 1; u <= 997; u++ {
		base := int64(u * 7 % 113)
		for k := int64(0); k < int64(u%5); k++ {
			b.Add(domain.UserID(u), "a", base+k*13)
		}
		for k := int64(0); k < int64(u%7); k++ {
			b.Add(domain.UserID(u), "b", base+k*11+3)
		}
	}
	ix := b.Build()
	uc := newLoadedUseCase(t, ix, usecase.Options{})

	in := usecase.RunFunnelQueryInput{StartEvent: "a", EndEvent: "b", Gap: 30, Workers: 1}
	seq, err := uc.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, w := range []int{2, 3, 8, 64, 5000} {
		in.Workers = w
		par, err := uc.Execute(context.Background(), in)
		if err != nil {
			t.Fatalf("workers=%d: unexpected error: %v", w, err)
		}
		if par.StartCount != seq.StartCount ||
			par.EndCount != seq.EndCount ||
			par.TotalMatches != seq.TotalMatches ||
			par.LatencySum != seq.LatencySum ||
			par.EventsScanned != seq.EventsScanned ||
			par.MedianLatency != seq.MedianLatency {
			t.Fatalf("workers=%d: parallel report differs from sequential", w)
		}
		if !reflect.DeepEqual(par.Histogram, seq.Histogram) {
			t.Fatalf("workers=%d: histogram differs", w)
		}
		if par.Workers > ix.UserCount() {
			t.Fatalf("workers=%d: expected workers capped to user count, got %d", w, par.Workers)
		}
	}
}

func TestRunFunnelQuery_UnknownEventsYieldNotApplicable(t *testing.T) {
	uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{})

	r, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{
		StartEvent: "signup",
		EndEvent:   "purchase",
		Gap:        60,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.StartCount != 0 || r.CompletionRate != nil || r.MatchesPerUser != nil || r.MeanLatency != nil {
		t.Fatalf("expected not-applicable report, got %+v", r)
	}
	if r.TotalUsers != 5 {
		t.Fatalf("expected all users still counted, got %d", r.TotalUsers)
	}
}

func TestRunFunnelQuery_EmptyIndex(t *testing.T) {
	uc := newLoadedUseCase(t, domain.NewIndexBuilder().Build(), usecase.Options{})

	r, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{StartEvent: "a", EndEvent: "b", Gap: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TotalUsers != 0 || r.Workers != 1 || r.MedianLatency != 0 {
		t.Fatalf("unexpected report: %+v", r)
	}
}

// ------------------------------------------------------------
// CACHE
// ------------------------------------------------------------

func TestRunFunnelQuery_CacheHit(t *testing.T) {
	cache := newFakeReportCache()
	obs := &fakeObserver{}
	store := &fakeReportStore{}
	uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{Cache: cache, Observer: obs, Store: store})

	in := usecase.RunFunnelQueryInput{StartEvent: "login", EndEvent: "purchase", Gap: 10}
	first, err := uc.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Execute(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Fatalf("expected cached report to be returned")
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected cached query not to be persisted again, got %d saves", len(store.saved))
	}
	if !reflect.DeepEqual(obs.completed, []bool{false, true}) {
		t.Fatalf("unexpected observer completions: %v", obs.completed)
	}
}

func TestRunFunnelQuery_ReloadInvalidatesCache(t *testing.T) {
	cache := newFakeReportCache()
	src := &fakeIndexSource{
		LoadFn: func(ctx context.Context) (*domain.EventIndex, error) { return sampleIndex(), nil },
	}
	uc := usecase.NewRunFunnelQueryUseCase(src, usecase.Options{Cache: cache})

	in := usecase.RunFunnelQueryInput{StartEvent: "login", EndEvent: "purchase", Gap: 10}

	if _, err := uc.LoadIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := uc.Execute(context.Background(), in)

	if _, err := uc.LoadIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := uc.Execute(context.Background(), in)

	if first == second || first.IndexID == second.IndexID {
		t.Fatalf("expected a fresh report after reload")
	}
	if len(cache.items) != 2 {
		t.Fatalf("expected 2 cache entries, got %d", len(cache.items))
	}
}

// ------------------------------------------------------------
// VALIDATION
// ------------------------------------------------------------

func TestRunFunnelQuery_InvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		in    usecase.RunFunnelQueryInput
		param string
	}{
		{"empty start", usecase.RunFunnelQueryInput{EndEvent: "b", Gap: 1}, "start_event"},
		{"empty end", usecase.RunFunnelQueryInput{StartEvent: "a", Gap: 1}, "end_event"},
		{"negative gap", usecase.RunFunnelQueryInput{StartEvent: "a", EndEvent: "b", Gap: -1}, "gap"},
		{"gap over max", usecase.RunFunnelQueryInput{StartEvent: "a", EndEvent: "b", Gap: 101}, "gap"},
		{"negative workers", usecase.RunFunnelQueryInput{StartEvent: "a", EndEvent: "b", Gap: 1, Workers: -2}, "workers"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := &fakeObserver{}
			uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{MaxGap: 100, Observer: obs})

			out, err := uc.Execute(context.Background(), tc.in)
			if !errors.Is(err, usecase.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var pe *usecase.InvalidParameterError
			if !errors.As(err, &pe) || pe.Param != tc.param {
				t.Fatalf("expected InvalidParameterError for %s, got %v", tc.param, err)
			}
			if out != nil {
				t.Fatalf("expected nil result on error")
			}
			if !reflect.DeepEqual(obs.failures, []string{usecase.FailureInvalidParameter}) {
				t.Fatalf("unexpected failures: %v", obs.failures)
			}
		})
	}
}

func TestRunFunnelQuery_GapBoundedWithoutMaxGap(t *testing.T) {
	cases := []struct {
		name string
		gap  int64
	}{
		{"max int64", math.MaxInt64},
		{"huge allocation", 10_000_000_000},
		{"one past default", usecase.DefaultMaxGap + 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{MaxGap: 0})

			out, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{
				StartEvent: "login",
				EndEvent:   "purchase",
				Gap:        tc.gap,
			})
			var pe *usecase.InvalidParameterError
			if !errors.As(err, &pe) || pe.Param != "gap" {
				t.Fatalf("expected InvalidParameterError for gap, got %v", err)
			}
			if out != nil {
				t.Fatalf("expected nil result on error")
			}
		})
	}

	// Sınırdaki gap hâlâ geçerli olmalı.
	uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{})
	r, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{
		StartEvent: "login",
		EndEvent:   "purchase",
		Gap:        usecase.DefaultMaxGap,
	})
	if err != nil {
		t.Fatalf("unexpected error at the default bound: %v", err)
	}
	if int64(len(r.Histogram)) != usecase.DefaultMaxGap+1 {
		t.Fatalf("expected %d buckets, got %d", usecase.DefaultMaxGap+1, len(r.Histogram))
	}
}

func TestRunFunnelQuery_IndexNotLoaded(t *testing.T) {
	src := &fakeIndexSource{}
	uc := usecase.NewRunFunnelQueryUseCase(src, usecase.Options{})

	out, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{StartEvent: "a", EndEvent: "b"})
	if !errors.Is(err, usecase.ErrIndexNotLoaded) {
		t.Fatalf("expected ErrIndexNotLoaded, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil result")
	}
	if src.calls != 0 {
		t.Fatalf("source should not be called by Execute")
	}
}

// ------------------------------------------------------------
// ERROR PROPAGATION
// ------------------------------------------------------------

func TestRunFunnelQuery_LoadError(t *testing.T) {
	src := &fakeIndexSource{
		LoadFn: func(ctx context.Context) (*domain.EventIndex, error) {
			return nil, errors.New("bad record")
		},
	}
	uc := usecase.NewRunFunnelQueryUseCase(src, usecase.Options{})

	ix, err := uc.LoadIndex(context.Background())
	if err == nil || err.Error() != "bad record" {
		t.Fatalf("expected bad record error, got %v", err)
	}
	if ix != nil || uc.Index() != nil {
		t.Fatalf("expected no index after failed load")
	}
}

func TestRunFunnelQuery_StoreErrorIsNotFatal(t *testing.T) {
	store := &fakeReportStore{err: errors.New("db failure")}
	uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{Store: store})

	r, err := uc.Execute(context.Background(), usecase.RunFunnelQueryInput{StartEvent: "login", EndEvent: "purchase", Gap: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil {
		t.Fatalf("expected report despite store failure")
	}
}

func TestRunFunnelQuery_Canceled(t *testing.T) {
	obs := &fakeObserver{}
	uc := newLoadedUseCase(t, sampleIndex(), usecase.Options{Observer: obs})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := uc.Execute(ctx, usecase.RunFunnelQueryInput{StartEvent: "login", EndEvent: "purchase", Gap: 10, Workers: 2})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil result")
	}
	if !reflect.DeepEqual(obs.failures, []string{usecase.FailureCanceled}) {
		t.Fatalf("unexpected failures: %v", obs.failures)
	}
}
