package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
	"github.com/agnivesh13/Price-Feed-Parser/internal/credentials"
)

// TickerSource provides the symbol universe for a run.
type TickerSource interface {
	LoadTickers(ctx context.Context) ([]string, error)
}

// Scheduler fans one fetch task per symbol across a bounded worker pool
// and aggregates the run outcome. Concurrency is capped independently
// of the rate windows, which additionally throttle the aggregate
// request rate across all in-flight workers.
type Scheduler struct {
	worker         *Worker
	tickers        TickerSource
	creds          *credentials.Store
	observer       Observer
	log            *zap.Logger
	maxConcurrency int
}

// NewScheduler wires a scheduler. A nil observer is replaced with
// NopObserver; maxConcurrency below 1 is clamped to 1.
func NewScheduler(worker *Worker, tickers TickerSource, creds *credentials.Store, observer Observer, maxConcurrency int, log *zap.Logger) *Scheduler {
	if observer == nil {
		observer = NopObserver{}
	}
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Scheduler{
		worker:         worker,
		tickers:        tickers,
		creds:          creds,
		observer:       observer,
		log:            log,
		maxConcurrency: maxConcurrency,
	}
}

// Run executes one ingest pass over the whole symbol universe. Loading
// the ticker list or the credentials fails the run before any fetch
// starts; after that every symbol produces exactly one result and the
// run always drains. The summary is returned even when the run is
// reported failed.
func (s *Scheduler) Run(ctx context.Context) (core.RunSummary, error) {
	symbols, err := s.tickers.LoadTickers(ctx)
	if err != nil {
		return core.RunSummary{}, err
	}
	if err := s.creds.Load(ctx); err != nil {
		return core.RunSummary{}, err
	}

	ingestTS := time.Now().UTC().Truncate(time.Second)
	runID := uuid.NewString()
	log := s.log.With(zap.String("run_id", runID))

	log.Info("starting ingest run",
		zap.Int("symbols", len(symbols)),
		zap.Time("ingest_ts", ingestTS),
		zap.Int("max_concurrency", s.maxConcurrency))

	results := make(chan core.IngestResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)
	for _, symbol := range symbols {
		g.Go(func() error {
			// Per-symbol failures become results, never group errors,
			// so one bad symbol cannot cancel its siblings.
			results <- s.worker.FetchOne(gctx, symbol, ingestTS)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
	close(results)

	summary := core.RunSummary{Total: len(symbols)}
	for r := range results {
		if r.Succeeded {
			summary.Success++
		} else {
			summary.Failed++
		}
	}
	s.observer.RunCompleted(summary)

	log.Info("ingest run complete",
		zap.Int("success", summary.Success),
		zap.Int("failed", summary.Failed),
		zap.Int("total", summary.Total))

	if summary.HasFailures() {
		return summary, core.WrapError(core.ErrRunFailed,
			fmt.Errorf("%d of %d symbols failed", summary.Failed, summary.Total))
	}
	return summary, nil
}
