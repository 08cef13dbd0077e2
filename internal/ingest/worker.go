package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
	"github.com/agnivesh13/Price-Feed-Parser/internal/credentials"
	"github.com/agnivesh13/Price-Feed-Parser/internal/fyers"
	"github.com/agnivesh13/Price-Feed-Parser/internal/ratelimit"
	"github.com/agnivesh13/Price-Feed-Parser/internal/storage"
)

// HistoryClient performs one history request. The fyers client
// implements this; tests script fakes.
type HistoryClient interface {
	History(ctx context.Context, creds core.CredentialSet, p core.HistoryParams) (*fyers.HistoryReply, error)
}

// Observer receives best-effort ingest telemetry. Its implementations
// must never influence retry or outcome logic.
type Observer interface {
	SymbolSucceeded(symbol string, attempts int)
	SymbolFailed(symbol string, attempts int)
	TokenRefreshed(ok bool)
	RunCompleted(summary core.RunSummary)
}

// NopObserver discards all telemetry.
type NopObserver struct{}

func (NopObserver) SymbolSucceeded(string, int)    {}
func (NopObserver) SymbolFailed(string, int)       {}
func (NopObserver) TokenRefreshed(bool)            {}
func (NopObserver) RunCompleted(core.RunSummary)   {}

// WorkerConfig holds the retry policy knobs.
type WorkerConfig struct {
	MaxAttempts   int           // attempt cap per symbol
	BackoffBase   time.Duration // first retry delay, doubles per attempt
	BackoffJitter time.Duration // additive uniform jitter range
	SettleDelay   time.Duration // pause after a refresh before retrying
	Resolution    string        // candle resolution, "1" for minute bars
	IngestTags    string        // free-form tag string stamped on raw objects
}

// DefaultWorkerConfig mirrors the production defaults.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		MaxAttempts:   5,
		BackoffBase:   2 * time.Second,
		BackoffJitter: 500 * time.Millisecond,
		SettleDelay:   500 * time.Millisecond,
		Resolution:    "1",
	}
}

// Worker drives the attempt loop for single symbols: rate gate, request,
// classify, retry or escalate, persist.
type Worker struct {
	cfg      WorkerConfig
	client   HistoryClient
	limiter  *ratelimit.Dual
	creds    *credentials.Store
	sink     *storage.Sink
	observer Observer
	log      *zap.Logger
}

// NewWorker wires a worker. A nil observer is replaced with NopObserver.
func NewWorker(cfg WorkerConfig, client HistoryClient, limiter *ratelimit.Dual, creds *credentials.Store, sink *storage.Sink, observer Observer, log *zap.Logger) *Worker {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Worker{
		cfg:      cfg,
		client:   client,
		limiter:  limiter,
		creds:    creds,
		sink:     sink,
		observer: observer,
		log:      log,
	}
}

// FetchOne runs up to MaxAttempts attempts for one symbol and returns
// exactly one result. All failure modes are converted to the result;
// nothing escapes to abort sibling symbols.
func (w *Worker) FetchOne(ctx context.Context, symbol string, ingestTS time.Time) core.IngestResult {
	day := ingestTS.UTC().Format("2006-01-02")
	params := core.HistoryParams{
		Symbol:     symbol,
		Resolution: w.cfg.Resolution,
		RangeFrom:  day,
		RangeTo:    day,
	}

	var lastStatus int
	var lastNote string
	attempt := 0
	for attempt < w.cfg.MaxAttempts {
		attempt++

		if err := w.limiter.Wait(ctx); err != nil {
			return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus, "run cancelled: "+err.Error())
		}

		creds := w.creds.Snapshot()
		if !creds.CanRequest() {
			w.log.Warn("missing client id or access token; refreshing before request",
				zap.String("symbol", symbol))
			if _, err := w.creds.Refresh(ctx); err != nil {
				w.observer.TokenRefreshed(false)
			} else {
				w.observer.TokenRefreshed(true)
			}
			creds = w.creds.Snapshot()
			if !creds.CanRequest() {
				return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus, "missing_credentials")
			}
		}

		reply, err := w.client.History(ctx, creds, params)
		out := Classify(reply, err)
		if out.Status != 0 {
			lastStatus = out.Status
		}

		switch decide(out.Kind) {
		case actSucceed:
			if err := w.persist(ctx, symbol, ingestTS, out.Body); err != nil {
				return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus, "sink write failed: "+err.Error())
			}
			w.observer.SymbolSucceeded(symbol, attempt)
			w.log.Info("symbol ingested",
				zap.String("symbol", symbol),
				zap.Int("attempts", attempt))
			return core.IngestResult{Symbol: symbol, Succeeded: true, Attempts: attempt, Status: out.Status}

		case actRefresh:
			lastNote = describe(out)
			w.log.Warn("auth failure; attempting token refresh",
				zap.String("symbol", symbol),
				zap.String("outcome", out.Kind.String()),
				zap.Int("status", out.Status),
				zap.String("message", out.Message))
			if _, rerr := w.creds.Refresh(ctx); rerr != nil {
				w.observer.TokenRefreshed(false)
				return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus,
					"permanent auth failure: "+rerr.Error())
			}
			w.observer.TokenRefreshed(true)
			// Short pause so the fresh token settles provider-side.
			if err := sleep(ctx, w.cfg.SettleDelay); err != nil {
				return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus, "run cancelled: "+err.Error())
			}

		default: // actRetry
			lastNote = describe(out)
			wait := out.RetryAfter
			if wait <= 0 {
				wait = Backoff(w.cfg.BackoffBase, attempt, w.cfg.BackoffJitter)
			}
			w.log.Warn("transient failure; backing off",
				zap.String("symbol", symbol),
				zap.String("outcome", out.Kind.String()),
				zap.Int("status", out.Status),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", w.cfg.MaxAttempts),
				zap.Duration("wait", wait))
			if err := sleep(ctx, wait); err != nil {
				return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus, "run cancelled: "+err.Error())
			}
		}
	}

	note := fmt.Sprintf("exhausted %d attempts", w.cfg.MaxAttempts)
	if lastNote != "" {
		note += "; last: " + lastNote
	}
	return w.fail(ctx, symbol, params, ingestTS, attempt, lastStatus, note)
}

// persist wraps the verbatim provider body the way the downstream
// aggregation job expects and writes it to the raw location.
func (w *Worker) persist(ctx context.Context, symbol string, ingestTS time.Time, body []byte) error {
	payload, err := wrapPayload(body)
	if err != nil {
		return core.WrapError(core.ErrSinkWrite, err)
	}

	metadata := map[string]string{
		"ingest_ts": storage.FormatTimestamp(ingestTS),
		"symbol":    symbol,
	}
	if w.cfg.IngestTags != "" {
		metadata["ingest_tags"] = w.cfg.IngestTags
	}
	return w.sink.PutRaw(ctx, symbol, ingestTS, payload, metadata)
}

// wrapPayload nests the provider body under fyers_response; bodies that
// are not valid JSON are preserved as raw text.
func wrapPayload(body []byte) ([]byte, error) {
	if json.Valid(body) {
		return json.Marshal(map[string]json.RawMessage{"fyers_response": body})
	}
	return json.Marshal(map[string]string{"raw_text": string(body)})
}

// fail records the terminal failure: one dead-letter write plus the
// result. The dead-letter write survives run cancellation so the
// diagnostic record is not lost with the run.
func (w *Worker) fail(ctx context.Context, symbol string, params core.HistoryParams, ingestTS time.Time, attempts, lastStatus int, note string) core.IngestResult {
	w.observer.SymbolFailed(symbol, attempts)
	w.log.Error("symbol failed",
		zap.String("symbol", symbol),
		zap.Int("attempts", attempts),
		zap.Int("last_status", lastStatus),
		zap.String("note", note))

	record := storage.DeadLetter{
		Symbol:     symbol,
		FailedAt:   storage.FormatTimestamp(time.Now()),
		Attempts:   attempts,
		LastStatus: lastStatus,
		Note:       note,
		Params:     params,
	}
	if err := w.sink.PutDeadLetter(context.WithoutCancel(ctx), symbol, ingestTS, record); err != nil {
		w.log.Error("dead letter write failed",
			zap.String("symbol", symbol),
			zap.Error(err))
	}

	return core.IngestResult{Symbol: symbol, Succeeded: false, Attempts: attempts, Status: lastStatus, Note: note}
}

// sleep waits for d or until ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
