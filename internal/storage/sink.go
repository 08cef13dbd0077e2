package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
)

// Default key prefixes, overridable from configuration.
const (
	DefaultRawPrefix = "ohlcv/raw/"
	DefaultDLQPrefix = "ohlcv/errors/"
	DefaultExchange  = "NSE"
)

// isoTimestamp is the second-resolution UTC form embedded in keys and
// metadata, e.g. 2026-08-31T09:15:00Z.
const isoTimestamp = "2006-01-02T15:04:05Z"

// Sink persists raw ingest payloads and dead-letter records under
// deterministic keys. Keys embed the ingest timestamp, so rerunning the
// same minute produces a new object rather than an overwrite, and they
// are Hive-partitioned for the downstream aggregation job.
type Sink struct {
	store     ObjectStore
	rawPrefix string
	dlqPrefix string
	exchange  string
}

// NewSink creates a sink over the given store. Empty prefixes and
// exchange fall back to the defaults.
func NewSink(store ObjectStore, rawPrefix, dlqPrefix, exchange string) *Sink {
	if rawPrefix == "" {
		rawPrefix = DefaultRawPrefix
	}
	if dlqPrefix == "" {
		dlqPrefix = DefaultDLQPrefix
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Sink{
		store:     store,
		rawPrefix: rawPrefix,
		dlqPrefix: dlqPrefix,
		exchange:  exchange,
	}
}

var symbolSanitizer = strings.NewReplacer(":", "_", "/", "_")

// SanitizeSymbol makes a broker symbol safe for use inside an object key.
func SanitizeSymbol(symbol string) string {
	return symbolSanitizer.Replace(symbol)
}

// RawKey derives the object key for a successful payload.
func (s *Sink) RawKey(symbol string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("%ssymbol=%s/exchange=%s/year=%04d/month=%02d/day=%02d/ingest-%s.json",
		s.rawPrefix, SanitizeSymbol(symbol), s.exchange,
		ts.Year(), ts.Month(), ts.Day(), ts.Format(isoTimestamp))
}

// DeadLetterKey derives the object key for a permanently failed symbol.
func (s *Sink) DeadLetterKey(symbol string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("%ssymbol=%s/year=%04d/month=%02d/day=%02d/failed-%s.json",
		s.dlqPrefix, SanitizeSymbol(symbol),
		ts.Year(), ts.Month(), ts.Day(), ts.Format(isoTimestamp))
}

// PutRaw writes one successful payload. The write is attempted once;
// failure escalates to the caller as a sink error.
func (s *Sink) PutRaw(ctx context.Context, symbol string, ts time.Time, payload []byte, metadata map[string]string) error {
	if err := s.store.Put(ctx, s.RawKey(symbol, ts), payload, metadata); err != nil {
		return core.WrapError(core.ErrSinkWrite, err)
	}
	return nil
}

// DeadLetter is the diagnostic record written for a permanently failed
// symbol. Operators read these; this system never retries them.
type DeadLetter struct {
	Symbol     string             `json:"symbol"`
	FailedAt   string             `json:"failed_at"`
	Attempts   int                `json:"attempts"`
	LastStatus int                `json:"last_status,omitempty"`
	Note       string             `json:"note"`
	Params     core.HistoryParams `json:"params_sent"`
}

// PutDeadLetter writes one dead-letter record, pretty-printed for
// direct inspection in the console.
func (s *Sink) PutDeadLetter(ctx context.Context, symbol string, ts time.Time, rec DeadLetter) error {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrSinkWrite, err)
	}

	metadata := map[string]string{
		"symbol":     symbol,
		"ingest_ts":  ts.UTC().Format(isoTimestamp),
		"dlq_reason": rec.Note,
	}
	if err := s.store.Put(ctx, s.DeadLetterKey(symbol, ts), body, metadata); err != nil {
		return core.WrapError(core.ErrSinkWrite, err)
	}
	return nil
}

// FormatTimestamp renders ts in the key/metadata timestamp form.
func FormatTimestamp(ts time.Time) string {
	return ts.UTC().Format(isoTimestamp)
}
