package storage

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
)

// TickerLoader reads the newline-delimited symbol universe from an
// object store key.
type TickerLoader struct {
	store ObjectStore
	key   string
}

// NewTickerLoader creates a loader for the given store and key.
func NewTickerLoader(store ObjectStore, key string) *TickerLoader {
	return &TickerLoader{store: store, key: key}
}

// LoadTickers returns the ordered symbol list. Blank lines and
// surrounding whitespace are dropped; order is otherwise preserved.
func (l *TickerLoader) LoadTickers(ctx context.Context) ([]string, error) {
	data, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, core.WrapError(core.ErrTickerSource, err)
	}

	var tickers []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			tickers = append(tickers, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, core.WrapError(core.ErrTickerSource, err)
	}
	return tickers, nil
}

// ParseS3Path splits an "s3://bucket/key" address into bucket and key.
func ParseS3Path(path string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(path, "s3://")
	if !ok {
		return "", "", core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ticker path must be of the form s3://bucket/key, got %q", path))
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ticker path must be of the form s3://bucket/key, got %q", path))
	}
	return bucket, key, nil
}
