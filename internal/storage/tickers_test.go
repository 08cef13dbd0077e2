package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/agnivesh13/Price-Feed-Parser/internal/core"
)

func TestTickerLoader_LoadTickers(t *testing.T) {
	store := newMemStore()
	store.objects["config/tickers.txt"] = []byte("NSE:SBIN-EQ\n\n  NSE:TCS-EQ  \nNSE:INFY-EQ\n")

	loader := NewTickerLoader(store, "config/tickers.txt")
	tickers, err := loader.LoadTickers(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	want := []string{"NSE:SBIN-EQ", "NSE:TCS-EQ", "NSE:INFY-EQ"}
	if len(tickers) != len(want) {
		t.Fatalf("got %d tickers, want %d", len(tickers), len(want))
	}
	for i := range want {
		if tickers[i] != want[i] {
			t.Errorf("ticker[%d] = %q, want %q", i, tickers[i], want[i])
		}
	}
}

func TestTickerLoader_MissingObject(t *testing.T) {
	loader := NewTickerLoader(newMemStore(), "absent.txt")

	_, err := loader.LoadTickers(context.Background())
	if !errors.Is(err, core.ErrTickerSource) {
		t.Errorf("expected ErrTickerSource, got %v", err)
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in         string
		bucket     string
		key        string
		wantErr    bool
	}{
		{"s3://ohlcv-pipeline/config/tickers.txt", "ohlcv-pipeline", "config/tickers.txt", false},
		{"s3://bucket/k", "bucket", "k", false},
		{"http://bucket/key", "", "", true},
		{"s3://bucketonly", "", "", true},
		{"s3:///key", "", "", true},
		{"s3://bucket/", "", "", true},
	}

	for _, tc := range tests {
		bucket, key, err := ParseS3Path(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseS3Path(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseS3Path(%q): %v", tc.in, err)
			continue
		}
		if bucket != tc.bucket || key != tc.key {
			t.Errorf("ParseS3Path(%q) = (%q, %q), want (%q, %q)", tc.in, bucket, key, tc.bucket, tc.key)
		}
	}
}
