package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBucket_TakeDebits(t *testing.T) {
	b := NewBucket(1, 5)
	now := time.Now()

	for i := 0; i < 5; i++ {
		ok, _ := b.take(1, now)
		if !ok {
			t.Fatalf("take %d: expected capacity to be available", i+1)
		}
	}

	ok, wait := b.take(1, now)
	if ok {
		t.Fatal("expected empty bucket to refuse the debit")
	}
	if wait <= 0 {
		t.Fatalf("expected a positive deficit wait, got %v", wait)
	}
}

func TestBucket_RefillIsCapped(t *testing.T) {
	b := NewBucket(10, 3)
	now := time.Now()

	// Drain, then refill far longer than needed.
	for i := 0; i < 3; i++ {
		b.take(1, now)
	}
	b.take(0, now.Add(time.Hour))

	if b.tokens > b.capacity {
		t.Errorf("tokens %v exceeds capacity %v after long idle refill", b.tokens, b.capacity)
	}
}

func TestBucket_TokensNeverNegative(t *testing.T) {
	b := NewBucket(100, 2)
	now := time.Now()

	for i := 0; i < 50; i++ {
		b.take(1, now)
		if b.tokens < 0 {
			t.Fatalf("tokens went negative: %v", b.tokens)
		}
		if b.tokens > b.capacity {
			t.Fatalf("tokens %v exceeded capacity %v", b.tokens, b.capacity)
		}
		now = now.Add(7 * time.Millisecond)
	}
}

func TestBucket_DeficitWait(t *testing.T) {
	b := NewBucket(2, 1)
	now := time.Now()

	b.take(1, now)
	ok, wait := b.take(1, now)
	if ok {
		t.Fatal("expected the second immediate take to be refused")
	}
	// One full token at 2 tokens/sec is 500ms away.
	if wait < 400*time.Millisecond || wait > 600*time.Millisecond {
		t.Errorf("deficit wait = %v, want about 500ms", wait)
	}
}

func TestBucket_BurstEventuallyAdmitsAll(t *testing.T) {
	const (
		rate     = 100.0
		capacity = 5.0
		waiters  = 15
	)
	b := NewBucket(rate, capacity)
	ctx := context.Background()

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Consume(ctx, 1); err != nil {
				t.Errorf("consume failed: %v", err)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	// The last waiter cannot be admitted before the deficit refills.
	min := time.Duration(float64(waiters-capacity) / rate * float64(time.Second))
	if elapsed < min {
		t.Errorf("burst drained in %v, want at least %v", elapsed, min)
	}
}

func TestBucket_ConsumeHonorsContext(t *testing.T) {
	b := NewBucket(0.01, 1)
	b.take(1, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := b.Consume(ctx, 1); err == nil {
		t.Error("expected cancellation error from a starved consume")
	}
}

func TestDual_WaitDebitsBothWindows(t *testing.T) {
	d := NewDual(1000, 60000)
	ctx := context.Background()

	if err := d.Wait(ctx); err != nil {
		t.Fatalf("wait failed: %v", err)
	}

	if got := d.short.Tokens(); got > 999.5 {
		t.Errorf("short window not debited, tokens = %v", got)
	}
	if got := d.long.Tokens(); got > 59999.5 {
		t.Errorf("long window not debited, tokens = %v", got)
	}
}
