package ratelimit

import "context"

// Dual enforces the broker's two request windows together: a short
// per-second cap and a long per-minute cap. A request is admitted only
// once both budgets have capacity.
type Dual struct {
	short *Bucket
	long  *Bucket
}

// NewDual builds the dual limiter from the two configured caps.
func NewDual(maxPerSec, maxPerMin int) *Dual {
	return &Dual{
		short: NewBucket(float64(maxPerSec), float64(maxPerSec)),
		long:  NewBucket(float64(maxPerMin)/60.0, float64(maxPerMin)),
	}
}

// Wait admits one request under both windows. The long window is
// consumed first so a minute-level stall is not spent holding a
// freshly debited per-second token.
func (d *Dual) Wait(ctx context.Context) error {
	if err := d.long.Consume(ctx, 1); err != nil {
		return err
	}
	return d.short.Consume(ctx, 1)
}
