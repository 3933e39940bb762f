package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer spaces operations out by a random delay drawn uniformly from
// [Min, Max]. It mimics human-timescale pauses between page loads.
// It is safe for concurrent use by multiple goroutines.
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer creates a pacer for the given bounds. Negative bounds are clamped
// to zero and swapped bounds are reordered. A zero pacer never blocks.
func NewPacer(min, max time.Duration) *Pacer {
	if min < 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	if max < min {
		min, max = max, min
	}
	return &Pacer{min: min, max: max}
}

// Bounds returns the configured delay range.
func (p *Pacer) Bounds() (time.Duration, time.Duration) {
	return p.min, p.max
}

// Next draws the next delay.
func (p *Pacer) Next() time.Duration {
	if p == nil || p.max <= 0 {
		return 0
	}
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	return p.min + time.Duration(rand.Int64N(int64(span)+1))
}

// Wait blocks for the next delay or until ctx is done, whichever is first.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Next()
	if d <= 0 {
		return ctx.Err()
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

// Chance reports true with probability prob (clamped to [0, 1]).
func Chance(prob float64) bool {
	if prob <= 0 {
		return false
	}
	if prob >= 1 {
		return true
	}
	return rand.Float64() < prob
}

// IntBetween returns a uniform integer in [lo, hi].
func IntBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rand.IntN(hi-lo+1)
}
