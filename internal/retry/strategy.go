package retry

import (
	"math"
	"math/rand"
	"time"

	"golang.org/x/exp/constraints"
)

// Strategy returns the delay before retry number n and whether the retry
// budget is exhausted.
type Strategy interface {
	Delay(n uint) (time.Duration, bool)
}

// Never is a Strategy that never retries.
type Never struct{}

func (Never) Delay(uint) (time.Duration, bool) { return 0, true }

// Jitter maps an upper bound to a random delay in [0, bound).
type Jitter func(bound int64) int64

// Backoff is a capped exponential backoff with full jitter.
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries uint
	Jitter     Jitter
}

func (b Backoff) Delay(n uint) (time.Duration, bool) {
	if n >= b.MaxRetries {
		return 0, true
	}
	bound := int64(b.Max)
	if n < 63 && int64(b.Base) <= math.MaxInt64>>n {
		bound = clamp(int64(b.Base)<<n, 0, int64(b.Max))
	}
	if bound <= 0 {
		return 0, false
	}
	return time.Duration(b.jitter()(bound)), false
}

func (b Backoff) jitter() Jitter {
	if b.Jitter == nil {
		return rand.Int63n
	}
	return b.Jitter
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
