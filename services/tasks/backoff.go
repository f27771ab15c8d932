package tasks

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/hibiken/asynq"
)

// Backoff computes retry delays: min(Base·2ⁿ + jitter, Max) with jitter
// drawn from [0, Base·2ⁿ). Consecutive delays never decrease.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	jitter func(n int64) int64
}

func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max, jitter: rand.Int64N}
}

// Delay returns the wait before retry n, where n is the number of retries already made.
func (b *Backoff) Delay(n int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if n < 0 {
		n = 0
	}
	step := b.Base
	for i := 0; i < n && (b.Max <= 0 || step < b.Max) && step <= math.MaxInt64/4; i++ {
		step *= 2
	}
	d := step + time.Duration(b.jitter(int64(step)))
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// RetryDelayFunc adapts Delay to asynq.Config.RetryDelayFunc.
func (b *Backoff) RetryDelayFunc(n int, _ error, _ *asynq.Task) time.Duration {
	return b.Delay(n)
}
