package worker

import (
	"context"
	"math"
	"time"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns the wait before retry number attempt (1-based):
// InitialDelay grown by BackoffFactor per attempt, capped at MaxDelay.
// Zero fields fall back to one second and a factor of two.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial, factor := r.InitialDelay, r.BackoffFactor
	if initial <= 0 {
		initial = time.Second
	}
	if factor <= 0 {
		factor = 2
	}

	d := time.Duration(float64(initial) * math.Pow(factor, float64(max(attempt, 1)-1)))
	switch {
	case d <= 0:
		return time.Second
	case r.MaxDelay > 0 && d > r.MaxDelay:
		return r.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, MaxRetries retries are spent or ctx is
// done. It returns the last error of fn, or ctx.Err() if ctx ended the
// wait.
func (r RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	for attempt := 1; err != nil && attempt <= r.MaxRetries; attempt++ {
		timer := time.NewTimer(r.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = fn(ctx)
	}
	return err
}
