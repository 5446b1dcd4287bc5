// Package retry provides a bounded polling combinator.
//
// Until re-runs an attempt until its result satisfies a predicate, with a fixed
// delay between attempts, a maximum attempt count and a wall-clock budget.
// It never retries unboundedly and never queues work.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when attempts or budget ran out before the
// predicate was satisfied. The last attempt's value is still returned.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	Delay       time.Duration // pause between attempts
	Budget      time.Duration // hard wall-clock ceiling, 0 means unbounded by time
}

// Until calls attempt until done reports true, the policy is exhausted or ctx
// is cancelled.
func Until[T any](ctx context.Context, p Policy, attempt func(context.Context) T, done func(T) bool) (T, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	start := time.Now()

	var last T
	for i := 0; i < maxAttempts; i++ {
		last = attempt(ctx)
		if done(last) {
			return last, nil
		}
		if i == maxAttempts-1 {
			break
		}
		if p.Budget > 0 && time.Since(start)+p.Delay > p.Budget {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return last, err
		}
	}
	return last, ErrExhausted
}

func sleep(ctx context.Context, d time.Duration) error {
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
