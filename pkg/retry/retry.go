// Package retry runs fallible operations under bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy bounds a retry loop. Attempts counts retries after the first try,
// so a Policy with Attempts 3 calls the operation at most 4 times.
type Policy struct {
	Attempts   int
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	// Timeout bounds each individual call. Zero means no per-call bound.
	Timeout time.Duration
}

// DefaultPolicy returns 3 retries from 200ms doubling up to 5s with a 30s per-call timeout.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:   3,
		Initial:    200 * time.Millisecond,
		Multiplier: 2,
		Max:        5 * time.Second,
		Timeout:    30 * time.Second,
	}
}

// Delay returns the wait before retry n (1-based).
func (p Policy) Delay(n int) time.Duration {
	d := p.Initial
	for i := 1; i < n; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// IsPermanent reports whether err or anything it wraps was marked Permanent.
func IsPermanent(err error) bool {
	var perm permanent
	return errors.As(err, &perm)
}

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Do calls fn until it succeeds, returns a Permanent error, the policy is
// exhausted, or ctx is done. It reports how many calls were made. A call
// that exceeds the per-call timeout counts as a failed attempt.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (int, error) {
	var last error

	for attempt := 0; attempt <= p.Attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt, fmt.Errorf("%w: %w", ctx.Err(), last)
			case <-timer.C:
			}
		}

		last = call(ctx, p.Timeout, fn)
		if last == nil {
			return attempt + 1, nil
		}

		var perm permanent
		if errors.As(last, &perm) {
			return attempt + 1, perm.err
		}
		if ctx.Err() != nil {
			return attempt + 1, fmt.Errorf("%w: %w", ctx.Err(), last)
		}
	}

	return p.Attempts + 1, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, p.Attempts+1, last)
}

func call(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	if err == nil && callCtx.Err() != nil {
		return callCtx.Err()
	}
	return err
}
