package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mobby57/memoLib-sub019/pkg/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		Attempts:   attempts,
		Initial:    time.Millisecond,
		Multiplier: 2,
		Max:        4 * time.Millisecond,
	}
}

func TestDelay(t *testing.T) {
	p := retry.DefaultPolicy()

	tests := []struct {
		n    int
		want time.Duration
	}{
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{6, 5 * time.Second},
		{20, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	n, err := retry.Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestDoExhausts(t *testing.T) {
	boom := errors.New("boom")
	n, err := retry.Do(context.Background(), fastPolicy(3), func(ctx context.Context) error {
		return boom
	})

	if !errors.Is(err, retry.ErrExhausted) || !errors.Is(err, boom) {
		t.Errorf("error = %v, want ErrExhausted wrapping boom", err)
	}
	if n != 4 {
		t.Errorf("attempts = %d, want 4", n)
	}
}

func TestDoPermanentStops(t *testing.T) {
	bad := errors.New("misconfigured")
	n, err := retry.Do(context.Background(), fastPolicy(5), func(ctx context.Context) error {
		return retry.Permanent(bad)
	})

	if !errors.Is(err, bad) || errors.Is(err, retry.ErrExhausted) {
		t.Errorf("error = %v, want bad without ErrExhausted", err)
	}
	if n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestDoPerCallTimeout(t *testing.T) {
	p := fastPolicy(2)
	p.Timeout = 5 * time.Millisecond

	start := time.Now()
	n, err := retry.Do(context.Background(), p, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, retry.ErrExhausted) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want exhausted deadline", err)
	}
	if n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("took %v, retry budget not bounded", elapsed)
	}
}

func TestDoCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(10)
	p.Initial = time.Hour
	p.Max = time.Hour

	n, err := retry.Do(ctx, p, func(ctx context.Context) error {
		cancel()
		return errors.New("fail")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if n != 1 {
		t.Errorf("attempts = %d, want 1", n)
	}
}

func TestIsPermanent(t *testing.T) {
	base := errors.New("bad request")

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", base, false},
		{"marked", retry.Permanent(base), true},
		{"wrapped mark", fmt.Errorf("call: %w", retry.Permanent(base)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
}
