package resilience

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"
)

// RetryConfig controls [Retry].
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int

	// Backoff is the wait before the first retry. Each further retry doubles
	// it, capped at MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration

	// Retryable decides whether err deserves another attempt. Nil means
	// [IsTransient].
	Retryable func(err error) bool
}

// StrategyRetry is the bounded retry a single acquisition strategy may apply
// to its own network calls: one retry after a short pause.
var StrategyRetry = RetryConfig{
	MaxRetries: 1,
	Backoff:    500 * time.Millisecond,
	MaxBackoff: 2 * time.Second,
}

// Retry calls fn until it succeeds, returns a non-retryable error, the retry
// budget is spent, or ctx is done.
func Retry[T any](ctx context.Context, rc RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	retryable := rc.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	wait := rc.Backoff

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= rc.MaxRetries || !retryable(err) || ctx.Err() != nil {
			return zero, err
		}

		slog.Debug("retrying", "attempt", attempt+1, "wait", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
		wait *= 2
		if rc.MaxBackoff > 0 && wait > rc.MaxBackoff {
			wait = rc.MaxBackoff
		}
	}
}

// TransientError marks an error as worth retrying, e.g. an HTTP 429 or 5xx.
type TransientError interface {
	error
	Transient() bool
}

// IsTransient reports whether err is a network-level failure or carries a
// [TransientError] that says so. Context errors are never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var te TransientError
	if errors.As(err, &te) {
		return te.Transient()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
