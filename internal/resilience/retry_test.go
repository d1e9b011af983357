package resilience

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "status" }
func (e statusErr) Transient() bool { return e.code == 429 || e.code >= 500 }

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, Backoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransient(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(1), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", statusErr{503}
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("got (%q, %v), want (ok, nil)", got, err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRetry_BoundedAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(1), func(context.Context) (int, error) {
		calls++
		return 0, statusErr{500}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (one retry)", calls)
	}
}

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastRetry(3), func(context.Context) (int, error) {
		calls++
		return 0, statusErr{404}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := RetryConfig{MaxRetries: 1, Backoff: time.Hour}
	_, err := Retry(ctx, rc, func(context.Context) (int, error) {
		cancel()
		return 0, statusErr{503}
	})
	var se statusErr
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want the last attempt's error without waiting", err)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"429", statusErr{429}, true},
		{"404", statusErr{404}, false},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("%s: IsTransient = %v, want %v", tt.name, got, tt.want)
		}
	}
}
