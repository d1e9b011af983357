package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newGroup(maxFailures int) *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: maxFailures, ResetTimeout: time.Hour},
	})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_PrimarySuccess(t *testing.T) {
	fg := newGroup(3)

	var called []string
	err := fg.Execute(context.Background(), func(_ context.Context, v string) error {
		called = append(called, v)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(called) != 1 || called[0] != "primary" {
		t.Fatalf("called = %v, want [primary]", called)
	}
}

func TestFallbackGroup_PrimaryFailFallbackSuccess(t *testing.T) {
	fg := newGroup(3)

	got, err := ExecuteWithResult(context.Background(), fg, func(_ context.Context, v string) (string, error) {
		if v == "primary" {
			return "", errTest
		}
		return "from " + v, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from secondary" {
		t.Fatalf("got = %q, want from secondary", got)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := newGroup(3)

	err := fg.Execute(context.Background(), func(_ context.Context, v string) error {
		return errors.New(v + " down")
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	for _, want := range []string{"primary: primary down", "secondary: secondary down"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

func TestFallbackGroup_CircuitBreakerSkipsOpenProvider(t *testing.T) {
	fg := newGroup(2)

	for range 2 {
		_ = fg.Execute(context.Background(), func(_ context.Context, v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}

	var called []string
	_ = fg.Execute(context.Background(), func(_ context.Context, v string) error {
		called = append(called, v)
		return nil
	})
	if len(called) != 1 || called[0] != "secondary" {
		t.Fatalf("called = %v, want only secondary (primary breaker open)", called)
	}
}

func TestFallbackGroup_StopsOnCancelledContext(t *testing.T) {
	fg := newGroup(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := fg.Execute(ctx, func(context.Context, string) error {
		calls++
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}

func TestFallbackGroup_Names(t *testing.T) {
	fg := newGroup(1)
	names := fg.Names()
	if len(names) != 2 || names[0] != "primary" || names[1] != "secondary" {
		t.Fatalf("Names() = %v", names)
	}
	if fg.Primary() != "primary" {
		t.Fatalf("Primary() = %q", fg.Primary())
	}
}

func TestFallbackGroup_OnAttemptReportsReachedEntries(t *testing.T) {
	var got []string
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour},
		OnAttempt: func(_ context.Context, name string, err error) {
			got = append(got, name+"="+map[bool]string{true: "ok", false: "err"}[err == nil])
		},
	})
	fg.AddFallback("secondary", "secondary")

	call := func() {
		_ = fg.Execute(context.Background(), func(_ context.Context, v string) error {
			if v == "primary" {
				return errTest
			}
			return nil
		})
	}
	call()
	call() // primary breaker is open now and must not be reported

	want := "primary=err,secondary=ok,secondary=ok"
	if strings.Join(got, ",") != want {
		t.Errorf("attempts = %v, want %s", got, want)
	}
}
