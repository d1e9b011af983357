package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/debatescribe/internal/resilience"
)

var fastRetry = resilience.RetryConfig{MaxRetries: 1, Backoff: time.Millisecond}

func TestGet_SendsBrowserHeaders(t *testing.T) {
	var gotUA, gotLang, gotCustom string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		gotCustom = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3")
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Get(context.Background(), srv.URL+"/clip.mp3", http.Header{"X-Api-Key": {"k"}})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(resp.Body) != "ID3" || resp.ContentType != "audio/mpeg" {
		t.Errorf("response = %q (%s)", resp.Body, resp.ContentType)
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotLang == "" {
		t.Error("Accept-Language not set")
	}
	if gotCustom != "k" {
		t.Errorf("custom header = %q", gotCustom)
	}
}

func TestGet_RetriesTransientOnce(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		wantCalls int32
		wantErr   bool
	}{
		{"503 then ok", []int{503, 200}, 2, false},
		{"429 twice", []int{429, 429, 200}, 2, true},
		{"404 not retried", []int{404, 200}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[n-1])
			}))
			defer srv.Close()

			_, err := New(WithRetry(fastRetry)).Get(context.Background(), srv.URL, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestGet_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := New().Get(context.Background(), srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if se.StatusCode != http.StatusGone || !strings.Contains(se.Body, "gone") {
		t.Errorf("status error = %+v", se)
	}
	if !IsStatus(err, http.StatusGone) || IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus mismatch")
	}
	if se.Transient() {
		t.Error("410 must not be transient")
	}
}

func TestGet_SizeCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, strings.Repeat("x", 64))
	}))
	defer srv.Close()

	_, err := New(WithMaxBytes(16)).Get(context.Background(), srv.URL, nil)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	resp, err := New(WithMaxBytes(64)).Get(context.Background(), srv.URL, nil)
	if err != nil || len(resp.Body) != 64 {
		t.Fatalf("exact-size body rejected: %v", err)
	}
}

func TestGet_InvalidURL(t *testing.T) {
	if _, err := New().Get(context.Background(), "not a url", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_RateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	c := New(WithRateLimit(0.001, 1))
	if _, err := c.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("first request should use the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Get(ctx, srv.URL, nil); err == nil {
		t.Fatal("expected limiter wait to fail")
	}
}

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"debate"}`)
	}))
	defer srv.Close()

	var got struct {
		Name string `json:"name"`
	}
	if err := New().GetJSON(context.Background(), srv.URL, nil, &got); err != nil || got.Name != "debate" {
		t.Fatalf("GetJSON = %+v, %v", got, err)
	}
}
