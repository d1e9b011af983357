package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/app"
	"github.com/MrWong99/debatescribe/internal/config"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
	storemock "github.com/MrWong99/debatescribe/internal/store/mock"
	sttmock "github.com/MrWong99/debatescribe/pkg/provider/stt/mock"
)

func testConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = io.WriteString(w, "ID3 fake mp3 bytes")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newApp(t *testing.T, cfg *config.Config, providers *app.Providers, opts ...app.Option) *app.App {
	t.Helper()
	opts = append([]app.Option{app.WithMetrics(testMetrics(t))}, opts...)
	a, err := app.New(context.Background(), cfg, providers, opts...)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestApp_DirectMediaEndToEnd(t *testing.T) {
	srv := mediaServer(t)
	stt := &sttmock.Provider{Text: "The motion is carried."}
	a := newApp(t, testConfig(t, "transcription:\n  language: en\n"), &app.Providers{STT: stt})

	rec, err := a.Service().AcquireTranscript(context.Background(), "debate-1", srv.URL+"/final.mp3", nil)
	if err != nil {
		t.Fatalf("AcquireTranscript: %v", err)
	}
	if rec.Content != "The motion is carried." {
		t.Errorf("content = %q", rec.Content)
	}
	if rec.SourcePlatform != source.DirectMedia || rec.PrimaryStrategy != string(acquire.DirectMedia) {
		t.Errorf("platform/strategy = %s/%s", rec.SourcePlatform, rec.PrimaryStrategy)
	}
	if rec.Verified {
		t.Error("direct media has no secondary; Verified must be false")
	}
	if stt.CallCount() != 1 || stt.Calls[0].Opts.Language != "en" {
		t.Errorf("stt calls = %+v", stt.Calls)
	}

	stored, err := a.Store().TranscriptsForDebate(context.Background(), "debate-1")
	if err != nil {
		t.Fatalf("TranscriptsForDebate: %v", err)
	}
	if len(stored) != 1 || stored[0].ID == "" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestApp_WithoutSTTIsUnavailable(t *testing.T) {
	srv := mediaServer(t)
	a := newApp(t, testConfig(t, ""), nil)

	_, err := a.Service().AcquireTranscript(context.Background(), "debate-1", srv.URL+"/final.mp3", nil)
	if !errors.Is(err, acquire.ErrAllStrategiesExhausted) {
		t.Fatalf("err = %v, want exhausted", err)
	}
	if !errors.Is(err, acquire.ErrStrategyUnavailable) {
		t.Errorf("err = %v should carry the unavailable cause", err)
	}
}

func TestApp_PersistenceFailureKeepsRecord(t *testing.T) {
	srv := mediaServer(t)
	st := &storemock.Store{SaveErr: errors.New("disk full")}
	a := newApp(t, testConfig(t, ""), &app.Providers{STT: &sttmock.Provider{Text: "text"}}, app.WithStore(st))

	rec, err := a.Service().AcquireTranscript(context.Background(), "debate-1", srv.URL+"/final.mp3", nil)
	if !errors.Is(err, acquire.ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	if rec.Content != "text" {
		t.Errorf("in-memory record content = %q", rec.Content)
	}
}

func TestApp_Handler(t *testing.T) {
	a := newApp(t, testConfig(t, ""), nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d: %s", path, resp.StatusCode, body)
		}
		if path == "/readyz" && !strings.Contains(string(body), `"store":"ok"`) {
			t.Errorf("readyz body = %s", body)
		}
	}
}

func TestApp_ShutdownIsIdempotent(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(t, ""), nil, app.WithMetrics(testMetrics(t)))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
