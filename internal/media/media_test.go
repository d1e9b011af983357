package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/source"
	sttmock "github.com/MrWong99/debatescribe/pkg/provider/stt/mock"
)

func mediaServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscriber_Acquire(t *testing.T) {
	srv := mediaServer(t, "ID3-audio-bytes", http.StatusOK)
	provider := &sttmock.Provider{Text: "  Good evening and welcome.  "}
	tr := New(fetch.New(), provider, WithLanguage("de"))

	if tr.Tag() != acquire.DirectMedia {
		t.Errorf("Tag = %q", tr.Tag())
	}
	ref := source.Reference{Platform: source.DirectMedia, ID: "/debate.mp3", URL: srv.URL + "/debate.mp3?token=x"}
	got, err := tr.Acquire(context.Background(), ref)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if got != "Good evening and welcome." {
		t.Errorf("transcript = %q", got)
	}

	if provider.CallCount() != 1 {
		t.Fatalf("STT calls = %d, want 1", provider.CallCount())
	}
	call := provider.Calls[0]
	if string(call.Audio.Data) != "ID3-audio-bytes" || call.Audio.ContentType != "audio/mpeg" {
		t.Errorf("audio = %q (%s)", call.Audio.Data, call.Audio.ContentType)
	}
	if call.Audio.Filename != "debate.mp3" {
		t.Errorf("filename = %q", call.Audio.Filename)
	}
	if call.Opts.Language != "de" {
		t.Errorf("language = %q", call.Opts.Language)
	}
	if _, ok := call.Ctx.Deadline(); !ok {
		t.Error("transcription ran without a deadline")
	}
}

func TestTranscriber_Failures(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		provider  *sttmock.Provider
		wantErr   error
		wantCalls int
	}{
		{"non-2xx", "nope", http.StatusNotFound, &sttmock.Provider{Text: "x"}, nil, 0},
		{"empty payload", "", http.StatusOK, &sttmock.Provider{Text: "x"}, ErrEmptyMedia, 0},
		{"empty transcript", "bytes", http.StatusOK, &sttmock.Provider{Text: "   "}, acquire.ErrNoTranscript, 1},
		{"stt error", "bytes", http.StatusOK, &sttmock.Provider{Err: errors.New("quota")}, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := mediaServer(t, tt.body, tt.status)
			tr := New(fetch.New(), tt.provider)
			_, err := tr.Transcribe(context.Background(), srv.URL+"/a.mp3", nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.status == http.StatusNotFound && !fetch.IsStatus(err, http.StatusNotFound) {
				t.Errorf("expected status error, got %v", err)
			}
			if got := tt.provider.CallCount(); got != tt.wantCalls {
				t.Errorf("STT calls = %d, want %d", got, tt.wantCalls)
			}
		})
	}
}

func TestTranscriber_NoProviderSkipsDownload(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = io.WriteString(w, "bytes")
	}))
	t.Cleanup(srv.Close)

	_, err := New(fetch.New(), nil).Transcribe(context.Background(), srv.URL+"/a.mp3", nil)
	if !errors.Is(err, acquire.ErrStrategyUnavailable) {
		t.Fatalf("err = %v, want ErrStrategyUnavailable", err)
	}
	if hits != 0 {
		t.Errorf("media downloaded %d times without a provider", hits)
	}
}

func TestFilename(t *testing.T) {
	if got := filename("https://cdn.test/redirected", "https://cdn.test/x/clip.m4a?sig=1"); got != "clip.m4a" {
		t.Errorf("filename = %q", got)
	}
	if got := filename("https://cdn.test/page"); got != "" {
		t.Errorf("filename = %q, want empty", got)
	}
}
