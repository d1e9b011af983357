// Package media implements the generic "download and transcribe" strategy.
//
// [Transcriber] fetches a media file over HTTP and hands the bytes to an STT
// provider. Every platform strategy that ends in a media URL reuses it, and
// it is the direct_media strategy and the fallback on its own.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
	"github.com/MrWong99/debatescribe/pkg/provider/stt"
)

// ErrEmptyMedia is returned when the origin served zero bytes.
var ErrEmptyMedia = errors.New("media: empty payload")

// Option is a functional option for [New].
type Option func(*Transcriber)

// WithLanguage sets the language passed to the STT provider. Default: "en".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// WithTimeouts overrides the download and transcription budgets.
func WithTimeouts(to acquire.Timeouts) Option {
	return func(t *Transcriber) { t.timeouts = to.WithDefaults() }
}

// WithMetrics records STT latency on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(t *Transcriber) { t.metrics = m }
}

// Transcriber is safe for concurrent use.
type Transcriber struct {
	fetch    *fetch.Client
	stt      stt.Provider
	language string
	timeouts acquire.Timeouts
	metrics  *observe.Metrics
}

var _ acquire.Strategy = (*Transcriber)(nil)

// New creates a [Transcriber].
func New(fc *fetch.Client, provider stt.Provider, opts ...Option) *Transcriber {
	t := &Transcriber{
		fetch:    fc,
		stt:      provider,
		language: "en",
		timeouts: acquire.DefaultTimeouts(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.metrics == nil {
		t.metrics = observe.DefaultMetrics()
	}
	return t
}

// Tag implements [acquire.Strategy].
func (t *Transcriber) Tag() acquire.StrategyTag { return acquire.DirectMedia }

// Acquire implements [acquire.Strategy] by transcribing ref.URL.
func (t *Transcriber) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	return t.Transcribe(ctx, ref.URL, nil)
}

// Transcribe downloads mediaURL and transcribes it. header is sent with the
// download and may be nil. An empty transcript is [acquire.ErrNoTranscript].
// Without an STT provider nothing is downloaded and the error wraps
// [acquire.ErrStrategyUnavailable].
func (t *Transcriber) Transcribe(ctx context.Context, mediaURL string, header http.Header) (string, error) {
	if t.stt == nil {
		return "", fmt.Errorf("%w: no stt provider configured", acquire.ErrStrategyUnavailable)
	}
	audio, err := t.download(ctx, mediaURL, header)
	if err != nil {
		return "", err
	}

	tctx, cancel := context.WithTimeout(ctx, t.timeouts.Transcription)
	defer cancel()
	tctx, span := observe.StartSpan(tctx, "media.transcribe")

	start := time.Now()
	text, err := t.stt.Transcribe(tctx, audio, stt.Options{Language: t.language})
	t.metrics.STTDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("format", path.Ext(audio.Name()))))
	observe.EndSpan(span, err)
	if err != nil {
		return "", fmt.Errorf("media: transcribe %s: %w", audio.Name(), err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: no speech recognised", acquire.ErrNoTranscript)
	}
	return text, nil
}

func (t *Transcriber) download(ctx context.Context, mediaURL string, header http.Header) (stt.Audio, error) {
	fctx, cancel := context.WithTimeout(ctx, t.timeouts.AudioFetch)
	defer cancel()

	resp, err := t.fetch.Get(fctx, mediaURL, header)
	if err != nil {
		return stt.Audio{}, fmt.Errorf("media: download: %w", err)
	}
	if len(resp.Body) == 0 {
		return stt.Audio{}, ErrEmptyMedia
	}
	observe.Logger(ctx).Debug("media downloaded", "url", resp.URL, "bytes", len(resp.Body), "content_type", resp.ContentType)
	return stt.Audio{
		Data:        resp.Body,
		ContentType: resp.ContentType,
		Filename:    filename(resp.URL, mediaURL),
	}, nil
}

// filename picks a name with a recognised media extension from the final or
// the requested URL, so providers can sniff the container format.
func filename(urls ...string) string {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if source.IsDirectMedia(raw) {
			return path.Base(u.Path)
		}
	}
	return ""
}
