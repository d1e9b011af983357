// Package soundcloud implements the audio_stream strategy.
//
// The track URL is resolved through the public API to its transcodings; the
// progressive (single file) stream is downloaded and transcribed. HLS-only
// tracks are not supported.
package soundcloud

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/platform"
	"github.com/MrWong99/debatescribe/internal/source"
)

// DefaultAPIBase is the public SoundCloud API.
const DefaultAPIBase = "https://api-v2.soundcloud.com"

var _ acquire.Strategy = (*Strategy)(nil)

// Strategy is safe for concurrent use.
type Strategy struct {
	fetch       *fetch.Client
	transcriber platform.Transcriber
	clientID    string
	apiBase     string
}

// Option is a functional option for [New].
type Option func(*Strategy)

// WithAPIBase overrides [DefaultAPIBase].
func WithAPIBase(base string) Option {
	return func(s *Strategy) { s.apiBase = strings.TrimRight(base, "/") }
}

// New creates the strategy. An empty clientID makes every call fail with
// [acquire.ErrStrategyUnavailable].
func New(fc *fetch.Client, tr platform.Transcriber, clientID string, opts ...Option) *Strategy {
	s := &Strategy{fetch: fc, transcriber: tr, clientID: clientID, apiBase: DefaultAPIBase}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tag implements [acquire.Strategy].
func (s *Strategy) Tag() acquire.StrategyTag { return acquire.AudioStream }

type track struct {
	ID         int64  `json:"id"`
	Kind       string `json:"kind"`
	Streamable bool   `json:"streamable"`
	Media      struct {
		Transcodings []transcoding `json:"transcodings"`
	} `json:"media"`
}

type transcoding struct {
	URL    string `json:"url"`
	Format struct {
		Protocol string `json:"protocol"`
		MimeType string `json:"mime_type"`
	} `json:"format"`
}

// Acquire implements [acquire.Strategy].
func (s *Strategy) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	if s.clientID == "" {
		return "", fmt.Errorf("%w: soundcloud client id not configured", acquire.ErrStrategyUnavailable)
	}

	var t track
	q := url.Values{"url": {ref.URL}, "client_id": {s.clientID}}
	if err := s.fetch.GetJSON(ctx, s.apiBase+"/resolve?"+q.Encode(), nil, &t); err != nil {
		if fetch.IsStatus(err, 404) {
			return "", fmt.Errorf("%w: track %q not found", acquire.ErrNoTranscript, ref.ID)
		}
		return "", fmt.Errorf("soundcloud: resolve: %w", err)
	}
	if t.Kind != "" && t.Kind != "track" {
		return "", fmt.Errorf("%w: %q is a %s, not a track", acquire.ErrNoTranscript, ref.ID, t.Kind)
	}

	tc, ok := progressive(t.Media.Transcodings)
	if !ok {
		return "", fmt.Errorf("soundcloud: track %q has no progressive stream", ref.ID)
	}

	var stream struct {
		URL string `json:"url"`
	}
	if err := s.fetch.GetJSON(ctx, withClientID(tc.URL, s.clientID), nil, &stream); err != nil {
		return "", fmt.Errorf("soundcloud: stream url: %w", err)
	}
	if stream.URL == "" {
		return "", fmt.Errorf("soundcloud: empty stream url for %q", ref.ID)
	}
	return s.transcriber.Transcribe(ctx, stream.URL, nil)
}

func progressive(tcs []transcoding) (transcoding, bool) {
	for _, tc := range tcs {
		if tc.Format.Protocol == "progressive" && tc.URL != "" {
			return tc, true
		}
	}
	return transcoding{}, false
}

func withClientID(raw, clientID string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("client_id", clientID)
	u.RawQuery = q.Encode()
	return u.String()
}
