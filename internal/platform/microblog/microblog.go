// Package microblog implements the microblog_media strategy: the post is
// looked up through the public embed syndication API and its highest
// bitrate MP4 variant is transcribed.
package microblog

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/platform"
	"github.com/MrWong99/debatescribe/internal/source"
)

// DefaultSyndicationBase is the embed syndication endpoint.
const DefaultSyndicationBase = "https://cdn.syndication.twimg.com"

var _ acquire.Strategy = (*Strategy)(nil)

// Strategy is safe for concurrent use.
type Strategy struct {
	fetch       *fetch.Client
	transcriber platform.Transcriber
	base        string
}

// Option is a functional option for [New].
type Option func(*Strategy)

// WithSyndicationBase overrides [DefaultSyndicationBase].
func WithSyndicationBase(base string) Option {
	return func(s *Strategy) { s.base = strings.TrimRight(base, "/") }
}

// New creates the strategy.
func New(fc *fetch.Client, tr platform.Transcriber, opts ...Option) *Strategy {
	s := &Strategy{fetch: fc, transcriber: tr, base: DefaultSyndicationBase}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Tag implements [acquire.Strategy].
func (s *Strategy) Tag() acquire.StrategyTag { return acquire.MicroblogMedia }

type variant struct {
	Bitrate     int    `json:"bitrate"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

type post struct {
	MediaDetails []struct {
		Type      string `json:"type"`
		VideoInfo struct {
			Variants []variant `json:"variants"`
		} `json:"video_info"`
	} `json:"mediaDetails"`
}

// Acquire implements [acquire.Strategy].
func (s *Strategy) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	if _, err := strconv.ParseUint(ref.ID, 10, 64); err != nil {
		return "", fmt.Errorf("microblog: post id %q is not numeric", ref.ID)
	}
	q := url.Values{"id": {ref.ID}, "token": {token(ref.ID)}, "lang": {"en"}}

	var p post
	if err := s.fetch.GetJSON(ctx, s.base+"/tweet-result?"+q.Encode(), nil, &p); err != nil {
		if fetch.IsStatus(err, 404) {
			return "", fmt.Errorf("%w: post %s not found", acquire.ErrNoTranscript, ref.ID)
		}
		return "", fmt.Errorf("microblog: tweet-result: %w", err)
	}

	best, ok := bestVariant(p)
	if !ok {
		return "", fmt.Errorf("%w: post %s has no video", acquire.ErrNoTranscript, ref.ID)
	}
	return s.transcriber.Transcribe(ctx, best.URL, nil)
}

func bestVariant(p post) (variant, bool) {
	var (
		best  variant
		found bool
	)
	for _, m := range p.MediaDetails {
		if m.Type != "video" && m.Type != "animated_gif" {
			continue
		}
		for _, v := range m.VideoInfo.Variants {
			if v.ContentType != "video/mp4" || v.URL == "" {
				continue
			}
			if !found || v.Bitrate > best.Bitrate {
				best, found = v, true
			}
		}
	}
	return best, found
}

// token derives the syndication API token from the post id: id/1e15*pi in
// base 36 with zeros and the radix point removed.
func token(id string) string {
	n, err := strconv.ParseFloat(id, 64)
	if err != nil {
		return "0"
	}
	v := n / 1e15 * math.Pi
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"

	intPart := uint64(v)
	frac := v - float64(intPart)
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(intPart, 36))
	for i := 0; i < 11 && frac > 0; i++ {
		frac *= 36
		d := int(frac)
		sb.WriteByte(digits[d])
		frac -= float64(d)
	}
	out := strings.ReplaceAll(sb.String(), "0", "")
	if out == "" {
		return "0"
	}
	return out
}
