// Package pagemedia implements the short_form_page strategy: the clip's HTML
// page is scraped for its video file, which is then transcribed.
package pagemedia

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/platform"
	"github.com/MrWong99/debatescribe/internal/source"
)

var _ acquire.Strategy = (*Strategy)(nil)

// Strategy is safe for concurrent use.
type Strategy struct {
	fetch       *fetch.Client
	transcriber platform.Transcriber
}

// New creates the strategy.
func New(fc *fetch.Client, tr platform.Transcriber) *Strategy {
	return &Strategy{fetch: fc, transcriber: tr}
}

// Tag implements [acquire.Strategy].
func (s *Strategy) Tag() acquire.StrategyTag { return acquire.ShortFormPage }

// Acquire implements [acquire.Strategy].
func (s *Strategy) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	resp, err := s.fetch.Get(ctx, ref.URL, nil)
	if err != nil {
		return "", fmt.Errorf("pagemedia: fetch page: %w", err)
	}
	mediaURL, err := FindMediaURL(resp.Body, resp.URL)
	if err != nil {
		return "", err
	}
	// Several CDNs refuse media requests without the embedding page as
	// referrer.
	return s.transcriber.Transcribe(ctx, mediaURL, http.Header{"Referer": {resp.URL}})
}

// metaSelectors are tried in order. The secure og:video URL comes first.
var metaSelectors = []string{
	`meta[property="og:video:secure_url"]`,
	`meta[property="og:video:url"]`,
	`meta[property="og:video"]`,
	`meta[name="twitter:player:stream"]`,
}

// FindMediaURL returns the absolute URL of the page's video, from Open Graph
// metadata or, failing that, the first <video> element.
func FindMediaURL(page []byte, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("pagemedia: parse page: %w", err)
	}

	var candidates []string
	for _, sel := range metaSelectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			candidates = append(candidates, v)
		}
	}
	doc.Find("video").EachWithBreak(func(_ int, v *goquery.Selection) bool {
		if src, ok := v.Attr("src"); ok {
			candidates = append(candidates, src)
		}
		if src, ok := v.Find("source[src]").First().Attr("src"); ok {
			candidates = append(candidates, src)
		}
		return false
	})

	base, _ := url.Parse(pageURL)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || strings.HasPrefix(c, "blob:") {
			continue
		}
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if ref.Scheme == "http" || ref.Scheme == "https" {
			return ref.String(), nil
		}
	}
	return "", fmt.Errorf("%w: page exposes no video file", acquire.ErrNoTranscript)
}
