// Package podcast acquires transcripts for podcast episodes.
//
// The primary strategy looks the episode up in the iTunes directory and
// transcribes its enclosure. The secondary source reads the show's RSS feed
// and downloads the episode's <podcast:transcript>, when the publisher
// provides one.
package podcast

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/platform"
	"github.com/MrWong99/debatescribe/internal/source"
)

// DefaultLookupBase is the iTunes Search API.
const DefaultLookupBase = "https://itunes.apple.com"

var (
	_ acquire.Strategy        = (*Client)(nil)
	_ acquire.SecondarySource = (*Client)(nil)
)

// Option is a functional option for [New].
type Option func(*Client)

// WithLookupBase overrides [DefaultLookupBase].
func WithLookupBase(base string) Option {
	return func(c *Client) { c.lookupBase = strings.TrimRight(base, "/") }
}

// Client is the podcast_episode strategy and the RSS transcript secondary
// source. It is safe for concurrent use.
type Client struct {
	fetch       *fetch.Client
	transcriber platform.Transcriber
	feeds       *gofeed.Parser
	lookupBase  string
}

// New creates a [Client].
func New(fc *fetch.Client, tr platform.Transcriber, opts ...Option) *Client {
	c := &Client{
		fetch:       fc,
		transcriber: tr,
		feeds:       gofeed.NewParser(),
		lookupBase:  DefaultLookupBase,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tag implements [acquire.Strategy].
func (c *Client) Tag() acquire.StrategyTag { return acquire.PodcastEpisode }

// Acquire implements [acquire.Strategy].
func (c *Client) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	ep, err := c.lookupEpisode(ctx, ref)
	if err != nil {
		return "", err
	}
	if ep.EpisodeURL == "" {
		return "", fmt.Errorf("%w: episode %s has no audio", acquire.ErrNoTranscript, ref.ID)
	}
	return c.transcriber.Transcribe(ctx, ep.EpisodeURL, nil)
}

// Secondary implements [acquire.SecondarySource].
func (c *Client) Secondary(ctx context.Context, ref source.Reference) (string, error) {
	ep, err := c.lookupEpisode(ctx, ref)
	if err != nil {
		return "", err
	}
	if ep.FeedURL == "" {
		return "", fmt.Errorf("%w: show has no public feed", acquire.ErrNoTranscript)
	}

	resp, err := c.fetch.Get(ctx, ep.FeedURL, nil)
	if err != nil {
		return "", fmt.Errorf("podcast: fetch feed: %w", err)
	}
	feed, err := c.feeds.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("podcast: parse feed: %w", err)
	}

	item := findItem(feed, ep)
	if item == nil {
		return "", fmt.Errorf("%w: episode not in feed", acquire.ErrNoTranscript)
	}
	tr, ok := pickTranscript(item.Extensions)
	if !ok {
		return "", fmt.Errorf("%w: episode has no podcast:transcript", acquire.ErrNoTranscript)
	}
	observe.Logger(ctx).Debug("podcast transcript found", "url", tr.url, "type", tr.mimeType)

	body, err := c.fetch.Get(ctx, tr.url, nil)
	if err != nil {
		return "", fmt.Errorf("podcast: fetch transcript: %w", err)
	}
	mimeType := tr.mimeType
	if mimeType == "" {
		mimeType = body.ContentType
	}
	return ParseTranscript(body.Body, mimeType)
}

type lookupResult struct {
	WrapperType string `json:"wrapperType"`
	TrackID     int64  `json:"trackId"`
	TrackName   string `json:"trackName"`
	FeedURL     string `json:"feedUrl"`
	EpisodeURL  string `json:"episodeUrl"`
	EpisodeGUID string `json:"episodeGuid"`
}

type lookupResponse struct {
	Results []lookupResult `json:"results"`
}

// lookupEpisode finds the episode among the show's episodes, or by its own
// id when the URL names no show. The show's feed URL is filled in from the
// show entry when the episode entry lacks it.
func (c *Client) lookupEpisode(ctx context.Context, ref source.Reference) (lookupResult, error) {
	id := ref.ID
	if showID := showIDFromURL(ref.URL); showID != "" {
		id = showID
	}
	q := url.Values{"id": {id}, "entity": {"podcastEpisode"}, "limit": {"200"}}

	var resp lookupResponse
	if err := c.fetch.GetJSON(ctx, c.lookupBase+"/lookup?"+q.Encode(), nil, &resp); err != nil {
		return lookupResult{}, fmt.Errorf("podcast: lookup: %w", err)
	}

	var show, episode *lookupResult
	for i := range resp.Results {
		r := &resp.Results[i]
		switch {
		case r.WrapperType == "podcastEpisode" && strconv.FormatInt(r.TrackID, 10) == ref.ID:
			episode = r
		case r.WrapperType == "track" && show == nil:
			show = r
		}
	}
	if episode == nil {
		return lookupResult{}, fmt.Errorf("%w: episode %s not found", acquire.ErrNoTranscript, ref.ID)
	}
	ep := *episode
	if ep.FeedURL == "" && show != nil {
		ep.FeedURL = show.FeedURL
	}
	return ep, nil
}

// showIDFromURL returns the numeric show id from a path segment like
// "id1200361736".
func showIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(u.Path, "/") {
		digits, ok := strings.CutPrefix(seg, "id")
		if !ok || digits == "" {
			continue
		}
		if _, err := strconv.ParseUint(digits, 10, 64); err == nil {
			return digits
		}
	}
	return ""
}

func findItem(feed *gofeed.Feed, ep lookupResult) *gofeed.Item {
	for _, item := range feed.Items {
		if ep.EpisodeGUID != "" && item.GUID == ep.EpisodeGUID {
			return item
		}
		for _, enc := range item.Enclosures {
			if ep.EpisodeURL != "" && sameMedia(enc.URL, ep.EpisodeURL) {
				return item
			}
		}
	}
	for _, item := range feed.Items {
		if ep.TrackName != "" && strings.EqualFold(strings.TrimSpace(item.Title), strings.TrimSpace(ep.TrackName)) {
			return item
		}
	}
	return nil
}

// sameMedia compares enclosure URLs without their query strings, which
// often carry tracking parameters.
func sameMedia(a, b string) bool {
	strip := func(s string) string {
		before, _, _ := strings.Cut(s, "?")
		return before
	}
	return strip(a) == strip(b)
}

type transcriptRef struct {
	url      string
	mimeType string
}

// transcriptPreference ranks transcript formats. Unlisted types rank last.
var transcriptPreference = map[string]int{
	"text/plain":           0,
	"text/html":            1,
	"application/json":     2,
	"text/vtt":             3,
	"application/x-subrip": 4,
	"application/srt":      4,
	"text/srt":             4,
}

func pickTranscript(exts ext.Extensions) (transcriptRef, bool) {
	var (
		best     transcriptRef
		bestRank = -1
	)
	for _, e := range exts["podcast"]["transcript"] {
		u := e.Attrs["url"]
		if u == "" {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(e.Attrs["type"]))
		rank, ok := transcriptPreference[t]
		if !ok {
			rank = len(transcriptPreference)
		}
		if bestRank < 0 || rank < bestRank {
			best, bestRank = transcriptRef{url: u, mimeType: t}, rank
		}
	}
	return best, bestRank >= 0
}
