// Package youtube acquires transcripts for long-form video.
//
// The primary strategy reads the caption tracks advertised on the watch
// page and downloads the best one as timedtext XML. When an API key is
// configured, the YouTube Data API is consulted first so deleted videos and
// live streams fail fast. The secondary source downloads the other kind of
// track in the same language: the automatic captions when the primary used
// an uploaded track, and the reverse.
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/MrWong99/debatescribe/internal/acquire"
	"github.com/MrWong99/debatescribe/internal/fetch"
	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
)

const (
	DefaultWatchBase = "https://www.youtube.com"
	DefaultAPIBase   = "https://www.googleapis.com/youtube/v3"
)

var (
	_ acquire.Strategy        = (*Client)(nil)
	_ acquire.SecondarySource = (*Client)(nil)
)

// Option is a functional option for [New].
type Option func(*Client)

// WithAPIKey enables the Data API metadata check.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithWatchBase overrides [DefaultWatchBase].
func WithWatchBase(base string) Option {
	return func(c *Client) { c.watchBase = strings.TrimRight(base, "/") }
}

// WithAPIBase overrides [DefaultAPIBase].
func WithAPIBase(base string) Option {
	return func(c *Client) { c.apiBase = strings.TrimRight(base, "/") }
}

// WithLanguage sets the preferred caption language. Default: "en".
func WithLanguage(lang string) Option {
	return func(c *Client) { c.language = lang }
}

// Client is both the video_captions strategy and the alternate-track
// secondary source. It is safe for concurrent use.
type Client struct {
	fetch     *fetch.Client
	apiKey    string
	watchBase string
	apiBase   string
	language  string
}

// New creates a [Client]. fc should carry the Data API rate limit.
func New(fc *fetch.Client, opts ...Option) *Client {
	c := &Client{
		fetch:     fc,
		watchBase: DefaultWatchBase,
		apiBase:   DefaultAPIBase,
		language:  "en",
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Tag implements [acquire.Strategy].
func (c *Client) Tag() acquire.StrategyTag { return acquire.VideoCaptions }

// Acquire implements [acquire.Strategy].
func (c *Client) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	if c.apiKey != "" {
		if err := c.checkVideo(ctx, ref.ID); err != nil {
			return "", err
		}
	}

	tracks, err := c.captionTracks(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	track, ok := pickTrack(tracks, c.language)
	if !ok {
		return "", fmt.Errorf("%w: video has no caption tracks", acquire.ErrNoTranscript)
	}
	observe.Logger(ctx).Debug("caption track selected",
		"video_id", ref.ID, "language", track.LanguageCode, "kind", track.Kind)
	return c.download(ctx, track)
}

// Secondary implements [acquire.SecondarySource]. It returns the track of the
// other kind in the primary track's language.
func (c *Client) Secondary(ctx context.Context, ref source.Reference) (string, error) {
	tracks, err := c.captionTracks(ctx, ref.ID)
	if err != nil {
		return "", err
	}
	primary, ok := pickTrack(tracks, c.language)
	if !ok {
		return "", fmt.Errorf("%w: video has no caption tracks", acquire.ErrNoTranscript)
	}
	track, ok := pickAlternate(tracks, primary)
	if !ok {
		return "", fmt.Errorf("%w: no independent caption track", acquire.ErrNoTranscript)
	}
	observe.Logger(ctx).Debug("secondary caption track selected",
		"video_id", ref.ID, "language", track.LanguageCode, "kind", track.Kind)
	return c.download(ctx, track)
}

func (c *Client) download(ctx context.Context, track captionTrack) (string, error) {
	resp, err := c.fetch.Get(ctx, track.BaseURL, nil)
	if err != nil {
		return "", fmt.Errorf("youtube: download captions: %w", err)
	}
	return parseTimedText(resp.Body)
}

type videoListResponse struct {
	Items []struct {
		Snippet struct {
			LiveBroadcastContent string `json:"liveBroadcastContent"`
		} `json:"snippet"`
	} `json:"items"`
}

// checkVideo asks the Data API whether the video exists and has finished
// broadcasting.
func (c *Client) checkVideo(ctx context.Context, id string) error {
	q := url.Values{"part": {"snippet,contentDetails"}, "id": {id}, "key": {c.apiKey}}
	var resp videoListResponse
	if err := c.fetch.GetJSON(ctx, c.apiBase+"/videos?"+q.Encode(), nil, &resp); err != nil {
		return fmt.Errorf("youtube: videos.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return fmt.Errorf("%w: video %q not found", acquire.ErrNoTranscript, id)
	}
	switch live := resp.Items[0].Snippet.LiveBroadcastContent; live {
	case "live", "upcoming":
		return fmt.Errorf("%w: video is %s", acquire.ErrNoTranscript, live)
	}
	return nil
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	// Kind is "asr" for automatic captions and empty for uploaded ones.
	Kind string `json:"kind"`
}

const captionTracksKey = `"captionTracks":`

// captionTracks scrapes the caption track list from the watch page's player
// response.
func (c *Client) captionTracks(ctx context.Context, id string) ([]captionTrack, error) {
	resp, err := c.fetch.Get(ctx, c.watchBase+"/watch?"+url.Values{"v": {id}}.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: watch page: %w", err)
	}
	page := string(resp.Body)
	idx := strings.Index(page, captionTracksKey)
	if idx < 0 {
		return nil, nil
	}

	var tracks []captionTrack
	dec := json.NewDecoder(strings.NewReader(page[idx+len(captionTracksKey):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("youtube: decode caption tracks: %w", err)
	}
	return tracks, nil
}

// pickTrack prefers an uploaded track in lang, then an automatic one in
// lang, then any uploaded track, then anything.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	matches := func(t captionTrack) bool {
		return strings.EqualFold(primarySubtag(t.LanguageCode), primarySubtag(lang))
	}
	preds := []func(captionTrack) bool{
		func(t captionTrack) bool { return matches(t) && t.Kind != "asr" },
		matches,
		func(t captionTrack) bool { return t.Kind != "asr" },
		func(captionTrack) bool { return true },
	}
	for _, p := range preds {
		for _, t := range tracks {
			if t.BaseURL != "" && p(t) {
				return t, true
			}
		}
	}
	return captionTrack{}, false
}

// pickAlternate returns the first track in primary's language whose kind
// differs from primary's.
func pickAlternate(tracks []captionTrack, primary captionTrack) (captionTrack, bool) {
	lang := primarySubtag(primary.LanguageCode)
	for _, t := range tracks {
		if t.BaseURL == "" || (t.Kind == "asr") == (primary.Kind == "asr") {
			continue
		}
		if strings.EqualFold(primarySubtag(t.LanguageCode), lang) {
			return t, true
		}
	}
	return captionTrack{}, false
}

func primarySubtag(tag string) string {
	before, _, _ := strings.Cut(tag, "-")
	return before
}

type timedText struct {
	Texts []string `xml:"text"`
}

// parseTimedText joins the cues of a timedtext document. Sound annotations
// such as "[Music]" are dropped.
func parseTimedText(data []byte) (string, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("youtube: parse timedtext: %w", err)
	}
	var parts []string
	for _, t := range doc.Texts {
		t = strings.Join(strings.Fields(html.UnescapeString(t)), " ")
		if t == "" || (strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")) {
			continue
		}
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: caption track is empty", acquire.ErrNoTranscript)
	}
	return strings.Join(parts, " "), nil
}
