package source

import (
	"net/url"
	"path"
	"strings"
)

// hostRule maps host suffixes to a platform and its id extractor.
type hostRule struct {
	platform Platform
	hosts    []string
	extract  func(u *url.URL, segments []string) string
}

var hostRules = []hostRule{
	{
		platform: VideoPlatform,
		hosts:    []string{"youtube.com", "youtu.be", "youtube-nocookie.com", "example-video.test"},
		extract:  videoID,
	},
	{
		platform: AudioPlatform,
		hosts:    []string{"soundcloud.com", "on.soundcloud.com"},
		extract:  audioID,
	},
	{
		platform: ShortFormPlatform,
		hosts:    []string{"tiktok.com", "vm.tiktok.com", "instagram.com"},
		extract:  shortFormID,
	},
	{
		platform: MicroblogPlatform,
		hosts:    []string{"twitter.com", "x.com", "mobile.twitter.com", "micro.test"},
		extract:  func(_ *url.URL, seg []string) string { return segmentAfter(seg, "status", "statuses") },
	},
	{
		platform: PodcastPlatform,
		hosts:    []string{"podcasts.apple.com", "itunes.apple.com"},
		extract:  podcastID,
	},
	{
		platform: MessagingPlatform,
		hosts:    []string{"discord.com", "discordapp.com", "ptb.discord.com", "canary.discord.com"},
		extract:  messageID,
	},
}

var mediaExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true, ".flac": true,
	".ogg": true, ".oga": true, ".opus": true, ".weba": true,
	".mp4": true, ".m4v": true, ".mov": true, ".webm": true, ".mkv": true,
	".avi": true, ".mpeg": true, ".mpg": true,
}

// Resolve classifies rawURL.
//
// A non-nil hint other than [Unknown] skips host detection but identifier
// extraction still runs. Without a hint, host rules are tried first, then
// the media-extension check. Malformed input resolves to [Unknown] with the
// input as its ID and a nil error.
//
// When a platform is recognised but its identifier cannot be extracted,
// Resolve returns an [Unknown] reference together with an *[ExtractionError]
// naming the platform that matched.
func Resolve(rawURL string, hint *Platform) (Reference, error) {
	unknown := Reference{Platform: Unknown, ID: rawURL, URL: rawURL}

	u, ok := parse(rawURL)
	if !ok {
		return unknown, nil
	}
	segments := splitPath(u.Path)

	var (
		platform Platform
		extract  func(*url.URL, []string) string
	)
	if hint != nil && *hint != Unknown && hint.IsValid() {
		platform = *hint
		extract = extractorFor(platform)
	} else if r, found := matchHost(u.Hostname()); found {
		platform, extract = r.platform, r.extract
	} else if IsDirectMedia(rawURL) {
		platform, extract = DirectMedia, mediaID
	} else {
		return unknown, nil
	}

	id := strings.TrimSpace(extract(u, segments))
	if id == "" {
		return unknown, &ExtractionError{Platform: platform, URL: rawURL}
	}
	return Reference{Platform: platform, ID: id, URL: rawURL}, nil
}

// IsDirectMedia reports whether rawURL's path ends in a recognised media
// extension. Query strings and fragments are ignored.
func IsDirectMedia(rawURL string) bool {
	u, ok := parse(rawURL)
	if !ok {
		return false
	}
	return mediaExtensions[strings.ToLower(path.Ext(u.Path))]
}

func parse(rawURL string) (*url.URL, bool) {
	s := strings.TrimSpace(rawURL)
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return nil, false
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	default:
		return nil, false
	}
}

func matchHost(host string) (hostRule, bool) {
	host = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(host), "www."), "m.")
	for _, r := range hostRules {
		for _, h := range r.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return r, true
			}
		}
	}
	return hostRule{}, false
}

func extractorFor(p Platform) func(*url.URL, []string) string {
	if p == DirectMedia {
		return mediaID
	}
	for _, r := range hostRules {
		if r.platform == p {
			return r.extract
		}
	}
	return func(*url.URL, []string) string { return "" }
}

func splitPath(p string) []string {
	var out []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// segmentAfter returns the path segment following the first of keys.
func segmentAfter(segments []string, keys ...string) string {
	for i, s := range segments {
		for _, k := range keys {
			if strings.EqualFold(s, k) && i+1 < len(segments) {
				return segments[i+1]
			}
		}
	}
	return ""
}

func videoID(u *url.URL, seg []string) string {
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	host := strings.ToLower(u.Hostname())
	if strings.HasSuffix(host, "youtu.be") && len(seg) > 0 {
		return seg[0]
	}
	return segmentAfter(seg, "shorts", "live", "embed", "v")
}

// audioID returns "artist/track". Set and profile URLs have no single track
// and therefore no id.
func audioID(_ *url.URL, seg []string) string {
	if len(seg) < 2 {
		return ""
	}
	switch seg[1] {
	case "sets", "tracks", "likes", "reposts", "albums", "followers", "following":
		return ""
	}
	return seg[0] + "/" + seg[1]
}

func shortFormID(_ *url.URL, seg []string) string {
	return segmentAfter(seg, "video", "reel", "reels", "p")
}

func podcastID(u *url.URL, seg []string) string {
	if i := u.Query().Get("i"); i != "" {
		return i
	}
	if id := segmentAfter(seg, "episode"); id != "" {
		return id
	}
	if len(seg) > 0 {
		if last := seg[len(seg)-1]; strings.HasPrefix(last, "id") && len(last) > 2 {
			return last[2:]
		}
	}
	return ""
}

// messageID returns "channelID/messageID" from
// /channels/<guild>/<channel>/<message>.
func messageID(_ *url.URL, seg []string) string {
	for i, s := range seg {
		if s == "channels" && i+3 < len(seg) {
			return seg[i+2] + "/" + seg[i+3]
		}
	}
	return ""
}

func mediaID(u *url.URL, _ []string) string {
	if u.Path == "" || u.Path == "/" {
		return ""
	}
	return u.Path
}
