// Package source classifies debate URLs.
//
// [Resolve] maps a raw URL to a [Reference]: the hosting platform family, the
// identifier that platform uses for the content, and the URL itself. It is
// pure and deterministic; it never touches the network.
package source

import (
	"errors"
	"fmt"
	"strings"
)

// Platform is the closed set of hosting families the pipeline knows about.
type Platform string

const (
	// VideoPlatform hosts long-form video with optional caption tracks.
	VideoPlatform Platform = "video"
	// AudioPlatform hosts audio tracks.
	AudioPlatform Platform = "audio"
	// ShortFormPlatform hosts short clips behind an HTML page.
	ShortFormPlatform Platform = "short_form"
	// MicroblogPlatform hosts posts that may embed video.
	MicroblogPlatform Platform = "microblog"
	// PodcastPlatform hosts podcast episodes.
	PodcastPlatform Platform = "podcast"
	// MessagingPlatform hosts chat messages with media attachments.
	MessagingPlatform Platform = "messaging"
	// DirectMedia is a URL that points straight at a media file.
	DirectMedia Platform = "direct_media"
	// Unknown is any URL no rule recognised.
	Unknown Platform = "unknown"
)

var allPlatforms = []Platform{
	VideoPlatform,
	AudioPlatform,
	ShortFormPlatform,
	MicroblogPlatform,
	PodcastPlatform,
	MessagingPlatform,
	DirectMedia,
	Unknown,
}

// AllPlatforms returns every [Platform] value.
func AllPlatforms() []Platform {
	return append([]Platform(nil), allPlatforms...)
}

// String returns the wire name of the platform.
func (p Platform) String() string { return string(p) }

// IsValid reports whether p is one of the known platforms.
func (p Platform) IsValid() bool {
	for _, known := range allPlatforms {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePlatform parses a wire name ("video", "podcast", ...). Matching is
// case-insensitive and accepts "-" in place of "_".
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !p.IsValid() {
		return Unknown, fmt.Errorf("source: unknown platform %q", s)
	}
	return p, nil
}

// Reference identifies a piece of debate content on its platform.
type Reference struct {
	Platform Platform
	// ID is the platform's identifier. Never empty for a known platform.
	ID string
	// URL is the URL the reference was resolved from.
	URL string
}

// ErrSourceIDExtraction is the sentinel for "the platform was recognised but
// no identifier could be extracted".
var ErrSourceIDExtraction = errors.New("source id extraction failed")

// ExtractionError reports which platform matched before extraction failed.
type ExtractionError struct {
	Platform Platform
	URL      string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("source: %s: could not extract %s id from %q", ErrSourceIDExtraction, e.Platform, e.URL)
}

// Unwrap returns [ErrSourceIDExtraction].
func (e *ExtractionError) Unwrap() error { return ErrSourceIDExtraction }
