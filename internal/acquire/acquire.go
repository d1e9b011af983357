// Package acquire turns a resolved debate [source.Reference] into a stored
// transcript.
//
// A [Dispatcher] picks the platform's [Strategy], a [Fallback] retries
// through generic media transcription when the URL allows it, a
// [SecondaryFetcher] looks for an independent platform-native transcript,
// and [Service] ties them together with verification and persistence.
package acquire

import (
	"context"
	"fmt"
	"time"

	"github.com/MrWong99/debatescribe/internal/source"
)

// StrategyTag names an acquisition strategy.
type StrategyTag string

const (
	VideoCaptions     StrategyTag = "video_captions"
	AudioStream       StrategyTag = "audio_stream"
	ShortFormPage     StrategyTag = "short_form_page"
	MicroblogMedia    StrategyTag = "microblog_media"
	PodcastEpisode    StrategyTag = "podcast_episode"
	MessageAttachment StrategyTag = "message_attachment"
	DirectMedia       StrategyTag = "direct_media"
	Unsupported       StrategyTag = "unsupported"

	// Secondary tags the origin of a secondary transcript.
	Secondary StrategyTag = "secondary"
)

// Strategy obtains a transcript for one platform family. Implementations
// hold no per-request state and are safe for concurrent use.
//
// Acquire returns the transcript text, [ErrNoTranscript] when the platform
// has none, [ErrStrategyUnavailable] when the strategy lacks credentials,
// or any other error for a failed attempt.
type Strategy interface {
	Tag() StrategyTag
	Acquire(ctx context.Context, ref source.Reference) (string, error)
}

// StrategyFunc adapts a function to [Strategy].
type StrategyFunc struct {
	Name StrategyTag
	Fn   func(ctx context.Context, ref source.Reference) (string, error)
}

// Tag implements [Strategy].
func (s StrategyFunc) Tag() StrategyTag { return s.Name }

// Acquire implements [Strategy].
func (s StrategyFunc) Acquire(ctx context.Context, ref source.Reference) (string, error) {
	return s.Fn(ctx, ref)
}

// UnsupportedStrategy handles [source.Unknown]. It never touches the network
// and always reports [ErrNoTranscript] so the fallback check runs.
var UnsupportedStrategy Strategy = StrategyFunc{
	Name: Unsupported,
	Fn: func(context.Context, source.Reference) (string, error) {
		return "", fmt.Errorf("%w: unrecognised source", ErrNoTranscript)
	},
}

// Candidate is a transcript and the strategy that produced it.
type Candidate struct {
	Content string
	Origin  StrategyTag
}

// Timeouts are the per-call budgets of the pipeline. Zero fields fall back to
// the defaults in [DefaultTimeouts].
type Timeouts struct {
	// Metadata bounds platform API and caption lookups, including secondary
	// transcript lookups.
	Metadata time.Duration
	// AudioFetch bounds a single media download.
	AudioFetch time.Duration
	// Transcription bounds a single STT call.
	Transcription time.Duration
	// Reconciliation bounds the verifier.
	Reconciliation time.Duration
}

// DefaultTimeouts returns the stock budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Metadata:       10 * time.Second,
		AudioFetch:     60 * time.Second,
		Transcription:  120 * time.Second,
		Reconciliation: 30 * time.Second,
	}
}

// WithDefaults fills zero fields from [DefaultTimeouts].
func (t Timeouts) WithDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Metadata <= 0 {
		t.Metadata = d.Metadata
	}
	if t.AudioFetch <= 0 {
		t.AudioFetch = d.AudioFetch
	}
	if t.Transcription <= 0 {
		t.Transcription = d.Transcription
	}
	if t.Reconciliation <= 0 {
		t.Reconciliation = d.Reconciliation
	}
	return t
}

// StrategyBudget is the outer deadline for one strategy run: a metadata
// lookup followed by a download and a transcription.
func (t Timeouts) StrategyBudget() time.Duration {
	t = t.WithDefaults()
	return t.Metadata + t.AudioFetch + t.Transcription
}
