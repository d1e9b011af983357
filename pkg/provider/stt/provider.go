// Package stt defines the Provider interface for Speech-to-Text backends.
//
// A provider turns a complete, already-downloaded media payload (an mp3, an
// m4a, a video container) into plain text. Streaming recognition is out of
// scope: debates are transcribed after the fact, so every backend is driven
// in batch mode even when its wire protocol is a stream.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrEmptyAudio is returned by providers when asked to transcribe a payload
// with no bytes.
var ErrEmptyAudio = errors.New("stt: audio payload is empty")

// Audio is an encoded media payload as fetched from its source.
type Audio struct {
	// Data holds the raw container bytes (mp3, m4a, wav, mp4, ...).
	Data []byte

	// ContentType is the MIME type reported by the origin, if any.
	ContentType string

	// Filename is a name with a meaningful extension. Several backends sniff
	// the format from it.
	Filename string
}

// Name returns Filename, or a generic name derived from ContentType when
// Filename is empty.
func (a Audio) Name() string {
	if a.Filename != "" {
		return path.Base(a.Filename)
	}
	ct := strings.ToLower(a.ContentType)
	switch {
	case strings.Contains(ct, "mpeg"), strings.Contains(ct, "mp3"):
		return "audio.mp3"
	case strings.Contains(ct, "mp4"), strings.Contains(ct, "m4a"), strings.Contains(ct, "aac"):
		return "audio.m4a"
	case strings.Contains(ct, "wav"):
		return "audio.wav"
	case strings.Contains(ct, "ogg"), strings.Contains(ct, "opus"):
		return "audio.ogg"
	case strings.Contains(ct, "webm"):
		return "audio.webm"
	default:
		return "audio.bin"
	}
}

// Options carries recognition hints for one transcription.
type Options struct {
	// Language is the BCP-47 language tag (e.g., "en", "de-DE"). Empty lets the
	// provider auto-detect or use its own default.
	Language string

	// Prompt is optional context text some backends use to bias spelling
	// (speaker names, topic vocabulary).
	Prompt string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe returns the full text for audio. It returns promptly when ctx
	// is cancelled. An empty string with a nil error means the backend heard
	// nothing; callers decide whether that is a failure.
	Transcribe(ctx context.Context, audio Audio, opts Options) (string, error)
}
