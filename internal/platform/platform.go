// Package platform holds what the per-platform acquisition strategies in its
// sub-packages share.
//
// Most platforms do not publish transcripts. Their strategies locate the
// underlying media file and hand it to a [Transcriber], normally the generic
// [github.com/MrWong99/debatescribe/internal/media.Transcriber].
package platform

import (
	"context"
	"net/http"
)

// Transcriber downloads a media file and returns its transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL string, header http.Header) (string, error)
}

// TranscriberFunc adapts a function to [Transcriber].
type TranscriberFunc func(ctx context.Context, mediaURL string, header http.Header) (string, error)

// Transcribe implements [Transcriber].
func (f TranscriberFunc) Transcribe(ctx context.Context, mediaURL string, header http.Header) (string, error) {
	return f(ctx, mediaURL, header)
}
