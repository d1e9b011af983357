package resilience

import (
	"context"

	"github.com/MrWong99/debatescribe/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with failover across several STT
// backends, each behind its own circuit breaker.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an [STTFallback] with primary as the preferred
// backend.
func NewSTTFallback(primary stt.Provider, primaryName string, cfg FallbackConfig) *STTFallback {
	return &STTFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers an additional STT backend.
func (f *STTFallback) AddFallback(name string, provider stt.Provider) {
	f.group.AddFallback(name, provider)
}

// Transcribe runs the first healthy backend. An empty transcript counts as a
// success: silence is not a backend failure.
func (f *STTFallback) Transcribe(ctx context.Context, audio stt.Audio, opts stt.Options) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p stt.Provider) (string, error) {
		return p.Transcribe(ctx, audio, opts)
	})
}
