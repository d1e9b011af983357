// Package mock provides a test double for stt.Provider.
//
// Example:
//
//	p := &mock.Provider{Text: "Hello world."}
//	text, _ := p.Transcribe(ctx, audio, stt.Options{Language: "en"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/debatescribe/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	Ctx   context.Context
	Audio stt.Audio
	Opts  stt.Options
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe.
	Text string

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// Func, if set, takes precedence over Text and Err.
	Func func(ctx context.Context, audio stt.Audio, opts stt.Options) (string, error)

	// Calls records every call to Transcribe in order.
	Calls []TranscribeCall
}

// Transcribe records the call and returns Text, Err.
func (p *Provider) Transcribe(ctx context.Context, audio stt.Audio, opts stt.Options) (string, error) {
	p.mu.Lock()
	data := make([]byte, len(audio.Data))
	copy(data, audio.Data)
	audio.Data = data
	p.Calls = append(p.Calls, TranscribeCall{Ctx: ctx, Audio: audio, Opts: opts})
	fn, text, err := p.Func, p.Text, p.Err
	p.mu.Unlock()
	if fn != nil {
		return fn(ctx, audio, opts)
	}
	return text, err
}

// CallCount returns the number of Transcribe calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

var _ stt.Provider = (*Provider)(nil)
