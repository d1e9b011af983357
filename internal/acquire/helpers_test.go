package acquire

import (
	"context"
	"sync"

	"github.com/MrWong99/debatescribe/internal/source"
)

// stubStrategy returns fixed results and records the references it saw.
type stubStrategy struct {
	tag  StrategyTag
	text string
	err  error

	mu   sync.Mutex
	refs []source.Reference
}

func (s *stubStrategy) Tag() StrategyTag { return s.tag }

func (s *stubStrategy) Acquire(_ context.Context, ref source.Reference) (string, error) {
	s.mu.Lock()
	s.refs = append(s.refs, ref)
	s.mu.Unlock()
	return s.text, s.err
}

func (s *stubStrategy) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}

// fullTable maps every platform to a failing stub, then applies overrides.
func fullTable(overrides map[source.Platform]Strategy) map[source.Platform]Strategy {
	tags := map[source.Platform]StrategyTag{
		source.VideoPlatform:     VideoCaptions,
		source.AudioPlatform:     AudioStream,
		source.ShortFormPlatform: ShortFormPage,
		source.MicroblogPlatform: MicroblogMedia,
		source.PodcastPlatform:   PodcastEpisode,
		source.MessagingPlatform: MessageAttachment,
		source.DirectMedia:       DirectMedia,
	}
	table := make(map[source.Platform]Strategy)
	for p, tag := range tags {
		table[p] = &stubStrategy{tag: tag, err: ErrNoTranscript}
	}
	table[source.Unknown] = UnsupportedStrategy
	for p, s := range overrides {
		table[p] = s
	}
	return table
}

type stubSecondary struct {
	text string
	err  error
}

func (s stubSecondary) Secondary(context.Context, source.Reference) (string, error) {
	return s.text, s.err
}

// secondaryFunc adapts a function to [SecondarySource].
type secondaryFunc func(ctx context.Context, ref source.Reference) (string, error)

func (f secondaryFunc) Secondary(ctx context.Context, ref source.Reference) (string, error) {
	return f(ctx, ref)
}
