package acquire

import (
	"context"
	"errors"
	"strings"

	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
)

// SecondarySource looks up a platform-native transcript that was produced
// independently of the primary strategy. It reports [ErrNoTranscript] when
// the content has none.
type SecondarySource interface {
	Secondary(ctx context.Context, ref source.Reference) (string, error)
}

// SecondaryFetcher holds the secondary sources registered per platform.
type SecondaryFetcher struct {
	sources  map[source.Platform]SecondarySource
	timeouts Timeouts
	metrics  *observe.Metrics
}

// NewSecondaryFetcher creates a [SecondaryFetcher]. Platforms without an
// entry in sources never have a secondary transcript.
func NewSecondaryFetcher(sources map[source.Platform]SecondarySource, timeouts Timeouts, m *observe.Metrics) *SecondaryFetcher {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	copied := make(map[source.Platform]SecondarySource, len(sources))
	for p, s := range sources {
		if s != nil {
			copied[p] = s
		}
	}
	return &SecondaryFetcher{sources: copied, timeouts: timeouts.WithDefaults(), metrics: m}
}

// FetchSecondary returns the secondary transcript for ref, or nil when there
// is none. Lookup failures are logged and reported as absence; the error
// result is always nil.
func (f *SecondaryFetcher) FetchSecondary(ctx context.Context, ref source.Reference) (*Candidate, error) {
	src, ok := f.sources[ref.Platform]
	if !ok || ref.Platform == source.Unknown {
		f.metrics.RecordSecondary(ctx, string(ref.Platform), observe.OutcomeSkipped)
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeouts.Metadata)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "acquire.secondary")
	defer span.End()

	text, err := src.Secondary(ctx, ref)
	text = strings.TrimSpace(text)
	switch {
	case err == nil && text != "":
		f.metrics.RecordSecondary(ctx, string(ref.Platform), observe.OutcomeSuccess)
		return &Candidate{Content: text, Origin: Secondary}, nil
	case err == nil, errors.Is(err, ErrNoTranscript):
		observe.Logger(ctx).Debug("no secondary transcript", "platform", ref.Platform, "id", ref.ID)
		f.metrics.RecordSecondary(ctx, string(ref.Platform), observe.OutcomeNoTranscript)
	default:
		observe.Logger(ctx).Warn("secondary transcript lookup failed",
			"platform", ref.Platform, "id", ref.ID, "error", err)
		f.metrics.RecordSecondary(ctx, string(ref.Platform), observe.OutcomeError)
	}
	return nil, nil
}
