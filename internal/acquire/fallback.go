package acquire

import (
	"context"
	"errors"

	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
)

// Fallback runs the generic media strategy after a primary failure, when the
// URL points at a media file.
type Fallback struct {
	generic  Strategy
	timeouts Timeouts
	metrics  *observe.Metrics
}

// NewFallback creates a [Fallback] around the generic direct-media strategy.
func NewFallback(generic Strategy, timeouts Timeouts, m *observe.Metrics) *Fallback {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &Fallback{generic: generic, timeouts: timeouts.WithDefaults(), metrics: m}
}

// WithFallback is called with the primary's failure. It returns the fallback
// candidate on success. Otherwise it returns an *[ExhaustedError] listing
// the primary attempt and the fallback attempt or the reason it was skipped.
// The returned attempts are the same ones the error lists.
//
// The generic strategy runs at most once and never when it already was the
// primary.
func (f *Fallback) WithFallback(ctx context.Context, primaryErr error, ref source.Reference) (Candidate, []AcquisitionError, error) {
	attempts := primaryAttempts(primaryErr, ref)
	platform := ref.Platform
	var xerr *source.ExtractionError
	if errors.As(primaryErr, &xerr) {
		platform = xerr.Platform
	}

	exhausted := func() (Candidate, []AcquisitionError, error) {
		return Candidate{}, attempts, &ExhaustedError{Platform: platform, Attempts: attempts}
	}

	for _, a := range attempts {
		if a.Strategy == f.generic.Tag() && !a.Skipped {
			return exhausted()
		}
	}
	if !source.IsDirectMedia(ref.URL) {
		attempts = append(attempts, AcquisitionError{
			Strategy: f.generic.Tag(),
			Platform: ref.Platform,
			Skipped:  true,
			Err:      errNotDirectMedia,
		})
		f.metrics.RecordStrategy(ctx, string(f.generic.Tag()), string(ref.Platform), observe.OutcomeSkipped, 0)
		return exhausted()
	}

	mediaRef := source.Reference{Platform: source.DirectMedia, ID: ref.URL, URL: ref.URL}
	cand, err := Run(ctx, f.generic, mediaRef, f.timeouts.AudioFetch+f.timeouts.Transcription, f.metrics)
	if err != nil {
		var aerr *AcquisitionError
		if errors.As(err, &aerr) {
			attempts = append(attempts, *aerr)
		} else {
			attempts = append(attempts, AcquisitionError{Strategy: f.generic.Tag(), Platform: source.DirectMedia, Err: err})
		}
		return exhausted()
	}
	observe.Logger(ctx).Info("fallback produced transcript", "platform", platform, "url", ref.URL)
	return cand, attempts, nil
}

func primaryAttempts(primaryErr error, ref source.Reference) []AcquisitionError {
	if primaryErr == nil {
		return nil
	}
	var aerr *AcquisitionError
	if errors.As(primaryErr, &aerr) {
		return []AcquisitionError{*aerr}
	}
	return []AcquisitionError{{Strategy: Unsupported, Platform: ref.Platform, Skipped: true, Err: primaryErr}}
}
