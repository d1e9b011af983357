package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
	"github.com/MrWong99/debatescribe/internal/store"
	"github.com/MrWong99/debatescribe/internal/transcript"
)

// Verifier reconciles a primary transcript with an optional secondary one.
// It never fails; see [transcript.Verifier].
type Verifier interface {
	Verify(ctx context.Context, primary string, secondary *string) transcript.Outcome
}

// ServiceConfig holds the collaborators of a [Service]. All fields except
// Metrics are required; Language defaults to "en".
type ServiceConfig struct {
	Dispatcher *Dispatcher
	Fallback   *Fallback
	Secondary  *SecondaryFetcher
	Verifier   Verifier
	Store      store.Store
	Language   string
	Metrics    *observe.Metrics
}

// Service is the single entry point of the pipeline. It is safe for
// concurrent use; each call is independent.
type Service struct {
	dispatcher *Dispatcher
	fallback   *Fallback
	secondary  *SecondaryFetcher
	verifier   Verifier
	store      store.Store
	language   string
	metrics    *observe.Metrics
}

// NewService validates cfg and creates a [Service].
func NewService(cfg ServiceConfig) (*Service, error) {
	var errs []error
	if cfg.Dispatcher == nil {
		errs = append(errs, errors.New("dispatcher is required"))
	}
	if cfg.Fallback == nil {
		errs = append(errs, errors.New("fallback is required"))
	}
	if cfg.Secondary == nil {
		errs = append(errs, errors.New("secondary fetcher is required"))
	}
	if cfg.Verifier == nil {
		errs = append(errs, errors.New("verifier is required"))
	}
	if cfg.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("acquire: new service: %w", err)
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Service{
		dispatcher: cfg.Dispatcher,
		fallback:   cfg.Fallback,
		secondary:  cfg.Secondary,
		verifier:   cfg.Verifier,
		store:      cfg.Store,
		language:   cfg.Language,
		metrics:    cfg.Metrics,
	}, nil
}

// AcquireTranscript resolves sourceURL, obtains a primary transcript (with
// fallback) while looking up a secondary one, verifies, and stores the
// result. hint, when non-nil, overrides platform detection.
//
// On an *[ExhaustedError] no record is produced. On a *[PersistenceError]
// the returned record is the in-memory one that failed to store.
func (s *Service) AcquireTranscript(ctx context.Context, debateID, sourceURL string, hint *source.Platform) (store.Record, error) {
	debateID, sourceURL = strings.TrimSpace(debateID), strings.TrimSpace(sourceURL)
	if debateID == "" || sourceURL == "" {
		return store.Record{}, fmt.Errorf("%w: debate id and source URL are required", ErrInvalidRequest)
	}

	start := time.Now()
	s.metrics.ActiveAcquisitions.Add(ctx, 1)
	defer s.metrics.ActiveAcquisitions.Add(ctx, -1)

	ctx, span := observe.StartSpan(ctx, "acquire.transcript")
	log := observe.Logger(ctx).With("debate_id", debateID)

	ref, resolveErr := source.Resolve(sourceURL, hint)
	log.Info("source resolved", "platform", ref.Platform, "source_id", ref.ID)

	var (
		primary   Candidate
		secondary *Candidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = s.acquirePrimary(gctx, ref, resolveErr)
		return err
	})
	g.Go(func() error {
		secondary, _ = s.secondary.FetchSecondary(gctx, ref)
		return nil
	})
	if err := g.Wait(); err != nil {
		observe.EndSpan(span, err)
		log.Warn("acquisition failed", "error", err)
		s.metrics.RecordAcquisition(ctx, string(ref.Platform), outcomeOf(err), false, time.Since(start))
		return store.Record{}, err
	}

	var secText *string
	if secondary != nil {
		secText = &secondary.Content
	}
	outcome := s.verifier.Verify(ctx, primary.Content, secText)

	rec := store.Record{
		DebateID:        debateID,
		Content:         outcome.FinalContent,
		Language:        s.language,
		Verified:        outcome.Verified,
		SourcePlatform:  ref.Platform,
		SourceURL:       ref.URL,
		SourceID:        ref.ID,
		PrimaryStrategy: string(primary.Origin),
	}
	saved, err := s.store.SaveTranscript(ctx, rec)
	if err != nil {
		perr := &PersistenceError{DebateID: debateID, Err: err}
		observe.EndSpan(span, perr)
		log.Error("persisting transcript failed", "error", err)
		s.metrics.RecordAcquisition(ctx, string(ref.Platform), observe.OutcomeError, rec.Verified, time.Since(start))
		return rec, perr
	}

	observe.EndSpan(span, nil)
	log.Info("transcript stored",
		"record_id", saved.ID,
		"strategy", primary.Origin,
		"verified", saved.Verified,
		"chars", len(saved.Content),
		"duration", time.Since(start),
	)
	s.metrics.RecordAcquisition(ctx, string(ref.Platform), observe.OutcomeSuccess, saved.Verified, time.Since(start))
	return saved, nil
}

// acquirePrimary runs the platform strategy, unless the identifier could not
// be extracted, and then the fallback on failure.
func (s *Service) acquirePrimary(ctx context.Context, ref source.Reference, resolveErr error) (Candidate, error) {
	var primaryErr error
	if resolveErr != nil {
		platform := ref.Platform
		var xerr *source.ExtractionError
		if errors.As(resolveErr, &xerr) {
			platform = xerr.Platform
		}
		observe.Logger(ctx).Warn("source id extraction failed, skipping platform strategy",
			"platform", platform, "error", resolveErr)
		primaryErr = &AcquisitionError{
			Strategy: s.dispatcher.Strategy(platform).Tag(),
			Platform: platform,
			Skipped:  true,
			Err:      resolveErr,
		}
	} else {
		cand, err := s.dispatcher.Dispatch(ctx, ref)
		if err == nil {
			return cand, nil
		}
		primaryErr = err
	}

	cand, _, err := s.fallback.WithFallback(ctx, primaryErr, ref)
	return cand, err
}
