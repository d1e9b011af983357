package acquire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/debatescribe/internal/source"
)

var (
	// ErrNoTranscript means the platform has no transcript for the content.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrStrategyUnavailable means the strategy is missing credentials or
	// configuration.
	ErrStrategyUnavailable = errors.New("strategy unavailable")

	// ErrAllStrategiesExhausted is matched by [*ExhaustedError].
	ErrAllStrategiesExhausted = errors.New("all strategies exhausted")

	// ErrPersistence is matched by [*PersistenceError].
	ErrPersistence = errors.New("persisting transcript failed")

	// ErrInvalidRequest is returned for a request missing its debate id or
	// source URL.
	ErrInvalidRequest = errors.New("invalid request")

	// errNotDirectMedia is the reason recorded when the fallback is skipped.
	errNotDirectMedia = errors.New("URL is not a direct media file")
)

// AcquisitionError records one failed or skipped strategy attempt.
type AcquisitionError struct {
	Strategy StrategyTag
	Platform source.Platform
	// Skipped is true when the strategy was never run.
	Skipped bool
	Err     error
}

func (e *AcquisitionError) Error() string {
	if e.Skipped {
		return fmt.Sprintf("%s: skipped: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// ExhaustedError is returned when neither the primary strategy nor the
// fallback produced a transcript.
type ExhaustedError struct {
	Platform source.Platform
	Attempts []AcquisitionError
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i := range e.Attempts {
		parts[i] = e.Attempts[i].Error()
	}
	msg := fmt.Sprintf("%s for platform %q", ErrAllStrategiesExhausted, e.Platform)
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, "; ")
}

// Is matches [ErrAllStrategiesExhausted].
func (e *ExhaustedError) Is(target error) bool { return target == ErrAllStrategiesExhausted }

// Unwrap exposes every attempt's cause.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i := range e.Attempts {
		errs[i] = &e.Attempts[i]
	}
	return errs
}

// PersistenceError wraps a storage failure. The transcript itself was
// acquired; the caller receives it alongside this error.
type PersistenceError struct {
	DebateID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s for debate %q: %v", ErrPersistence, e.DebateID, e.Err)
}

// Is matches [ErrPersistence].
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func (e *PersistenceError) Unwrap() error { return e.Err }
