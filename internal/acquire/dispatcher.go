package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/source"
)

// Dispatcher maps every [source.Platform] to exactly one [Strategy]. The
// table is fixed at construction and safe for concurrent reads.
type Dispatcher struct {
	table    map[source.Platform]Strategy
	timeouts Timeouts
	metrics  *observe.Metrics
}

// DispatcherOption is a functional option for [NewDispatcher].
type DispatcherOption func(*Dispatcher)

// WithDispatcherMetrics records strategy attempts on m.
func WithDispatcherMetrics(m *observe.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// NewDispatcher validates that table covers every platform in
// [source.AllPlatforms] and copies it.
func NewDispatcher(table map[source.Platform]Strategy, timeouts Timeouts, opts ...DispatcherOption) (*Dispatcher, error) {
	var missing []string
	for _, p := range source.AllPlatforms() {
		if s, ok := table[p]; !ok || s == nil {
			missing = append(missing, string(p))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("acquire: dispatcher table has no strategy for %s", strings.Join(missing, ", "))
	}

	d := &Dispatcher{
		table:    make(map[source.Platform]Strategy, len(table)),
		timeouts: timeouts.WithDefaults(),
	}
	for p, s := range table {
		d.table[p] = s
	}
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d, nil
}

// Strategy returns the strategy registered for p.
func (d *Dispatcher) Strategy(p source.Platform) Strategy {
	if s, ok := d.table[p]; ok {
		return s
	}
	return d.table[source.Unknown]
}

// Dispatch runs the strategy for ref.Platform under the strategy budget.
// Failures, including empty transcripts, come back as *[AcquisitionError].
func (d *Dispatcher) Dispatch(ctx context.Context, ref source.Reference) (Candidate, error) {
	return Run(ctx, d.Strategy(ref.Platform), ref, d.timeouts.StrategyBudget(), d.metrics)
}

// Run executes s once with the given budget, recording a span and the
// attempt metrics.
func Run(ctx context.Context, s Strategy, ref source.Reference, budget time.Duration, m *observe.Metrics) (Candidate, error) {
	tag := s.Tag()
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "acquire.strategy "+string(tag))

	start := time.Now()
	text, err := s.Acquire(ctx, ref)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrNoTranscript
	}
	observe.EndSpan(span, err)
	m.RecordStrategy(ctx, string(tag), string(ref.Platform), outcomeOf(err), time.Since(start))

	if err != nil {
		observe.Logger(ctx).Info("strategy failed",
			"strategy", tag, "platform", ref.Platform, "error", err)
		return Candidate{}, &AcquisitionError{Strategy: tag, Platform: ref.Platform, Err: err}
	}
	return Candidate{Content: strings.TrimSpace(text), Origin: tag}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return observe.OutcomeSuccess
	case errors.Is(err, ErrNoTranscript):
		return observe.OutcomeNoTranscript
	case errors.Is(err, ErrStrategyUnavailable):
		return observe.OutcomeUnavailable
	default:
		return observe.OutcomeError
	}
}
