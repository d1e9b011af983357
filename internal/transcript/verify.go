// Package transcript cross-verifies a primary transcript against an
// independently produced secondary one.
//
// The [Verifier] delegates the actual merge to a [Reconciler]. Verification
// never fails a request: any problem leaves the primary transcript in place
// with Verified set to false.
package transcript

import (
	"context"
	"strings"
	"time"

	"github.com/MrWong99/debatescribe/internal/observe"
)

// Outcome is the verifier's result.
type Outcome struct {
	FinalContent string
	// Verified is true only when a secondary transcript was reconciled into
	// FinalContent.
	Verified bool
}

// Reconciler merges two transcripts of the same content into one. Both
// [github.com/MrWong99/debatescribe/internal/transcript/llmmerge] and
// [github.com/MrWong99/debatescribe/internal/transcript/align] implement it.
type Reconciler interface {
	Reconcile(ctx context.Context, primary, secondary string) (string, error)
}

const defaultReconcileTimeout = 30 * time.Second

// VerifierOption is a functional option for [NewVerifier].
type VerifierOption func(*Verifier)

// WithTimeout bounds each reconciliation. Default: 30s.
func WithTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithMetrics records outcomes on m.
func WithMetrics(m *observe.Metrics) VerifierOption {
	return func(v *Verifier) { v.metrics = m }
}

// Verifier is safe for concurrent use. A nil reconciler disables
// verification.
type Verifier struct {
	reconciler Reconciler
	timeout    time.Duration
	metrics    *observe.Metrics
}

// NewVerifier creates a [Verifier].
func NewVerifier(r Reconciler, opts ...VerifierOption) *Verifier {
	v := &Verifier{reconciler: r, timeout: defaultReconcileTimeout}
	for _, o := range opts {
		o(v)
	}
	if v.metrics == nil {
		v.metrics = observe.DefaultMetrics()
	}
	return v
}

// Verify reconciles primary with secondary. A nil or blank secondary skips
// reconciliation entirely.
func (v *Verifier) Verify(ctx context.Context, primary string, secondary *string) Outcome {
	unverified := Outcome{FinalContent: primary}
	if secondary == nil || strings.TrimSpace(*secondary) == "" {
		v.metrics.RecordVerification(ctx, "no_secondary")
		return unverified
	}
	if v.reconciler == nil {
		v.metrics.RecordVerification(ctx, observe.OutcomeSkipped)
		return unverified
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	ctx, span := observe.StartSpan(ctx, "transcript.verify")

	merged, err := v.reconciler.Reconcile(ctx, primary, *secondary)
	merged = strings.TrimSpace(merged)
	observe.EndSpan(span, err)

	switch {
	case err != nil:
		observe.Logger(ctx).Warn("verification degraded", "error", err)
	case merged == "":
		observe.Logger(ctx).Warn("verification degraded", "error", "reconciler returned empty text")
	default:
		v.metrics.RecordVerification(ctx, "verified")
		return Outcome{FinalContent: merged, Verified: true}
	}
	v.metrics.RecordVerification(ctx, "degraded")
	return unverified
}
