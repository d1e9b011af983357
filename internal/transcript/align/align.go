// Package align reconciles two transcripts of the same content without a
// language model.
//
// Both texts are split into whitespace tokens and aligned on their
// normalised form (lowercase, surrounding punctuation removed). Each distinct
// token is encoded as one rune and the two rune strings are diffed with
// Myers' algorithm, which runs in linear space and stops at the context
// deadline. The merge then walks the diff:
//
//   - aligned tokens that differ only in case or punctuation take the
//     better-punctuated spelling, preferring the secondary on a tie;
//   - runs present only in the secondary are inserted;
//   - runs present only in the primary are kept;
//   - substituted tokens take the secondary's spelling when both words sound
//     alike (shared Double Metaphone code and Jaro-Winkler above the
//     threshold) and keep the primary's otherwise.
//
// Only the first max-excerpt characters of each input are aligned. The rest
// of the primary is appended unchanged.
package align

import (
	"context"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/MrWong99/debatescribe/internal/transcript"
)

const (
	defaultSoundsAlikeThreshold = 0.80

	// defaultDiffTimeout applies when ctx carries no deadline.
	defaultDiffTimeout = 5 * time.Second
)

// Option is a functional option for [New].
type Option func(*Reconciler)

// WithSoundsAlikeThreshold sets the minimum Jaro-Winkler similarity for two
// phonetically equal words to count as the same spoken word. Default: 0.80.
func WithSoundsAlikeThreshold(th float64) Option {
	return func(r *Reconciler) { r.threshold = th }
}

// WithMaxExcerptChars bounds how much of each input is aligned.
// Default: 24000.
func WithMaxExcerptChars(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.maxChars = n
		}
	}
}

// Reconciler is deterministic and safe for concurrent use.
type Reconciler struct {
	threshold float64
	maxChars  int
}

// New creates a [Reconciler].
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		threshold: defaultSoundsAlikeThreshold,
		maxChars:  transcript.DefaultMaxExcerptChars,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile merges primary and secondary. It only fails when ctx is done.
func (r *Reconciler) Reconcile(ctx context.Context, primary, secondary string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	head, tail := transcript.SplitExcerpt(strings.TrimSpace(primary), r.maxChars)
	secHead, _ := transcript.SplitExcerpt(strings.TrimSpace(secondary), r.maxChars)

	a := strings.Fields(head)
	b := strings.Fields(secHead)
	var out []string
	switch {
	case len(b) == 0:
		out = a
	case len(a) == 0:
		out = b
	default:
		diffs, err := diffTokens(ctx, normaliseAll(a), normaliseAll(b))
		if err != nil {
			return "", err
		}
		out = r.merge(a, b, diffs, tail != "")
	}

	merged := strings.Join(out, " ")
	if tail != "" {
		merged = strings.TrimSpace(merged + " " + tail)
	}
	return merged, nil
}

// merge walks diffs over the token slices. When the primary was truncated,
// secondary-only tokens after the last aligned token are dropped: they
// belong to text the appended tail already covers.
func (r *Reconciler) merge(a, b []string, diffs []diffmatchpatch.Diff, truncated bool) []string {
	out := make([]string, 0, max(len(a), len(b)))
	ai, bi := 0, 0
	gapA, gapB := 0, 0
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			ai += n
		case diffmatchpatch.DiffInsert:
			bi += n
		case diffmatchpatch.DiffEqual:
			out = r.mergeGap(out, a[gapA:ai], b[gapB:bi])
			for k := range n {
				out = append(out, betterPunctuated(a[ai+k], b[bi+k]))
			}
			ai, bi = ai+n, bi+n
			gapA, gapB = ai, bi
		}
	}
	if truncated {
		gapB = bi
	}
	return r.mergeGap(out, a[gapA:ai], b[gapB:bi])
}

// mergeGap resolves a region between two aligned tokens.
func (r *Reconciler) mergeGap(out, pa, sb []string) []string {
	switch {
	case len(pa) == 0:
		return append(out, sb...)
	case len(sb) == 0:
		return append(out, pa...)
	}
	for i, tok := range pa {
		if i < len(sb) && r.soundsAlike(tok, sb[i]) {
			out = append(out, sb[i])
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (r *Reconciler) soundsAlike(x, y string) bool {
	nx, ny := normalise(x), normalise(y)
	if nx == "" || ny == "" {
		return false
	}
	if !codesOverlap(nx, ny) {
		return false
	}
	return matchr.JaroWinkler(nx, ny, false) >= r.threshold
}

func codesOverlap(x, y string) bool {
	xp, xs := matchr.DoubleMetaphone(x)
	yp, ys := matchr.DoubleMetaphone(y)
	for _, c := range []string{xp, xs} {
		if c != "" && (c == yp || c == ys) {
			return true
		}
	}
	return false
}

// betterPunctuated picks between two spellings of the same word. More
// punctuation and capitalisation wins; the secondary wins ties.
func betterPunctuated(primary, secondary string) string {
	if primary == secondary {
		return primary
	}
	if markup(primary) > markup(secondary) {
		return primary
	}
	return secondary
}

func markup(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsUpper(r) {
			n++
		}
	}
	return n
}

func normalise(s string) string {
	return strings.ToLower(strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}

func normaliseAll(toks []string) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = normalise(t)
	}
	return out
}

// diffTokens aligns two normalised token streams. Every distinct token maps
// to one rune; empty tokens get a fresh rune each so they never align.
func diffTokens(ctx context.Context, x, y []string) ([]diffmatchpatch.Diff, error) {
	var enc encoder
	rx, ry := enc.encode(x), enc.encode(y)

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = defaultDiffTimeout
	if deadline, ok := ctx.Deadline(); ok {
		dmp.DiffTimeout = time.Until(deadline)
		if dmp.DiffTimeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	diffs := dmp.DiffMainRunes(rx, ry, false)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return diffs, nil
}

type encoder struct {
	codes map[string]rune
	next  int
}

func (e *encoder) encode(toks []string) []rune {
	if e.codes == nil {
		e.codes = make(map[string]rune)
	}
	out := make([]rune, len(toks))
	for i, t := range toks {
		if t == "" {
			out[i] = e.fresh()
			continue
		}
		c, ok := e.codes[t]
		if !ok {
			c = e.fresh()
			e.codes[t] = c
		}
		out[i] = c
	}
	return out
}

// fresh returns the next unused rune, skipping the surrogate range so every
// code survives a round trip through string.
func (e *encoder) fresh() rune {
	e.next++
	c := rune(e.next)
	if c >= 0xD800 {
		c += 0x800
	}
	return c
}
