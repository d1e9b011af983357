// Package llmmerge reconciles two transcripts of the same debate with a
// language model.
//
// The model receives the primary transcript (authoritative) and an
// independently produced secondary transcript and returns one merged text as
// JSON. Inputs are truncated to a character budget; whatever follows the
// budget in the primary is appended to the merged excerpt unchanged, so
// verification is advisory for very long debates.
package llmmerge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/debatescribe/internal/observe"
	"github.com/MrWong99/debatescribe/internal/transcript"
	"github.com/MrWong99/debatescribe/pkg/provider/llm"
)

const (
	defaultTemperature     = 0.0
	defaultMaxExcerptChars = transcript.DefaultMaxExcerptChars

	// charsPerToken is the rough ratio used to size excerpts against the
	// model's limits.
	charsPerToken = 4
)

// ErrEmptyMerge is returned when the model answers without merged text.
var ErrEmptyMerge = errors.New("llmmerge: model returned no merged text")

const systemPrompt = `You reconcile two transcripts of the same recorded debate.

PRIMARY is the authoritative transcript. SECONDARY was produced independently by the hosting platform.

Rules:
- Produce one continuous transcript of the PRIMARY excerpt.
- Where the two differ only in wording, punctuation or formatting, keep PRIMARY.
- Where SECONDARY clearly corrects a transcription error in PRIMARY (a misheard word, a misspelled name, a dropped word), use the corrected form.
- Never add content that appears in neither transcript. Never summarise or omit content from PRIMARY.
- Do not add speaker labels, timestamps or commentary.

Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"merged_text": "<the reconciled transcript>"}`

type response struct {
	MergedText string `json:"merged_text"`
}

// Option is a functional option for [New].
type Option func(*Merger)

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(m *Merger) { m.temperature = temp }
}

// WithMaxExcerptChars bounds each input sent to the model. Default: 24000.
func WithMaxExcerptChars(n int) Option {
	return func(m *Merger) {
		if n > 0 {
			m.maxChars = n
		}
	}
}

// WithMetrics records LLM latency on met.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Merger) { m.metrics = met }
}

// Merger is safe for concurrent use.
type Merger struct {
	llm         llm.Provider
	temperature float64
	maxChars    int
	metrics     *observe.Metrics
}

// New creates a [Merger] backed by provider.
func New(provider llm.Provider, opts ...Option) *Merger {
	m := &Merger{
		llm:         provider,
		temperature: defaultTemperature,
		maxChars:    defaultMaxExcerptChars,
	}
	for _, o := range opts {
		o(m)
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	return m
}

// Reconcile asks the model to merge primary and secondary.
func (m *Merger) Reconcile(ctx context.Context, primary, secondary string) (string, error) {
	limit := m.excerptLimit()
	head, tail := transcript.SplitExcerpt(strings.TrimSpace(primary), limit)
	secHead, _ := transcript.SplitExcerpt(strings.TrimSpace(secondary), limit)

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  m.temperature,
		JSONMode:     true,
		Messages: []llm.Message{
			{Role: "user", Content: "PRIMARY:\n" + head + "\n\nSECONDARY:\n" + secHead},
		},
	}
	if caps := m.llm.Capabilities(); caps.MaxOutputTokens > 0 {
		req.MaxTokens = caps.MaxOutputTokens
	}

	start := time.Now()
	resp, err := m.llm.Complete(ctx, req)
	m.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("operation", "reconcile")))
	if err != nil {
		return "", fmt.Errorf("llmmerge: complete: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyMerge
	}

	merged, err := parseResponse(resp.Content)
	if err != nil {
		return "", err
	}
	if tail != "" {
		merged += " " + tail
	}
	return merged, nil
}

// excerptLimit is the configured bound, further capped so two excerpts plus
// the answer fit the model's context window and the answer fits its output
// limit.
func (m *Merger) excerptLimit() int {
	limit := m.maxChars
	caps := m.llm.Capabilities()
	if caps.ContextWindow > 0 {
		limit = min(limit, caps.ContextWindow*charsPerToken/3)
	}
	if caps.MaxOutputTokens > 0 {
		limit = min(limit, caps.MaxOutputTokens*charsPerToken)
	}
	return max(limit, 1)
}

func parseResponse(content string) (string, error) {
	var r response
	if err := json.Unmarshal([]byte(stripMarkdown(content)), &r); err != nil {
		return "", fmt.Errorf("llmmerge: parse response: %w", err)
	}
	merged := strings.TrimSpace(r.MergedText)
	if merged == "" {
		return "", ErrEmptyMerge
	}
	return merged, nil
}

// stripMarkdown removes optional ```json fences around the answer.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}
