// Package store defines the persistence boundary for acquired transcripts.
//
// The pipeline hands a fully built [Record] to a [Store] exactly once per
// successful acquisition and never mutates it afterwards. The PostgreSQL
// implementation lives in [github.com/MrWong99/debatescribe/internal/store/postgres];
// [Memory] keeps records in process for one-shot runs without a database.
package store

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/MrWong99/debatescribe/internal/source"
)

// Record is one stored transcript.
type Record struct {
	// ID and CreatedAt are assigned by the store.
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	DebateID string `json:"debate_id"`
	Content  string `json:"content"`
	// Language is a BCP-47 tag such as "en".
	Language string `json:"language"`
	// Verified is true when a secondary transcript was reconciled into
	// Content.
	Verified bool `json:"verified"`

	SourcePlatform source.Platform `json:"source_platform"`
	SourceURL      string          `json:"source_url"`
	SourceID       string          `json:"source_id"`
	// PrimaryStrategy is the strategy tag that produced the primary
	// transcript.
	PrimaryStrategy string `json:"primary_strategy"`
}

// Store persists transcripts.
type Store interface {
	// SaveTranscript stores rec and returns it with ID and CreatedAt set.
	SaveTranscript(ctx context.Context, rec Record) (Record, error)

	// TranscriptsForDebate returns every stored transcript of a debate,
	// oldest first.
	TranscriptsForDebate(ctx context.Context, debateID string) ([]Record, error)
}

// Memory is an in-process [Store]. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []Record
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty [Memory] store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// SaveTranscript implements [Store].
func (m *Memory) SaveTranscript(_ context.Context, rec Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = strconv.Itoa(len(m.records) + 1)
	rec.CreatedAt = m.now().UTC()
	m.records = append(m.records, rec)
	return rec, nil
}

// TranscriptsForDebate implements [Store].
func (m *Memory) TranscriptsForDebate(_ context.Context, debateID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Record{}
	for _, r := range m.records {
		if r.DebateID == debateID {
			out = append(out, r)
		}
	}
	return slices.Clip(out), nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
