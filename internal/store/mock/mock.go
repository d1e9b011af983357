// Package mock provides a recording test double for [store.Store].
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrWong99/debatescribe/internal/store"
)

// Store is a configurable [store.Store]. It is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	// SaveErr is returned by SaveTranscript when non-nil. The record is not
	// kept in that case.
	SaveErr error

	// ListErr is returned by TranscriptsForDebate when non-nil.
	ListErr error

	saved []store.Record
	calls int
}

var _ store.Store = (*Store)(nil)

// SaveTranscript implements [store.Store].
func (s *Store) SaveTranscript(_ context.Context, rec store.Record) (store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.SaveErr != nil {
		return store.Record{}, s.SaveErr
	}
	rec.ID = fmt.Sprintf("rec-%d", len(s.saved)+1)
	rec.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.saved = append(s.saved, rec)
	return rec, nil
}

// TranscriptsForDebate implements [store.Store].
func (s *Store) TranscriptsForDebate(_ context.Context, debateID string) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []store.Record
	for _, r := range s.saved {
		if r.DebateID == debateID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Saved returns a copy of every successfully saved record.
func (s *Store) Saved() []store.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Record(nil), s.saved...)
}

// SaveCalls returns how many times SaveTranscript was called.
func (s *Store) SaveCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
