package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/debatescribe/internal/source"
	"github.com/MrWong99/debatescribe/internal/store"
	"github.com/MrWong99/debatescribe/internal/store/postgres"
)

// newTestStore skips unless DEBATESCRIBE_TEST_POSTGRES_DSN is set. The
// transcripts table is dropped first so every test starts clean.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	dsn := os.Getenv("DEBATESCRIBE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DEBATESCRIBE_TEST_POSTGRES_DSN not set; skipping PostgreSQL integration tests")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS transcripts CASCADE"); err != nil {
		t.Fatalf("drop: %v", err)
	}
	pool.Close()

	st, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(st.Close)
	return st
}

func TestStore_SaveAndList(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	in := store.Record{
		DebateID:        "debate-1",
		Content:         "Hello, world!",
		Language:        "en",
		Verified:        true,
		SourcePlatform:  source.VideoPlatform,
		SourceURL:       "https://www.youtube.com/watch?v=abc",
		SourceID:        "abc",
		PrimaryStrategy: "video_captions",
	}
	saved, err := st.SaveTranscript(ctx, in)
	if err != nil {
		t.Fatalf("SaveTranscript: %v", err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Fatalf("storage fields not assigned: %+v", saved)
	}

	got, err := st.TranscriptsForDebate(ctx, "debate-1")
	if err != nil {
		t.Fatalf("TranscriptsForDebate: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	r := got[0]
	if r.ID != saved.ID || r.Content != in.Content || !r.Verified ||
		r.SourcePlatform != source.VideoPlatform || r.PrimaryStrategy != "video_captions" {
		t.Errorf("round trip mismatch: %+v", r)
	}
}

func TestStore_RejectsEmptyContent(t *testing.T) {
	st := newTestStore(t)
	_, err := st.SaveTranscript(context.Background(), store.Record{
		DebateID: "d", SourcePlatform: source.Unknown, SourceURL: "u",
	})
	if err == nil {
		t.Fatal("expected check constraint violation for empty content")
	}
}

func TestStore_Ping(t *testing.T) {
	st := newTestStore(t)
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
