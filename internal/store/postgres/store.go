// Package postgres stores transcripts in PostgreSQL through a [pgxpool.Pool].
//
//	st, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer st.Close()
package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/debatescribe/internal/source"
	"github.com/MrWong99/debatescribe/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore opens a pool for dsn, pings it and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Ping checks that the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// SaveTranscript implements [store.Store].
func (s *Store) SaveTranscript(ctx context.Context, rec store.Record) (store.Record, error) {
	const q = `
		INSERT INTO transcripts
		    (debate_id, content, language, verified, source_platform, source_url, source_id, primary_strategy)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	var id int64
	err := s.pool.QueryRow(ctx, q,
		rec.DebateID, rec.Content, rec.Language, rec.Verified,
		string(rec.SourcePlatform), rec.SourceURL, rec.SourceID, rec.PrimaryStrategy,
	).Scan(&id, &rec.CreatedAt)
	if err != nil {
		return store.Record{}, fmt.Errorf("postgres store: save transcript: %w", err)
	}
	rec.ID = strconv.FormatInt(id, 10)
	return rec, nil
}

// TranscriptsForDebate implements [store.Store].
func (s *Store) TranscriptsForDebate(ctx context.Context, debateID string) ([]store.Record, error) {
	const q = `
		SELECT id, debate_id, content, language, verified, source_platform,
		       source_url, source_id, primary_strategy, created_at
		FROM transcripts
		WHERE debate_id = $1
		ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, q, debateID)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list transcripts: %w", err)
	}
	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("postgres store: list transcripts: %w", err)
	}
	return recs, nil
}

func scanRecord(row pgx.CollectableRow) (store.Record, error) {
	var (
		r        store.Record
		id       int64
		platform string
	)
	err := row.Scan(&id, &r.DebateID, &r.Content, &r.Language, &r.Verified, &platform,
		&r.SourceURL, &r.SourceID, &r.PrimaryStrategy, &r.CreatedAt)
	r.ID = strconv.FormatInt(id, 10)
	r.SourcePlatform = source.Platform(platform)
	return r, err
}
