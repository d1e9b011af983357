package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTranscripts = `
CREATE TABLE IF NOT EXISTS transcripts (
    id               BIGSERIAL    PRIMARY KEY,
    debate_id        TEXT         NOT NULL,
    content          TEXT         NOT NULL,
    language         TEXT         NOT NULL DEFAULT '',
    verified         BOOLEAN      NOT NULL DEFAULT FALSE,
    source_platform  TEXT         NOT NULL,
    source_url       TEXT         NOT NULL,
    source_id        TEXT         NOT NULL DEFAULT '',
    primary_strategy TEXT         NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ  NOT NULL DEFAULT now(),
    CONSTRAINT transcripts_content_not_empty CHECK (content <> '')
);

CREATE INDEX IF NOT EXISTS idx_transcripts_debate_id
    ON transcripts (debate_id, created_at);
`

// Migrate creates the transcripts table and its indexes. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlTranscripts); err != nil {
		return fmt.Errorf("migrate transcripts: %w", err)
	}
	return nil
}
