package store

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace   TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       BLOB NOT NULL,
	expires_at  INTEGER,
	stored_at   INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);

CREATE INDEX IF NOT EXISTS idx_kv_entries_expires ON kv_entries (expires_at);

CREATE TABLE IF NOT EXISTS scrobble_records (
	id           TEXT PRIMARY KEY,
	service      TEXT NOT NULL,
	kind         TEXT NOT NULL,
	track_id     TEXT NOT NULL,
	submitted_at INTEGER NOT NULL,
	retry_count  INTEGER NOT NULL DEFAULT 0,
	next_attempt_at INTEGER NOT NULL,
	created_at   INTEGER NOT NULL,
	payload      BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrobble_records_next_attempt ON scrobble_records (next_attempt_at);

CREATE TABLE IF NOT EXISTS migration_markers (
	name        TEXT PRIMARY KEY,
	migrated_at INTEGER NOT NULL
);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
