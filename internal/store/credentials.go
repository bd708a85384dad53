package store

import (
	"context"
	"fmt"
	"time"
)

// MigrateLegacyCredentials runs migrate exactly once, recording completion
// under marker so repeated calls (e.g. on every app start) are no-ops. This
// matches the teacher's migration idiom of a named, idempotent marker row
// rather than a numbered migration ladder, since there is exactly one
// legacy source to migrate away from.
func (s *Store) MigrateLegacyCredentials(ctx context.Context, marker string, migrate func(ctx context.Context) error) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM migration_markers WHERE name = ?`, marker).Scan(&exists)
	if err != nil {
		return fmt.Errorf("store: check migration marker %s: %w", marker, err)
	}
	if exists > 0 {
		return nil
	}

	if err := migrate(ctx); err != nil {
		return fmt.Errorf("store: legacy credential migration %s: %w", marker, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO migration_markers (name, migrated_at) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		marker, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: record migration marker %s: %w", marker, err)
	}
	return nil
}
