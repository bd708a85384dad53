package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when no entry (or only an expired one)
// exists for the given namespace/key.
var ErrNotFound = errors.New("store: entry not found")

// Get reads the value stored under namespace/key. An entry past its
// expiry is treated as absent and is not implicitly deleted here; callers
// relying on strict pruning should run PruneExpired on a schedule.
func (s *Store) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	value, _, err := s.GetWithExpiry(ctx, namespace, key)
	return value, err
}

// GetWithExpiry is Get plus the entry's expiry instant (the zero Time if the
// entry never expires). ApiCache's persistent-tier promotion into memory
// needs the real expiry rather than an invented one, so the memory tier
// never outlives what the persistent tier actually promised.
func (s *Store) GetWithExpiry(ctx context.Context, namespace, key string) ([]byte, time.Time, error) {
	var value []byte
	var expiresAt sql.NullInt64
	row := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_entries WHERE namespace = ? AND key = ?`,
		namespace, key)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, ErrNotFound
		}
		return nil, time.Time{}, fmt.Errorf("store: get %s/%s: %w", namespace, key, err)
	}
	if expiresAt.Valid && expiresAt.Int64 <= time.Now().Unix() {
		return nil, time.Time{}, ErrNotFound
	}
	var exp time.Time
	if expiresAt.Valid {
		exp = time.Unix(expiresAt.Int64, 0)
	}
	return value, exp, nil
}

// Set upserts the value for namespace/key. A zero ttl means the entry
// never expires.
func (s *Store) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Valid: true, Int64: now.Add(ttl).Unix()}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (namespace, key, value, expires_at, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			stored_at = excluded.stored_at`,
		namespace, key, value, expiresAt, now.Unix())
	if err != nil {
		return fmt.Errorf("store: set %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Delete removes a single namespace/key entry. It is not an error to
// delete an entry that does not exist.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

// DeletePattern removes every entry in namespace whose key matches the
// given SQL LIKE pattern (e.g. "getAlbum%" invalidates every cached album
// lookup). Pattern invalidation is namespace-scoped by design: it must
// never reach across unrelated cache namespaces.
func (s *Store) DeletePattern(ctx context.Context, namespace, likePattern string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE namespace = ? AND key LIKE ?`,
		namespace, likePattern)
	if err != nil {
		return 0, fmt.Errorf("store: delete pattern %s/%s: %w", namespace, likePattern, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PruneExpired deletes every entry whose expiry has passed and returns the
// number of rows removed.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM kv_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("store: prune expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
