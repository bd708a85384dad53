package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ScrobbleRow is the durable representation of a queued scrobble record.
// The payload blob carries the caller-defined wire encoding (the scrobble
// package owns marshalling); the store only indexes the fields it needs
// to schedule and prune delivery.
type ScrobbleRow struct {
	ID            string
	Service       string
	Kind          string // "now_playing" or "submission"
	TrackID       string
	SubmittedAt   time.Time
	RetryCount    int
	NextAttemptAt time.Time
	CreatedAt     time.Time
	Payload       []byte
}

// InsertScrobble durably persists a new scrobble record.
func (s *Store) InsertScrobble(ctx context.Context, row ScrobbleRow) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrobble_records
			(id, service, kind, track_id, submitted_at, retry_count, next_attempt_at, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.Service, row.Kind, row.TrackID,
		row.SubmittedAt.Unix(), row.RetryCount, row.NextAttemptAt.Unix(),
		row.CreatedAt.Unix(), row.Payload)
	if err != nil {
		return fmt.Errorf("store: insert scrobble %s: %w", row.ID, err)
	}
	return nil
}

// DeleteScrobble removes a delivered or abandoned record.
func (s *Store) DeleteScrobble(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scrobble_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete scrobble %s: %w", id, err)
	}
	return nil
}

// UpdateScrobbleRetry bumps the retry count and schedules the next attempt.
func (s *Store) UpdateScrobbleRetry(ctx context.Context, id string, retryCount int, nextAttemptAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scrobble_records SET retry_count = ?, next_attempt_at = ? WHERE id = ?`,
		retryCount, nextAttemptAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("store: update scrobble retry %s: %w", id, err)
	}
	return nil
}

// ListDueScrobbles returns every record whose next_attempt_at has passed,
// ordered oldest-submitted-first so Submission ordering is preserved;
// records submitted within the same second keep their insertion order.
func (s *Store) ListDueScrobbles(ctx context.Context, asOf time.Time) ([]ScrobbleRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service, kind, track_id, submitted_at, retry_count, next_attempt_at, created_at, payload
		FROM scrobble_records
		WHERE next_attempt_at <= ?
		ORDER BY submitted_at ASC, rowid ASC`, asOf.Unix())
	if err != nil {
		return nil, fmt.Errorf("store: list due scrobbles: %w", err)
	}
	defer rows.Close()

	var out []ScrobbleRow
	for rows.Next() {
		var r ScrobbleRow
		var submittedAt, nextAttemptAt, createdAt int64
		if err := rows.Scan(&r.ID, &r.Service, &r.Kind, &r.TrackID,
			&submittedAt, &r.RetryCount, &nextAttemptAt, &createdAt, &r.Payload); err != nil {
			return nil, fmt.Errorf("store: scan scrobble row: %w", err)
		}
		r.SubmittedAt = time.Unix(submittedAt, 0).UTC()
		r.NextAttemptAt = time.Unix(nextAttemptAt, 0).UTC()
		r.CreatedAt = time.Unix(createdAt, 0).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountScrobbles returns the total number of queued records.
func (s *Store) CountScrobbles(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scrobble_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count scrobbles: %w", err)
	}
	return n, nil
}

// GetScrobble fetches a single record by ID. Returns ErrNotFound if absent.
func (s *Store) GetScrobble(ctx context.Context, id string) (ScrobbleRow, error) {
	var r ScrobbleRow
	var submittedAt, nextAttemptAt, createdAt int64
	row := s.db.QueryRowContext(ctx, `
		SELECT id, service, kind, track_id, submitted_at, retry_count, next_attempt_at, created_at, payload
		FROM scrobble_records WHERE id = ?`, id)
	err := row.Scan(&r.ID, &r.Service, &r.Kind, &r.TrackID,
		&submittedAt, &r.RetryCount, &nextAttemptAt, &createdAt, &r.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ScrobbleRow{}, ErrNotFound
	}
	if err != nil {
		return ScrobbleRow{}, fmt.Errorf("store: get scrobble %s: %w", id, err)
	}
	r.SubmittedAt = time.Unix(submittedAt, 0).UTC()
	r.NextAttemptAt = time.Unix(nextAttemptAt, 0).UTC()
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	return r, nil
}
