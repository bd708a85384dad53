// Package store provides the sqlite-backed durable persistence used by the
// ApiCache persistent tier, the ScrobbleQueue outbox, and the legacy
// credential migration marker.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no cgo

	"github.com/syeo66/voidweaver-sub001/internal/log"
)

// Config defines standard SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int // 1 for single-writer safety on mobile; larger for WAL reads
}

// DefaultConfig returns the recommended configuration for a mobile client's
// local database: a small pool, generous busy_timeout.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// Store wraps a pooled *sql.DB with the schema this module relies on.
type Store struct {
	db *sql.DB
}

// Open initialises a SQLite connection pool with mandatory PRAGMAs and
// applies the store's schema. dbPath may be ":memory:" for tests, in which
// case MaxOpenConns is forced to 1 so the in-memory database is not lost
// between pooled connections.
func Open(ctx context.Context, dbPath string, cfg Config) (*Store, error) {
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 4
	}
	if dbPath == ":memory:" {
		cfg.MaxOpenConns = 1
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate failed: %w", err)
	}

	log.WithComponent("store").Debug().Str("path", dbPath).Msg("store opened")
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for packages that need raw query access
// (e.g. integrity verification tooling).
func (s *Store) DB() *sql.DB {
	return s.db
}
