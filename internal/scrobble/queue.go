// Package scrobble implements the durable retry outbox for "now playing"
// pings and play-count submissions: enqueue is non-blocking and durable,
// a background driver drains the queue in FIFO order with at-most-one
// outstanding request, and failures retry with exponential backoff and
// jitter instead of ever blocking playback.
package scrobble

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syeo66/voidweaver-sub001/internal/clock"
	"github.com/syeo66/voidweaver-sub001/internal/log"
	"github.com/syeo66/voidweaver-sub001/internal/metrics"
	"github.com/syeo66/voidweaver-sub001/internal/model"
	"github.com/syeo66/voidweaver-sub001/internal/resilience"
	"github.com/syeo66/voidweaver-sub001/internal/store"
)

const (
	baseBackoff    = 2 * time.Second
	maxBackoff     = 5 * time.Minute
	sweepInterval  = 30 * time.Second
	interRecordGap = 100 * time.Millisecond
)

// Submitter delivers a single scrobble record to its destination service.
// Implementations must be idempotent enough to tolerate at-least-once
// delivery under retry.
type Submitter interface {
	Submit(ctx context.Context, record model.ScrobbleRecord) error
}

// Queue is the durable retry outbox. Construct with New and call Run in a
// goroutine to start the background driver; Close stops it.
type Queue struct {
	db        *store.Store
	submitter Submitter
	clock     clock.Clock
	breaker   *resilience.CircuitBreaker

	mu          sync.Mutex
	nowPlaying  map[string]string // track_id -> scrobble row id, obsoletion index
	closeOnce   sync.Once
	stop        chan struct{}
	wakeSweep   chan struct{}
}

// New constructs a Queue backed by db and delivering through submitter.
func New(db *store.Store, submitter Submitter, opts ...Option) *Queue {
	q := &Queue{
		db:         db,
		submitter:  submitter,
		clock:      clock.Real{},
		nowPlaying: make(map[string]string),
		stop:       make(chan struct{}),
		wakeSweep:  make(chan struct{}, 1),
	}
	q.breaker = resilience.NewCircuitBreaker("scrobble-submit", 3, 3, time.Minute, 30*time.Second)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Option configures optional Queue behaviour.
type Option func(*Queue)

// WithClock overrides the time source, for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

// Enqueue durably persists record and returns once it is present in the
// persistent store. If kind is NowPlaying, any older still-queued
// NowPlaying record, for any track, is obsoleted (removed) first,
// since a newer NowPlaying always supersedes an older one.
func (q *Queue) Enqueue(ctx context.Context, service model.Service, trackID string, kind model.ScrobbleKind, playedAt *time.Time) (model.ScrobbleRecord, error) {
	now := q.clock.Now()
	rec := model.ScrobbleRecord{
		ID:       uuid.NewString(),
		Service:  service,
		TrackID:  trackID,
		Kind:     kind,
		PlayedAt: playedAt,
		QueuedAt: now,
	}

	if kind == model.NowPlaying {
		q.mu.Lock()
		for staleTrack, staleID := range q.nowPlaying {
			_ = q.db.DeleteScrobble(ctx, staleID)
			delete(q.nowPlaying, staleTrack)
		}
		q.nowPlaying[trackID] = rec.ID
		q.mu.Unlock()
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return model.ScrobbleRecord{}, fmt.Errorf("scrobble: marshal record: %w", err)
	}

	if err := q.db.InsertScrobble(ctx, store.ScrobbleRow{
		ID:            rec.ID,
		Service:       string(rec.Service),
		Kind:          rec.Kind.String(),
		TrackID:       rec.TrackID,
		SubmittedAt:   now,
		NextAttemptAt: now,
		CreatedAt:     now,
		Payload:       payload,
	}); err != nil {
		return model.ScrobbleRecord{}, fmt.Errorf("scrobble: enqueue: %w", err)
	}

	q.reportDepth(ctx)
	q.nudgeSweep()
	return rec, nil
}

func (q *Queue) nudgeSweep() {
	select {
	case q.wakeSweep <- struct{}{}:
	default:
	}
}

func (q *Queue) reportDepth(ctx context.Context) {
	n, err := q.db.CountScrobbles(ctx)
	if err != nil {
		return
	}
	metrics.SetScrobbleQueueDepth(n)
}

// Run drives the queue until ctx is cancelled or Close is called: it
// drains due records in FIFO order with at-most-one outstanding request,
// and re-examines the queue every sweepInterval even with nothing
// nudging it.
func (q *Queue) Run(ctx context.Context) {
	ticker := q.clock.NewTimer(sweepInterval)
	defer ticker.Stop()

	for {
		q.drainDue(ctx)

		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		case <-q.wakeSweep:
		case <-ticker.C():
			ticker.Reset(sweepInterval)
		}
	}
}

// Close stops the background driver. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.stop) })
}

func (q *Queue) drainDue(ctx context.Context) {
	now := q.clock.Now()
	if err := q.pruneStale(ctx, now); err != nil {
		log.WithComponent("scrobble").Warn().Err(err).Msg("prune failed")
	}

	due, err := q.db.ListDueScrobbles(ctx, now)
	if err != nil {
		log.WithComponent("scrobble").Warn().Err(err).Msg("list due scrobbles failed")
		return
	}

	for i, row := range due {
		select {
		case <-ctx.Done():
			return
		case <-q.stop:
			return
		default:
		}

		if !q.breaker.AllowRequest() {
			// The submit path is unhealthy; stop this sweep early and let
			// the next sweep or a fresh enqueue retry once it recovers.
			return
		}

		q.attempt(ctx, row)
		if i < len(due)-1 {
			q.clock.Sleep(interRecordGap)
		}
	}
}

func (q *Queue) pruneStale(ctx context.Context, now time.Time) error {
	due, err := q.db.ListDueScrobbles(ctx, now.Add(10*365*24*time.Hour)) // effectively "all"
	if err != nil {
		return err
	}
	for _, row := range due {
		rec := model.ScrobbleRecord{QueuedAt: row.SubmittedAt, RetryCount: uint32(row.RetryCount)}
		if rec.ShouldPrune(now) {
			if err := q.db.DeleteScrobble(ctx, row.ID); err != nil {
				continue
			}
			reason := "retry_exhausted"
			if now.Sub(row.SubmittedAt) >= model.MaxAge {
				reason = "expired"
			}
			metrics.IncScrobblePruned(reason)
		}
	}
	q.reportDepth(ctx)
	return nil
}

func (q *Queue) attempt(ctx context.Context, row store.ScrobbleRow) {
	var rec model.ScrobbleRecord
	if err := json.Unmarshal(row.Payload, &rec); err != nil {
		// Malformed record: discard only this one, per the load-failure
		// policy (a parse error never blocks the rest of the queue).
		_ = q.db.DeleteScrobble(ctx, row.ID)
		return
	}

	q.breaker.RecordAttempt()
	err := q.submitter.Submit(ctx, rec)
	if err == nil {
		q.breaker.RecordSuccess()
		metrics.ObserveScrobbleAttempt(rec.Kind.String(), "success")
		_ = q.db.DeleteScrobble(ctx, row.ID)
		q.forgetNowPlaying(rec)
		q.reportDepth(ctx)
		return
	}

	q.breaker.RecordTechnicalFailure()
	metrics.ObserveScrobbleAttempt(rec.Kind.String(), "failure")

	retryCount := row.RetryCount + 1
	backoff := nextBackoff(retryCount)
	next := q.clock.Now().Add(backoff)
	if updErr := q.db.UpdateScrobbleRetry(ctx, row.ID, retryCount, next); updErr != nil {
		log.WithComponent("scrobble").Warn().Err(updErr).Str("id", row.ID).Msg("failed to schedule retry")
	}
}

func (q *Queue) forgetNowPlaying(rec model.ScrobbleRecord) {
	if rec.Kind != model.NowPlaying {
		return
	}
	q.mu.Lock()
	if q.nowPlaying[rec.TrackID] == rec.ID {
		delete(q.nowPlaying, rec.TrackID)
	}
	q.mu.Unlock()
}

// nextBackoff computes base * 2^retryCount capped at maxBackoff, plus
// jitter uniformly distributed in [0, base).
func nextBackoff(retryCount int) time.Duration {
	backoff := baseBackoff
	for i := 0; i < retryCount && backoff < maxBackoff; i++ {
		backoff *= 2
	}
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(baseBackoff)))
	return backoff + jitter
}
