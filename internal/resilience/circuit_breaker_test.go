package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syeo66/voidweaver-sub001/internal/clock"
)

var errCanaryFailure = errors.New("canary failure")

func TestCircuitBreaker_TripsAfterThresholdThenHalfOpens(t *testing.T) {
	fc := clock.NewFake(time.Now())
	cb := NewCircuitBreaker("scrobble-submit", 2, 2, time.Minute, 30*time.Second, WithClock(fc))

	require.Equal(t, StateClosed, cb.GetState())

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	require.Equal(t, StateClosed, cb.GetState(), "one failure under threshold must not trip")

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	require.Equal(t, StateOpen, cb.GetState())
	require.False(t, cb.AllowRequest(), "open breaker must refuse requests before resetTimeout")

	fc.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest(), "resetTimeout elapsed must allow a half-open probe")
	require.Equal(t, StateHalfOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	fc := clock.NewFake(time.Now())
	cb := NewCircuitBreaker("subsonicapi-transport", 1, 1, time.Minute, 30*time.Second, WithClock(fc))

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	require.Equal(t, StateOpen, cb.GetState())

	fc.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest())
	require.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordTechnicalFailure()
	require.Equal(t, StateOpen, cb.GetState(), "a single half-open failure must reopen immediately")
}

func TestCircuitBreaker_HalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	fc := clock.NewFake(time.Now())
	cb := NewCircuitBreaker("subsonicapi-transport", 1, 1, time.Minute, 30*time.Second,
		WithClock(fc), WithHalfOpenSuccessThreshold(2))

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	fc.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest())

	cb.RecordSuccess()
	require.Equal(t, StateHalfOpen, cb.GetState(), "below the success threshold must stay half-open")
	cb.RecordSuccess()
	require.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_SlidingWindowPrunesOldEvents(t *testing.T) {
	fc := clock.NewFake(time.Now())
	cb := NewCircuitBreaker("scrobble-submit", 2, 2, time.Minute, 30*time.Second, WithClock(fc))

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	require.Equal(t, StateClosed, cb.GetState())

	fc.Advance(2 * time.Minute) // the one failure above ages out of the window

	cb.RecordAttempt()
	cb.RecordTechnicalFailure()
	require.Equal(t, StateClosed, cb.GetState(), "an expired failure must not count toward the threshold")
}

func TestCircuitBreaker_ExecuteRecordsAttemptAndOutcome(t *testing.T) {
	cb := NewCircuitBreaker("subsonicapi-transport", 1, 1, time.Minute, 30*time.Second)

	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Equal(t, StateClosed, cb.GetState())

	err := cb.Execute(func() error { return errCanaryFailure })
	require.ErrorIs(t, err, errCanaryFailure)
	require.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_PanicRecoveryCountsAsTechnicalFailure(t *testing.T) {
	cb := NewCircuitBreaker("subsonicapi-transport", 1, 1, time.Minute, 30*time.Second, WithPanicRecovery(true))

	require.Panics(t, func() {
		_ = cb.Execute(func() error { panic("boom") })
	})
	require.Equal(t, StateOpen, cb.GetState())
}
