// Package resilience provides the sliding-window circuit breaker shared by
// every outbound call this core makes: the Subsonic REST transport and the
// scrobble submission driver each construct their own named instance rather
// than sharing state, since a REST outage and a scrobble-endpoint outage are
// independent failure domains.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/syeo66/voidweaver-sub001/internal/clock"
	"github.com/syeo66/voidweaver-sub001/internal/metrics"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned by a caller whose breaker is tripped; the
// Subsonic transport and the scrobble driver both surface it unwrapped
// (transport) or log-and-retry-later (scrobble) at their own call sites.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type eventKind int

const (
	eventAttempt eventKind = iota
	eventSuccess
	eventTechFailure
)

type event struct {
	ts   time.Time
	kind eventKind
}

// CircuitBreaker tracks attempts/failures for one outbound dependency over a
// sliding time window and trips open once failures dominate, shielding the
// dependency from a caller that would otherwise keep hammering a dead
// endpoint (a slow Subsonic server, or a scrobble endpoint returning 5xx).
type CircuitBreaker struct {
	mu sync.Mutex

	name string

	state    State
	openedAt time.Time

	// events is a sliding window of attempts/successes/failures, pruned to
	// window on every record so it never grows past what a realistic burst
	// of calls in `window` would produce.
	events []event
	window time.Duration

	threshold        int           // failures in window required to trip
	minAttempts      int           // attempts in window required before tripping is considered
	successes        int           // consecutive successes observed in half-open
	successThreshold int           // half-open successes required to close
	resetTimeout     time.Duration // cooldown before a half-open probe is allowed

	clk           clock.Clock
	panicRecovery bool
}

// Option configures optional CircuitBreaker behaviour.
type Option func(*CircuitBreaker)

// WithClock injects a Clock; tests use a fake to drive the sliding window
// and reset-timeout deterministically.
func WithClock(c clock.Clock) Option {
	return func(cb *CircuitBreaker) { cb.clk = c }
}

// WithHalfOpenSuccessThreshold overrides the default of 3 consecutive
// half-open successes required before the breaker closes.
func WithHalfOpenSuccessThreshold(n int) Option {
	return func(cb *CircuitBreaker) { cb.successThreshold = n }
}

// WithPanicRecovery makes Execute recover a panicking fn, record it as a
// technical failure, and re-panic rather than let it escape uncounted.
func WithPanicRecovery(enabled bool) Option {
	return func(cb *CircuitBreaker) { cb.panicRecovery = enabled }
}

// NewCircuitBreaker constructs a breaker identified by name (used only for
// metrics labels and log context, e.g. "subsonicapi-transport" or
// "scrobble-submit"). threshold/minAttempts/window govern when it trips
// from Closed to Open; resetTimeout governs the Open-to-HalfOpen cooldown.
func NewCircuitBreaker(name string, threshold int, minAttempts int, window time.Duration, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if minAttempts <= 0 {
		minAttempts = 5
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}

	cb := &CircuitBreaker{
		name:             name,
		state:            StateClosed,
		threshold:        threshold,
		minAttempts:      minAttempts,
		window:           window,
		resetTimeout:     resetTimeout,
		successThreshold: 3,
		clk:              clock.Real{},
	}

	for _, opt := range opts {
		opt(cb)
	}

	metrics.SetCircuitBreakerState(cb.name, cb.state.String())
	metrics.SetCircuitBreakerStatus(cb.name, int(cb.state))
	return cb
}

// Execute runs fn if the breaker allows it, recording the outcome. Both
// call sites in this module (httptransport.Get, scrobble.Queue's attempt
// loop) currently drive the breaker through the narrower
// AllowRequest/RecordAttempt/RecordSuccess/RecordTechnicalFailure calls
// directly so they can distinguish protocol errors (never recorded as a
// technical failure) from transport errors; Execute remains for callers
// that don't need that distinction.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.AllowRequest() {
		return ErrCircuitOpen
	}

	if cb.panicRecovery {
		defer func() {
			if r := recover(); r != nil {
				cb.RecordTechnicalFailure()
				panic(r)
			}
		}()
	}

	cb.RecordAttempt()
	if err := fn(); err != nil {
		cb.RecordTechnicalFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// AllowRequest reports whether a call may proceed, transitioning Open to
// HalfOpen once resetTimeout has elapsed.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.prune()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.clk.Now().Sub(cb.openedAt) >= cb.resetTimeout {
			cb.transitionInto(StateHalfOpen)
			return true
		}
		return false
	default: // StateHalfOpen: exactly one probe is let through at a time by the caller
		return true
	}
}

// RecordAttempt marks that a call was dispatched (a REST request left for
// the wire, or a scrobble submission was POSTed).
func (cb *CircuitBreaker) RecordAttempt() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.events = append(cb.events, event{ts: cb.clk.Now(), kind: eventAttempt})
	cb.prune()
	cb.evaluate()
}

// RecordSuccess marks a dispatched call that completed without a technical
// failure (a 2xx response, or a scrobble ack).
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.events = append(cb.events, event{ts: cb.clk.Now(), kind: eventSuccess})
	cb.prune()

	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.transitionInto(StateClosed)
		}
	}
}

// RecordTechnicalFailure marks a transport-class failure: a timeout,
// connection refused, TLS error, or (per spec §7's error taxonomy) any
// failure that is not itself a non-retryable protocol error. Callers must
// not report protocol errors (e.g. a 4xx response) here, or a breaker
// would trip on requests the retry policy was never going to retry anyway.
func (cb *CircuitBreaker) RecordTechnicalFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.events = append(cb.events, event{ts: cb.clk.Now(), kind: eventTechFailure})
	cb.prune()

	if cb.state == StateHalfOpen {
		cb.transitionInto(StateOpen)
		return
	}

	cb.evaluate()
}

// prune drops events older than window, copying the survivors into a fresh
// backing array so a long-lived breaker's event slice never retains memory
// proportional to its lifetime traffic rather than its window.
func (cb *CircuitBreaker) prune() {
	cutoff := cb.clk.Now().Add(-cb.window)
	start := len(cb.events)
	for i := range cb.events {
		if !cb.events[i].ts.Before(cutoff) {
			start = i
			break
		}
	}
	if start == 0 {
		return
	}
	if start == len(cb.events) {
		cb.events = nil
		return
	}
	kept := make([]event, len(cb.events)-start)
	copy(kept, cb.events[start:])
	cb.events = kept
}

func (cb *CircuitBreaker) evaluate() {
	if cb.state != StateClosed {
		return
	}

	var attempts, failures int
	for _, e := range cb.events {
		switch e.kind {
		case eventAttempt:
			attempts++
		case eventTechFailure:
			failures++
		}
	}

	if attempts >= cb.minAttempts && failures >= cb.threshold {
		cb.transitionInto(StateOpen)
	}
}

func (cb *CircuitBreaker) transitionInto(s State) {
	if cb.state == s {
		return
	}

	cb.state = s
	switch s {
	case StateOpen:
		cb.openedAt = cb.clk.Now()
		metrics.RecordCircuitBreakerTrip(cb.name, "tech_failure_threshold")
	case StateHalfOpen:
		cb.successes = 0
	case StateClosed:
		cb.events = nil
	}

	metrics.SetCircuitBreakerState(cb.name, s.String())
	metrics.SetCircuitBreakerStatus(cb.name, int(s))
}

// GetState returns the current state, for metrics and tests.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
