// Package audiofocus bridges the platform's audio-focus arbitration,
// debouncing the request issued on play start and absorbing the spurious
// focus-loss events the OS fires synchronously during grant handshaking.
package audiofocus

import (
	"context"
	"sync"
	"time"

	"github.com/syeo66/voidweaver-sub001/internal/clock"
	"github.com/syeo66/voidweaver-sub001/internal/metrics"
)

// FocusEvent is an asynchronous focus-change notification from the
// platform.
type FocusEvent int

const (
	Gained FocusEvent = iota
	Lost
	LostTransient
	DuckRequest
)

func (e FocusEvent) String() string {
	switch e {
	case Gained:
		return "gained"
	case Lost:
		return "lost"
	case LostTransient:
		return "lost_transient"
	case DuckRequest:
		return "duck_request"
	default:
		return "unknown"
	}
}

const (
	requestDelay = 100 * time.Millisecond
	graceWindow  = 300 * time.Millisecond
)

// Platform is the narrow capability interface the bridge needs from the
// OS audio-focus API.
type Platform interface {
	RequestFocus(ctx context.Context) error
	AbandonFocus(ctx context.Context)
}

// Bridge implements the debounce and grace-window rules described for
// AudioFocusBridge. The zero value is not usable; construct with New.
type Bridge struct {
	platform Platform
	clock    clock.Clock

	mu             sync.Mutex
	hasFocus       bool
	lastRequestAt  time.Time
	onFocusChanged func(FocusEvent)
}

// Option configures optional Bridge behaviour.
type Option func(*Bridge)

// WithClock overrides the time source, for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(b *Bridge) { b.clock = c }
}

// WithFocusChangedHandler registers the callback invoked for focus events
// that survive the grace-window filter.
func WithFocusChangedHandler(fn func(FocusEvent)) Option {
	return func(b *Bridge) { b.onFocusChanged = fn }
}

// New constructs a Bridge backed by platform.
func New(platform Platform, opts ...Option) *Bridge {
	b := &Bridge{platform: platform, clock: clock.Real{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RequestFocus is idempotent: if focus is already held, it returns
// without issuing a platform call.
func (b *Bridge) RequestFocus(ctx context.Context) error {
	b.mu.Lock()
	if b.hasFocus {
		b.mu.Unlock()
		return nil
	}
	b.lastRequestAt = b.clock.Now()
	b.mu.Unlock()

	if err := b.platform.RequestFocus(ctx); err != nil {
		return err
	}

	b.mu.Lock()
	b.hasFocus = true
	b.mu.Unlock()
	return nil
}

// RequestFocusAfterPlay issues RequestFocus after the mandatory 100 ms
// delay following a decoder play command. It does not block the caller;
// any error from the deferred request is reported via handleErr.
func (b *Bridge) RequestFocusAfterPlay(ctx context.Context, handleErr func(error)) {
	timer := b.clock.NewTimer(requestDelay)
	go func() {
		select {
		case <-timer.C():
			if err := b.RequestFocus(ctx); err != nil && handleErr != nil {
				handleErr(err)
			}
		case <-ctx.Done():
			timer.Stop()
		}
	}()
}

// AbandonFocus releases held focus. After it returns, HasFocus is false.
func (b *Bridge) AbandonFocus(ctx context.Context) {
	b.mu.Lock()
	if !b.hasFocus {
		b.mu.Unlock()
		return
	}
	b.hasFocus = false
	b.mu.Unlock()

	b.platform.AbandonFocus(ctx)
}

// HasFocus reports whether the bridge currently believes it holds focus.
func (b *Bridge) HasFocus() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasFocus
}

// HandlePlatformEvent processes an asynchronous focus-change event from
// the platform. Lost/LostTransient events arriving within the grace
// window of a local RequestFocus are treated as grant-handshake
// artefacts and ignored.
func (b *Bridge) HandlePlatformEvent(event FocusEvent) {
	b.mu.Lock()
	sinceRequest := b.clock.Now().Sub(b.lastRequestAt)
	inGraceWindow := !b.lastRequestAt.IsZero() && sinceRequest < graceWindow
	if inGraceWindow && (event == Lost || event == LostTransient) {
		b.mu.Unlock()
		metrics.IncAudioFocusEventIgnored(event.String())
		return
	}

	switch event {
	case Lost, LostTransient:
		b.hasFocus = false
	case Gained:
		b.hasFocus = true
	}
	handler := b.onFocusChanged
	b.mu.Unlock()

	if handler != nil {
		handler(event)
	}
}
