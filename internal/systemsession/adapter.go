// Package systemsession mirrors the playback controller's state to the
// OS media session (lock screen, notification, Bluetooth/headphone
// transport controls). Its central job is skip-state masking: a track
// change transiently leaves the decoder "not playing" while the next
// source binds, and publishing that truthfully would make external
// controllers latch onto a paused UI and misroute the next remote
// command.
package systemsession

import (
	"sync"

	"github.com/syeo66/voidweaver-sub001/internal/model"
)

// ControllerView is the narrow slice of PlaybackController the adapter
// depends on.
type ControllerView interface {
	IsSkipInProgress() bool
	OnStateChanged(fn func(model.PlaybackState))
	OnSourceBound(fn func(model.Track))
}

// Publisher is the platform sink the adapter drives: lock-screen
// controls, notification, Bluetooth AVRCP, etc. Implementations are
// expected to be cheap and non-blocking; the adapter never retries a
// publish.
type Publisher interface {
	SetPlaying(playing bool)
	SetProcessingState(state model.ProcessingState)
	SetMetadata(track model.Track)
}

// Adapter subscribes to a ControllerView and drives a Publisher,
// applying the masking and processing-state-normalisation rules.
// Construct with New and call Attach once the controller exists.
type Adapter struct {
	mu               sync.Mutex
	publisher        Publisher
	lastKnownPlaying bool
}

// New constructs an Adapter publishing to pub. lastKnownPlaying starts
// false, matching a session that has never played anything.
func New(pub Publisher) *Adapter {
	return &Adapter{publisher: pub}
}

// Attach wires the adapter to a controller's state-change and
// source-bound hooks. It must be called exactly once per controller
// lifetime.
func (a *Adapter) Attach(c ControllerView) {
	c.OnStateChanged(func(state model.PlaybackState) {
		a.onStateChanged(c, state)
	})
	c.OnSourceBound(func(track model.Track) {
		a.onSourceBound(track)
	})
}

// onStateChanged re-evaluates the masking rule whenever the controller's
// PlaybackState changes. actualPlaying is derived from the new state
// rather than polling the decoder directly: Playing is the only state in
// which the controller itself considers the decoder to be producing
// audio.
func (a *Adapter) onStateChanged(c ControllerView, state model.PlaybackState) {
	actualPlaying := state == model.Playing
	skipping := c.IsSkipInProgress()

	a.mu.Lock()
	defer a.mu.Unlock()

	effective := actualPlaying
	if skipping && !actualPlaying {
		effective = a.lastKnownPlaying
	} else if !skipping {
		a.lastKnownPlaying = actualPlaying
	}

	a.publisher.SetPlaying(effective)

	if skipping {
		a.publisher.SetProcessingState(model.ProcessingReady)
		return
	}
	a.publisher.SetProcessingState(processingStateFor(state))
}

// processingStateFor maps the documented PlaybackState values outside a
// skip to the processing state a remote controller should see; Loading
// is the only state that is not immediately "ready".
func processingStateFor(state model.PlaybackState) model.ProcessingState {
	if state == model.Loading {
		return model.ProcessingLoading
	}
	return model.ProcessingReady
}

// onSourceBound publishes metadata exactly once per successful bind.
func (a *Adapter) onSourceBound(track model.Track) {
	a.publisher.SetMetadata(track)
}
