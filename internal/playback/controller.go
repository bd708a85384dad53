// Package playback implements the track-level state machine that
// orchestrates the decoder, the PreloadCache, the ScrobbleQueue, the
// GainProvider, and the AudioFocusBridge: PlaybackController.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syeo66/voidweaver-sub001/internal/audiofocus"
	"github.com/syeo66/voidweaver-sub001/internal/clock"
	"github.com/syeo66/voidweaver-sub001/internal/config"
	"github.com/syeo66/voidweaver-sub001/internal/decoder"
	"github.com/syeo66/voidweaver-sub001/internal/gain"
	"github.com/syeo66/voidweaver-sub001/internal/log"
	"github.com/syeo66/voidweaver-sub001/internal/metrics"
	"github.com/syeo66/voidweaver-sub001/internal/model"
	"github.com/syeo66/voidweaver-sub001/internal/preload"
)

// ErrEmptyResult is returned by PlayRandom(0) and by any album/search load
// that resolves to zero tracks.
var ErrEmptyResult = errors.New("playback: empty result")

// AlbumLoader fetches an album's track list; PlayAlbum depends on this
// narrow capability rather than the full subsonicapi client so it can be
// faked in tests.
type AlbumLoader interface {
	LoadAlbum(ctx context.Context, albumID string) ([]model.Track, error)
}

// RandomLoader fetches n random tracks.
type RandomLoader interface {
	LoadRandom(ctx context.Context, n int) ([]model.Track, error)
}

// StreamResolver resolves the signed stream URL for a track, uncached.
type StreamResolver interface {
	StreamURL(ctx context.Context, trackID string) (string, error)
}

// Scrobbler is the narrow capability the controller uses to notify the
// outbox; satisfied by *scrobble.Queue.
type Scrobbler interface {
	Enqueue(ctx context.Context, service model.Service, trackID string, kind model.ScrobbleKind, playedAt *time.Time) (model.ScrobbleRecord, error)
}

// Controller is the PlaybackController. Construct with New.
type Controller struct {
	mu       sync.Mutex
	playlist *model.Playlist
	state    State

	skipInProgress bool
	pendingTarget  *int
	boundSource    *model.PreparedSource
	boundTrack     *model.Track
	trackStartedAt time.Time

	albums    AlbumLoader
	randoms   RandomLoader
	resolver  StreamResolver
	preload   *preload.Cache
	scrobbler Scrobbler
	gainer    gain.Provider
	focus     *audiofocus.Bridge
	engine    decoder.Engine
	factory   decoder.Factory
	clk       clock.Clock
	settings  config.Settings
	service   model.Service

	sleepTimer clock.Timer

	onStateChanged func(State)
	onSourceBound  func(model.Track)

	// notifyMu/notifyCond/notifyQ/notifyDone back a single-goroutine,
	// strictly-FIFO delivery queue for state-change notifications. A
	// skip iterates through several transitions in sequence (Loading,
	// then Playing) from one goroutine; delivering each via its own `go
	// handler(...)` gives no guarantee the runtime schedules them in that
	// order, which is exactly the guarantee SystemSessionAdapter's
	// skip-masking invariant depends on. Queuing and draining from one
	// dedicated goroutine makes delivery order match transition order.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	notifyQ    []State
	notifyDone bool
}

// Deps bundles Controller's collaborators, constructed once at app wiring
// time (cmd/playbackcore-demo's main.go shows the pattern).
type Deps struct {
	Albums   AlbumLoader
	Randoms  RandomLoader
	Resolver StreamResolver
	// Playlist, when set, is the shared playlist pointer the PreloadCache
	// was constructed against (preload.New needs the pointer before the
	// controller exists). When nil, the controller allocates its own.
	Playlist  *model.Playlist
	Preload   *preload.Cache
	Scrobbler Scrobbler
	Gainer    gain.Provider
	Focus     *audiofocus.Bridge
	Engine    decoder.Engine
	Factory   decoder.Factory
	Clock     clock.Clock
	Settings  config.Settings
	Service   model.Service
}

// New constructs a Controller in the Stopped state with an empty
// playlist.
func New(deps Deps) *Controller {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	playlist := deps.Playlist
	if playlist == nil {
		playlist = &model.Playlist{}
	}
	c := &Controller{
		state:     model.Stopped,
		playlist:  playlist,
		albums:    deps.Albums,
		randoms:   deps.Randoms,
		resolver:  deps.Resolver,
		preload:   deps.Preload,
		scrobbler: deps.Scrobbler,
		gainer:    deps.Gainer,
		focus:     deps.Focus,
		engine:    deps.Engine,
		factory:   deps.Factory,
		clk:       clk,
		settings:  deps.Settings,
		service:   deps.Service,
	}
	c.notifyCond = sync.NewCond(&c.notifyMu)
	go c.runNotifyLoop()
	return c
}

// Close stops the controller's background notification-delivery
// goroutine. Call it once the controller is no longer needed; the
// playlist/state/decoder-binding lifecycle itself has no separate
// teardown since it holds no other background resources.
func (c *Controller) Close() {
	c.notifyMu.Lock()
	c.notifyDone = true
	c.notifyCond.Signal()
	c.notifyMu.Unlock()
}

// runNotifyLoop drains notifyQ in strict FIFO order, delivering each
// queued state to the currently-registered onStateChanged handler one at
// a time on a single goroutine so two transitions queued in sequence are
// always observed in that same sequence.
func (c *Controller) runNotifyLoop() {
	for {
		c.notifyMu.Lock()
		for len(c.notifyQ) == 0 && !c.notifyDone {
			c.notifyCond.Wait()
		}
		if len(c.notifyQ) == 0 && c.notifyDone {
			c.notifyMu.Unlock()
			return
		}
		next := c.notifyQ[0]
		c.notifyQ = c.notifyQ[1:]
		c.notifyMu.Unlock()

		c.mu.Lock()
		handler := c.onStateChanged
		c.mu.Unlock()
		if handler != nil {
			handler(next)
		}
	}
}

// enqueueStateNotification appends next to the delivery queue; called
// with c.mu held by transition, so it must never itself touch c.mu.
func (c *Controller) enqueueStateNotification(next State) {
	c.notifyMu.Lock()
	c.notifyQ = append(c.notifyQ, next)
	c.notifyCond.Signal()
	c.notifyMu.Unlock()
}

// OnStateChanged registers a callback invoked after every successful
// state transition; SystemSessionAdapter uses this to mirror state.
func (c *Controller) OnStateChanged(fn func(State)) {
	c.mu.Lock()
	c.onStateChanged = fn
	c.mu.Unlock()
}

// OnSourceBound registers a callback invoked exactly once per successful
// bind, after the decoder has reported the new source ready. The
// SystemSessionAdapter uses this to update lock-screen/notification
// metadata without re-publishing it on every intermediate transition.
func (c *Controller) OnSourceBound(fn func(model.Track)) {
	c.mu.Lock()
	c.onSourceBound = fn
	c.mu.Unlock()
}

// IsSkipInProgress reports whether a skip (track change) is currently in
// flight. The SystemSessionAdapter consults this to mask the decoder's
// transient non-playing state during the gap between release and bind.
func (c *Controller) IsSkipInProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.skipInProgress
}

// Playlist returns the pointer to the controller-owned playlist. The
// PreloadCache must be constructed against this same pointer so its view
// of the playlist never goes stale across PlayAlbum/PlayRandom calls.
func (c *Controller) Playlist() *model.Playlist {
	return c.playlist
}

// State returns the controller's current PlaybackState.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentIndex returns the playlist cursor.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playlist.CurrentIndex
}

func (c *Controller) transition(event Event) error {
	from := c.state
	next, err := ApplyTransition(from, event)
	c.state = next
	if err == nil {
		c.enqueueStateNotification(next)
	}
	metrics.ObservePlaybackTransition(from.String(), next.String())
	return err
}

// PlayAlbum fetches the album (via the ApiCache-backed loader), replaces
// the playlist, and starts playback at index 0.
func (c *Controller) PlayAlbum(ctx context.Context, albumID string) error {
	tracks, err := c.albums.LoadAlbum(ctx, albumID)
	if err != nil {
		return fmt.Errorf("playback: load album %s: %w", albumID, err)
	}
	if len(tracks) == 0 {
		return ErrEmptyResult
	}
	return c.replacePlaylistAndPlay(ctx, tracks)
}

// PlayRandom fetches n random songs, replaces the playlist, and starts
// playback at index 0. n == 0 is rejected with ErrEmptyResult before any
// network call, per the boundary behaviour in spec.
func (c *Controller) PlayRandom(ctx context.Context, n int) error {
	if n == 0 {
		return ErrEmptyResult
	}
	tracks, err := c.randoms.LoadRandom(ctx, n)
	if err != nil {
		return fmt.Errorf("playback: load random songs: %w", err)
	}
	if len(tracks) == 0 {
		return ErrEmptyResult
	}
	return c.replacePlaylistAndPlay(ctx, tracks)
}

func (c *Controller) replacePlaylistAndPlay(ctx context.Context, tracks []model.Track) error {
	c.mu.Lock()
	*c.playlist = model.Playlist{Tracks: tracks, CurrentIndex: 0}
	c.mu.Unlock()
	return c.startSkip(ctx, 0)
}

// Play resumes from Paused or starts the current track from Stopped.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case model.Paused:
		c.mu.Lock()
		err := c.transition(EventPlay)
		c.mu.Unlock()
		if err != nil {
			return err
		}
		if c.focus != nil {
			c.focus.RequestFocusAfterPlay(ctx, func(err error) {
				log.WithComponentFromContext(ctx, "playback").Warn().Err(err).Msg("deferred focus request failed")
			})
		}
		return c.engine.Play(ctx)
	case model.Stopped:
		return c.startSkip(ctx, c.CurrentIndex())
	default:
		return nil
	}
}

// Pause transitions to Paused.
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	err := c.transition(EventPause)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.engine.Pause(ctx)
}

// Stop transitions to Stopped and releases the bound source.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	source := c.boundSource
	c.boundSource = nil
	c.boundTrack = nil
	err := c.transition(EventStop)
	c.mu.Unlock()
	if source != nil {
		_ = c.engine.Release(ctx, source)
	}
	return err
}

// Seek seeks within the current track.
func (c *Controller) Seek(ctx context.Context, pos int) error {
	return c.engine.Seek(ctx, pos)
}

// SetSleepTimer transitions to Paused after d elapses.
func (c *Controller) SetSleepTimer(ctx context.Context, d time.Duration) {
	c.mu.Lock()
	if c.sleepTimer != nil {
		c.sleepTimer.Stop()
	}
	c.sleepTimer = c.clk.NewTimer(d)
	timer := c.sleepTimer
	c.mu.Unlock()

	go func() {
		select {
		case <-timer.C():
			_ = c.Pause(ctx)
		case <-ctx.Done():
			timer.Stop()
		}
	}()
}

// Next moves current_index by +1; a no-op at the last index.
func (c *Controller) Next(ctx context.Context) error { return c.skipBy(ctx, 1) }

// Previous moves current_index by -1; a no-op at index 0.
func (c *Controller) Previous(ctx context.Context) error { return c.skipBy(ctx, -1) }

func (c *Controller) skipBy(ctx context.Context, delta int) error {
	c.mu.Lock()
	newIndex := c.playlist.CurrentIndex + delta
	if newIndex < 0 || newIndex >= c.playlist.Len() {
		c.mu.Unlock()
		return nil // boundary: no-op, state unchanged
	}
	c.playlist.CurrentIndex = newIndex

	if c.skipInProgress {
		c.pendingTarget = &newIndex
		c.mu.Unlock()
		metrics.IncPlaybackSkipCoalesced()
		return nil
	}
	c.skipInProgress = true
	c.mu.Unlock()

	metrics.IncPlaybackSkip()
	go c.runSkipLoop(ctx, newIndex)
	return nil
}

func (c *Controller) startSkip(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.skipInProgress {
		c.pendingTarget = &index
		c.mu.Unlock()
		return nil
	}
	c.skipInProgress = true
	c.mu.Unlock()
	c.runSkipLoop(ctx, index)
	return nil
}

// runSkipLoop drives performSkip to convergence, coalescing any targets
// that arrive while a skip is already in flight. One correlation ID
// covers every iteration so coalesced skips still read as one operation
// in the logs.
func (c *Controller) runSkipLoop(ctx context.Context, target int) {
	ctx = log.ContextWithCorrelationID(ctx, uuid.NewString())
	for {
		c.performSkip(ctx, target)

		c.mu.Lock()
		if c.pendingTarget != nil {
			target = *c.pendingTarget
			c.pendingTarget = nil
			c.mu.Unlock()
			metrics.IncPlaybackSkip()
			continue
		}
		c.skipInProgress = false
		c.mu.Unlock()
		return
	}
}

// performSkip runs one iteration of the skip protocol (spec §4.F): release
// the bound source, resolve the new one (preload, else network, else
// offline fallback), apply gain, bind, play, transition, and enqueue the
// scrobble bookkeeping.
func (c *Controller) performSkip(ctx context.Context, target int) {
	c.mu.Lock()
	_ = c.transition(EventSkip)
	prevSource := c.boundSource
	prevTrack := c.boundTrack
	prevStartedAt := c.trackStartedAt
	c.boundSource = nil
	c.boundTrack = nil
	playlistSnapshot := *c.playlist
	c.mu.Unlock()

	if prevSource != nil {
		_ = c.engine.Release(ctx, prevSource)
	}

	c.reportPreviousListenedThreshold(ctx, prevTrack, prevStartedAt)

	track, ok := playlistSnapshot.At(target)
	if !ok {
		return
	}

	source, usedFallback, err := c.resolveSource(ctx, target, track)
	if err != nil {
		c.mu.Lock()
		_ = c.transition(EventError)
		c.mu.Unlock()
		return
	}

	mode := c.settings.ReplayGain.Mode
	mult := c.gainer.GainMultiplier(track, mode,
		c.settings.ReplayGain.PreampDBOrZero(),
		c.settings.ReplayGain.PreventClipOrDefault(),
		c.settings.ReplayGain.FallbackGainDBOrZero())
	c.engine.SetVolume(mult)

	if err := c.engine.Bind(ctx, source); err != nil {
		c.mu.Lock()
		_ = c.transition(EventError)
		c.mu.Unlock()
		return
	}
	if err := c.engine.Play(ctx); err != nil {
		c.mu.Lock()
		_ = c.transition(EventError)
		c.mu.Unlock()
		return
	}
	if c.focus != nil {
		c.focus.RequestFocusAfterPlay(ctx, func(err error) {
			log.WithComponentFromContext(ctx, "playback").Warn().Err(err).Msg("deferred focus request failed")
		})
	}

	boundTrack := track
	c.mu.Lock()
	c.boundSource = source
	c.boundTrack = &boundTrack
	c.trackStartedAt = c.clk.Now()
	_ = c.transition(EventSourceReady)
	onBound := c.onSourceBound
	c.mu.Unlock()

	if onBound != nil {
		onBound(boundTrack)
	}

	if c.preload != nil {
		c.preload.OnCurrentIndexChanged(ctx, target)
	}

	if usedFallback {
		log.WithComponentFromContext(ctx, "playback").Warn().Int("index", target).Msg("playing from offline fallback")
	}

	if c.scrobbler != nil {
		_, _ = c.scrobbler.Enqueue(ctx, c.service, track.TrackID, model.NowPlaying, nil)
	}
}

// resolveSource implements the PreloadCache.take → network → peek_nearest
// fallback chain.
func (c *Controller) resolveSource(ctx context.Context, target int, track model.Track) (*model.PreparedSource, bool, error) {
	if c.preload != nil {
		if entry, ok := c.preload.Take(target); ok {
			return entry.Source, false, nil
		}
	}

	url, err := c.resolver.StreamURL(ctx, track.TrackID)
	if err == nil {
		source, perr := c.factory.Prepare(ctx, url)
		if perr == nil {
			return source, false, nil
		}
		err = perr
	}

	if c.preload != nil {
		if entry, ok := c.preload.PeekNearest(target); ok {
			return entry.Source, true, nil
		}
	}
	return nil, false, err
}

// submissionThreshold is the minimum listened duration before a track's
// Submission scrobble is enqueued: max(30s, 50% of duration).
func submissionThreshold(durationS int) time.Duration {
	half := time.Duration(durationS) * time.Second / 2
	if half < 30*time.Second {
		return 30 * time.Second
	}
	return half
}

// reportPreviousListenedThreshold enqueues a Submission scrobble for the
// track that was just released, if it was listened to for at least
// max(30s, 50% of its duration). prevTrack and startedAt are nil/zero when
// this is the first track of a session, in which case there is nothing to
// report.
func (c *Controller) reportPreviousListenedThreshold(ctx context.Context, prevTrack *model.Track, startedAt time.Time) {
	if prevTrack == nil || startedAt.IsZero() || c.scrobbler == nil {
		return
	}

	listened := c.clk.Now().Sub(startedAt)
	if listened < submissionThreshold(prevTrack.DurationS) {
		return
	}
	playedAt := c.clk.Now()
	_, _ = c.scrobbler.Enqueue(ctx, c.service, prevTrack.TrackID, model.Submission, &playedAt)
}

// HandleDecoderEvent feeds decoder notifications into the controller.
// EventCompleted triggers auto-advance when there is a next track,
// otherwise transitions to Stopped.
func (c *Controller) HandleDecoderEvent(ctx context.Context, event decoder.Event) {
	switch event {
	case decoder.EventCompleted:
		c.mu.Lock()
		hasNext := c.playlist.CurrentIndex+1 < c.playlist.Len()
		c.mu.Unlock()
		if hasNext {
			_ = c.Next(ctx)
			return
		}
		c.mu.Lock()
		_ = c.transition(EventCompleted)
		c.mu.Unlock()
	}
}
