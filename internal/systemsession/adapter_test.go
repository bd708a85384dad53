package systemsession

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syeo66/voidweaver-sub001/internal/model"
)

type fakePublisher struct {
	playingCalls   []bool
	processing     []model.ProcessingState
	metadataCalls  []model.Track
}

func (p *fakePublisher) SetPlaying(playing bool) {
	p.playingCalls = append(p.playingCalls, playing)
}
func (p *fakePublisher) SetProcessingState(state model.ProcessingState) {
	p.processing = append(p.processing, state)
}
func (p *fakePublisher) SetMetadata(track model.Track) {
	p.metadataCalls = append(p.metadataCalls, track)
}

func (p *fakePublisher) lastPlaying() bool {
	if len(p.playingCalls) == 0 {
		return false
	}
	return p.playingCalls[len(p.playingCalls)-1]
}

func (p *fakePublisher) lastProcessing() model.ProcessingState {
	return p.processing[len(p.processing)-1]
}

type fakeControllerView struct {
	skipping       bool
	onState        func(model.PlaybackState)
	onSourceBound  func(model.Track)
}

func (f *fakeControllerView) IsSkipInProgress() bool { return f.skipping }
func (f *fakeControllerView) OnStateChanged(fn func(model.PlaybackState)) {
	f.onState = fn
}
func (f *fakeControllerView) OnSourceBound(fn func(model.Track)) {
	f.onSourceBound = fn
}

func TestAdapter_PublishesPlayingAndReadyWhenNotSkipping(t *testing.T) {
	pub := &fakePublisher{}
	ctrl := &fakeControllerView{}
	a := New(pub)
	a.Attach(ctrl)

	ctrl.onState(model.Playing)
	require.True(t, pub.lastPlaying())
	require.Equal(t, model.ProcessingReady, pub.lastProcessing())
}

// TestAdapter_MasksTransientPauseDuringSkip verifies the S2 scenario: once
// a track has been playing, a skip that transiently reports Loading must
// not surface as "not playing" at the system session, and must not
// surface the decoder's transient processing state either.
func TestAdapter_MasksTransientPauseDuringSkip(t *testing.T) {
	pub := &fakePublisher{}
	ctrl := &fakeControllerView{}
	a := New(pub)
	a.Attach(ctrl)

	ctrl.onState(model.Playing)
	require.True(t, pub.lastPlaying())

	ctrl.skipping = true
	ctrl.onState(model.Loading)

	require.True(t, pub.lastPlaying(), "masked: last known playing must still publish true")
	require.Equal(t, model.ProcessingReady, pub.lastProcessing(), "processing state must be normalised to ready during a skip")
}

func TestAdapter_UnmaskedAfterSkipCompletes(t *testing.T) {
	pub := &fakePublisher{}
	ctrl := &fakeControllerView{}
	a := New(pub)
	a.Attach(ctrl)

	ctrl.onState(model.Playing)
	ctrl.skipping = true
	ctrl.onState(model.Loading)

	ctrl.skipping = false
	ctrl.onState(model.Stopped)
	require.False(t, pub.lastPlaying())
	require.Equal(t, model.ProcessingReady, pub.lastProcessing())
}

func TestAdapter_MetadataPublishedOnceOnSourceBound(t *testing.T) {
	pub := &fakePublisher{}
	ctrl := &fakeControllerView{}
	a := New(pub)
	a.Attach(ctrl)

	track := model.Track{TrackID: "t1", Title: "Song"}
	ctrl.onSourceBound(track)

	require.Len(t, pub.metadataCalls, 1)
	require.Equal(t, track, pub.metadataCalls[0])
}

func TestAdapter_PausedWhileNotSkippingIsNotMasked(t *testing.T) {
	pub := &fakePublisher{}
	ctrl := &fakeControllerView{}
	a := New(pub)
	a.Attach(ctrl)

	ctrl.onState(model.Playing)
	ctrl.onState(model.Paused)
	require.False(t, pub.lastPlaying())
}
