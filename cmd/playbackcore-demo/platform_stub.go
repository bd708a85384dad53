package main

import (
	"context"

	"github.com/syeo66/voidweaver-sub001/internal/log"
	"github.com/syeo66/voidweaver-sub001/internal/model"
)

// stubFocusPlatform is a no-op audiofocus.Platform: it always grants focus
// immediately. A real client backs this with the OS audio-focus API
// (AudioManager on Android, AVAudioSession on iOS), which is out of scope
// for this core.
type stubFocusPlatform struct{}

func (stubFocusPlatform) RequestFocus(ctx context.Context) error { return nil }
func (stubFocusPlatform) AbandonFocus(ctx context.Context)       {}

// logPublisher is a systemsession.Publisher that logs every mirrored
// state instead of driving a real lock-screen/notification surface.
type logPublisher struct{}

func (logPublisher) SetPlaying(playing bool) {
	log.WithComponent("systemsession").Debug().Bool("playing", playing).Msg("publish playing")
}

func (logPublisher) SetProcessingState(state model.ProcessingState) {
	log.WithComponent("systemsession").Debug().Str("state", state.String()).Msg("publish processing state")
}

func (logPublisher) SetMetadata(track model.Track) {
	log.WithComponent("systemsession").Info().
		Str("track_id", track.TrackID).Str("title", track.Title).Str("artist", track.Artist).
		Msg("publish metadata")
}
