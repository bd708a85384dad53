// Package decoder defines the narrow capability interfaces the playback
// core depends on to prepare and drive platform audio decoding. It
// specifies no implementation: a full decoder is out of scope.
package decoder

import (
	"context"

	"github.com/syeo66/voidweaver-sub001/internal/model"
)

// Event is an asynchronous notification from a bound source.
type Event int

const (
	EventReady Event = iota
	EventFailed
	EventCompleted
	EventPlaying
	EventPaused
)

func (e Event) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventFailed:
		return "failed"
	case EventCompleted:
		return "completed"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Factory builds PreparedSources from stream URLs. It is the only
// capability the PreloadCache needs from the platform decoder.
type Factory interface {
	Prepare(ctx context.Context, streamURL string) (*model.PreparedSource, error)
}

// Engine is the single-writer capability the PlaybackController uses to
// drive the decoder bound at any given time.
type Engine interface {
	Bind(ctx context.Context, source *model.PreparedSource) error
	Release(ctx context.Context, source *model.PreparedSource) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, pos int) error
	SetVolume(multiplier float64)
	IsPlaying() bool
	Events() <-chan Event
}
