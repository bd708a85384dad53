package main

import (
	"context"
	"sync"
	"time"

	"github.com/syeo66/voidweaver-sub001/internal/decoder"
	"github.com/syeo66/voidweaver-sub001/internal/model"
)

// stubEngine is a no-op decoder.Engine/decoder.Factory pair standing in
// for the platform audio decoder, which is out of scope for this core
// (spec §1, §9): it "prepares" a source instantly and reports itself
// playing once Play is called, enough to exercise the full wiring of the
// controller, preload cache, and system session without a real codec.
type stubEngine struct {
	mu      sync.Mutex
	playing bool
	events  chan decoder.Event
}

func newStubEngine() *stubEngine {
	return &stubEngine{events: make(chan decoder.Event, 16)}
}

func (e *stubEngine) Prepare(ctx context.Context, streamURL string) (*model.PreparedSource, error) {
	return &model.PreparedSource{
		StreamURL:  streamURL,
		State:      model.SourceReady,
		PreparedAt: time.Now(),
	}, nil
}

func (e *stubEngine) Bind(ctx context.Context, source *model.PreparedSource) error {
	return nil
}

func (e *stubEngine) Release(ctx context.Context, source *model.PreparedSource) error {
	return nil
}

func (e *stubEngine) Play(ctx context.Context) error {
	e.mu.Lock()
	e.playing = true
	e.mu.Unlock()
	select {
	case e.events <- decoder.EventPlaying:
	default:
	}
	return nil
}

func (e *stubEngine) Pause(ctx context.Context) error {
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	select {
	case e.events <- decoder.EventPaused:
	default:
	}
	return nil
}

func (e *stubEngine) Seek(ctx context.Context, pos int) error { return nil }

func (e *stubEngine) SetVolume(multiplier float64) {}

func (e *stubEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playing
}

func (e *stubEngine) Events() <-chan decoder.Event { return e.events }

// stubFactory adapts stubEngine to decoder.Factory, so the same no-op
// preparation logic backs both the controller's bound source and the
// preload cache's look-ahead entries.
type stubFactory struct{ engine *stubEngine }

func (f stubFactory) Prepare(ctx context.Context, streamURL string) (*model.PreparedSource, error) {
	return f.engine.Prepare(ctx, streamURL)
}
