package audiofocus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syeo66/voidweaver-sub001/internal/clock"
)

type fakePlatform struct {
	requests int32
}

func (f *fakePlatform) RequestFocus(ctx context.Context) error {
	atomic.AddInt32(&f.requests, 1)
	return nil
}

func (f *fakePlatform) AbandonFocus(ctx context.Context) {}

func TestRequestFocus_IdempotentWhenAlreadyHeld(t *testing.T) {
	p := &fakePlatform{}
	b := New(p)

	require.NoError(t, b.RequestFocus(context.Background()))
	require.NoError(t, b.RequestFocus(context.Background()))

	require.EqualValues(t, 1, atomic.LoadInt32(&p.requests))
}

func TestAbandonFocus_ClearsHasFocusThenNextRequestCallsPlatform(t *testing.T) {
	p := &fakePlatform{}
	b := New(p)
	ctx := context.Background()

	require.NoError(t, b.RequestFocus(ctx))
	b.AbandonFocus(ctx)
	require.False(t, b.HasFocus())

	require.NoError(t, b.RequestFocus(ctx))
	require.EqualValues(t, 2, atomic.LoadInt32(&p.requests))
}

func TestHandlePlatformEvent_IgnoresLossWithinGraceWindow(t *testing.T) {
	p := &fakePlatform{}
	fc := clock.NewFake(time.Now())
	var got []FocusEvent
	b := New(p, WithClock(fc), WithFocusChangedHandler(func(e FocusEvent) { got = append(got, e) }))
	ctx := context.Background()

	require.NoError(t, b.RequestFocus(ctx))
	fc.Advance(50 * time.Millisecond)
	b.HandlePlatformEvent(LostTransient)

	require.True(t, b.HasFocus(), "loss within the 300ms grace window must be ignored")
	require.Empty(t, got)
}

func TestHandlePlatformEvent_HonoursLossOutsideGraceWindow(t *testing.T) {
	p := &fakePlatform{}
	fc := clock.NewFake(time.Now())
	var got []FocusEvent
	b := New(p, WithClock(fc), WithFocusChangedHandler(func(e FocusEvent) { got = append(got, e) }))
	ctx := context.Background()

	require.NoError(t, b.RequestFocus(ctx))
	fc.Advance(400 * time.Millisecond)
	b.HandlePlatformEvent(Lost)

	require.False(t, b.HasFocus())
	require.Equal(t, []FocusEvent{Lost}, got)
}

func TestRequestFocusAfterPlay_DefersBy100ms(t *testing.T) {
	p := &fakePlatform{}
	fc := clock.NewFake(time.Now())
	b := New(p, WithClock(fc))
	ctx := context.Background()

	b.RequestFocusAfterPlay(ctx, nil)
	require.EqualValues(t, 0, atomic.LoadInt32(&p.requests), "request must not fire immediately")

	fc.Advance(100 * time.Millisecond)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&p.requests) == 1
	}, time.Second, time.Millisecond)
}
