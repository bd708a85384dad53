package preload

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syeo66/voidweaver-sub001/internal/model"
)

type fakeResolver struct {
	mu      sync.Mutex
	fail    map[string]bool
	resolve func(trackID string) (string, error)
}

func (f *fakeResolver) StreamURL(ctx context.Context, trackID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolve != nil {
		return f.resolve(trackID)
	}
	if f.fail[trackID] {
		return "", fmt.Errorf("offline")
	}
	return "https://example/stream/" + trackID, nil
}

type fakeFactory struct {
	fail map[string]bool
}

func (f *fakeFactory) Prepare(ctx context.Context, streamURL string) (*model.PreparedSource, error) {
	if f.fail[streamURL] {
		return nil, fmt.Errorf("prepare failed")
	}
	return &model.PreparedSource{StreamURL: streamURL, State: model.SourceReady, PreparedAt: time.Now()}, nil
}

func newPlaylist(n int) *model.Playlist {
	tracks := make([]model.Track, n)
	for i := range tracks {
		tracks[i] = model.Track{TrackID: fmt.Sprintf("t%d", i)}
	}
	return &model.Playlist{Tracks: tracks, CurrentIndex: 0}
}

func TestOnCurrentIndexChanged_PopulatesAheadAndOneBehind(t *testing.T) {
	pl := newPlaylist(10)
	c := New(pl, &fakeResolver{}, &fakeFactory{})

	c.OnCurrentIndexChanged(context.Background(), 5)

	idx := c.Indices()
	require.ElementsMatch(t, []int{4, 6, 7, 8}, idx, "index 5 itself is the bound track, not preloaded")
}

func TestOnCurrentIndexChanged_EvictsOutsideWindow(t *testing.T) {
	pl := newPlaylist(20)
	c := New(pl, &fakeResolver{}, &fakeFactory{})
	ctx := context.Background()

	c.OnCurrentIndexChanged(ctx, 5)
	require.NotEmpty(t, c.Indices())

	c.OnCurrentIndexChanged(ctx, 15)
	for _, idx := range c.Indices() {
		require.GreaterOrEqual(t, idx, 14)
		require.LessOrEqual(t, idx, 18)
	}
}

func TestTake_IsDestructive(t *testing.T) {
	pl := newPlaylist(10)
	c := New(pl, &fakeResolver{}, &fakeFactory{})
	c.OnCurrentIndexChanged(context.Background(), 5)

	entry, ok := c.Take(6)
	require.True(t, ok)
	require.Equal(t, 6, entry.PlaylistIndex)

	_, ok = c.Take(6)
	require.False(t, ok, "a second Take for the same index must return false")
}

func TestPreparation_IsolatesIndividualFailures(t *testing.T) {
	pl := newPlaylist(10)
	resolver := &fakeResolver{fail: map[string]bool{"t7": true}}
	c := New(pl, resolver, &fakeFactory{})

	c.OnCurrentIndexChanged(context.Background(), 5)

	_, ok := c.Take(7)
	require.False(t, ok, "failed resolution must not produce a ready entry")
	_, ok = c.Take(6)
	require.True(t, ok, "sibling preparation must succeed despite index 7 failing")
}

func TestPeekNearest_SearchesForwardThenBackward(t *testing.T) {
	pl := newPlaylist(10)
	c := New(pl, &fakeResolver{}, &fakeFactory{})
	c.OnCurrentIndexChanged(context.Background(), 5)

	entry, ok := c.PeekNearest(5)
	require.True(t, ok)
	require.Equal(t, 6, entry.PlaylistIndex, "forward search should find index 6 before falling back")
}

func TestPeekNearest_FallsBackWhenNoneReady(t *testing.T) {
	pl := newPlaylist(3)
	c := New(pl, &fakeResolver{}, &fakeFactory{})

	_, ok := c.PeekNearest(0)
	require.False(t, ok)
}
