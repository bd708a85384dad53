// Package preload implements the bounded look-ahead buffer of prepared
// audio sources and stream URLs: PreloadCache keeps current_index+1..+3
// ready and one entry behind for back-skip resilience, preparing missing
// slots in parallel with bounded concurrency.
package preload

import (
	"context"
	"sync"

	"github.com/syeo66/voidweaver-sub001/internal/decoder"
	"github.com/syeo66/voidweaver-sub001/internal/log"
	"github.com/syeo66/voidweaver-sub001/internal/metrics"
	"github.com/syeo66/voidweaver-sub001/internal/model"
)

const (
	behindSpan         = 1
	aheadSpan          = 3
	maxConcurrentPreps = 3
)

// URLResolver obtains the signed, short-lived stream URL for a track.
// Resolution is always uncached, per the server protocol.
type URLResolver interface {
	StreamURL(ctx context.Context, trackID string) (string, error)
}

// Cache is the PreloadCache. Construct with New; it has no background
// goroutine of its own — preparation happens inline inside
// OnCurrentIndexChanged, bounded by an internal semaphore, so the caller
// controls the lifetime of every spawned goroutine.
type Cache struct {
	mu       sync.Mutex
	entries  map[int]*model.PreloadEntry
	playlist *model.Playlist
	resolver URLResolver
	factory  decoder.Factory
	sem      chan struct{}
}

// New constructs an empty Cache bound to playlist, resolving URLs via
// resolver and preparing sources via factory. playlist must outlive the
// Cache; the controller owns replacing it.
func New(playlist *model.Playlist, resolver URLResolver, factory decoder.Factory) *Cache {
	return &Cache{
		entries:  make(map[int]*model.PreloadEntry),
		playlist: playlist,
		resolver: resolver,
		factory:  factory,
		sem:      make(chan struct{}, maxConcurrentPreps),
	}
}

// desiredRange returns the inclusive [lo, hi] window the cache must keep
// populated for currentIndex.
func desiredRange(currentIndex int) (lo, hi int) {
	return currentIndex - behindSpan, currentIndex + aheadSpan
}

// OnCurrentIndexChanged evicts entries outside the new window and
// schedules preparation for every missing slot inside it, each on its own
// goroutine bounded by the cache's internal semaphore. Individual
// preparation failures are isolated from one another.
func (c *Cache) OnCurrentIndexChanged(ctx context.Context, newIndex int) {
	lo, hi := desiredRange(newIndex)

	c.mu.Lock()
	for idx, entry := range c.entries {
		if idx < lo || idx > hi {
			releaseEntry(entry)
			delete(c.entries, idx)
		}
	}
	missing := make([]int, 0, hi-lo+1)
	for idx := lo; idx <= hi; idx++ {
		if idx < 0 || idx >= c.playlist.Len() {
			continue
		}
		if idx == newIndex {
			continue
		}
		if _, ok := c.entries[idx]; !ok {
			missing = append(missing, idx)
		}
	}
	c.mu.Unlock()

	metrics.SetPreloadEntriesReady(c.readyCount())

	var wg sync.WaitGroup
	for _, idx := range missing {
		idx := idx
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.prepare(ctx, idx)
		}()
	}
	wg.Wait()
}

func (c *Cache) prepare(ctx context.Context, idx int) {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	track, ok := c.playlist.At(idx)
	if !ok {
		return
	}

	streamURL, err := c.resolver.StreamURL(ctx, track.TrackID)
	if err != nil {
		metrics.ObservePreloadPreparation("failure")
		log.WithComponent("preload").Debug().Err(err).Int("index", idx).Msg("stream url resolution failed")
		return
	}

	source, err := c.factory.Prepare(ctx, streamURL)
	if err != nil {
		metrics.ObservePreloadPreparation("failure")
		log.WithComponent("preload").Debug().Err(err).Int("index", idx).Msg("source preparation failed")
		return
	}

	entry := &model.PreloadEntry{
		PlaylistIndex: idx,
		Track:         track,
		StreamURL:     streamURL,
		Source:        source,
		PreparedAt:    source.PreparedAt,
	}

	c.mu.Lock()
	c.entries[idx] = entry
	c.mu.Unlock()

	metrics.ObservePreloadPreparation("success")
	metrics.SetPreloadEntriesReady(c.readyCount())
}

// Take removes and returns the entry for index if it is ready, handing
// PreparedSource ownership to the caller. It is destructive: a second
// call for the same index returns false.
func (c *Cache) Take(index int) (*model.PreloadEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[index]
	if !ok || !entry.Ready() {
		return nil, false
	}
	delete(c.entries, index)
	metrics.SetPreloadEntriesReady(c.readyCountLocked())
	return entry, true
}

// PeekNearest searches forward then backward from index for any ready
// entry, for offline fallback when a fresh stream URL cannot be obtained.
// Unlike Take, this does not remove the entry: the caller may still want
// it available if the fallback itself fails.
func (c *Cache) PeekNearest(index int) (*model.PreloadEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lo, hi := desiredRange(index)
	for idx := index; idx <= hi; idx++ {
		if e, ok := c.entries[idx]; ok && e.Ready() {
			metrics.IncPreloadFallback()
			return e, true
		}
	}
	for idx := index - 1; idx >= lo; idx-- {
		if e, ok := c.entries[idx]; ok && e.Ready() {
			metrics.IncPreloadFallback()
			return e, true
		}
	}
	return nil, false
}

// Indices returns the playlist indices currently held, for invariant
// checks in tests (§8-property 3: indices ⊆ [current-1, current+3]).
func (c *Cache) Indices() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.entries))
	for idx := range c.entries {
		out = append(out, idx)
	}
	return out
}

func (c *Cache) readyCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyCountLocked()
}

func (c *Cache) readyCountLocked() int {
	n := 0
	for _, e := range c.entries {
		if e.Ready() {
			n++
		}
	}
	return n
}

func releaseEntry(entry *model.PreloadEntry) {
	if entry.Source != nil {
		entry.Source.State = model.SourceUnloaded
		entry.Source.Handle = nil
	}
}
