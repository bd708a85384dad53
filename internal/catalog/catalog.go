// Package catalog adapts the Subsonic REST client and ApiCache into the
// narrow loader interfaces PlaybackController and PreloadCache depend on:
// it is the glue that routes album/random-song lookups through the
// fingerprinted, single-flight-deduplicated cache while leaving stream URL
// resolution always uncached, per the server protocol's signed-URL policy.
package catalog

import (
	"context"
	"fmt"

	"github.com/syeo66/voidweaver-sub001/internal/apicache"
	"github.com/syeo66/voidweaver-sub001/internal/model"
	"github.com/syeo66/voidweaver-sub001/internal/subsonicapi"
)

// Client is the narrow slice of subsonicapi.Client the catalog depends on.
type Client interface {
	GetAlbum(ctx context.Context, id string) (subsonicapi.Album, error)
	GetRandomSongs(ctx context.Context, size int) (subsonicapi.RandomSongs, error)
	StreamURL(id string) (string, error)
}

// Loader implements playback.AlbumLoader, playback.RandomLoader,
// playback.StreamResolver, and preload.URLResolver against a cached
// Subsonic client.
type Loader struct {
	client Client
	cache  *apicache.Cache
}

// New constructs a Loader backed by client and cache.
func New(client Client, cache *apicache.Cache) *Loader {
	return &Loader{client: client, cache: cache}
}

// LoadAlbum fetches album detail (cached per subsonicapi's getAlbum TTL
// policy) and converts its nested songs to Tracks.
func (l *Loader) LoadAlbum(ctx context.Context, albumID string) ([]model.Track, error) {
	policy, _ := subsonicapi.PolicyFor(subsonicapi.EndpointAlbum)
	key := subsonicapi.CanonicalKey(subsonicapi.EndpointAlbum, map[string]string{"id": albumID})

	album, err := apicache.GetOrFetch(ctx, l.cache, subsonicapi.EndpointAlbum, key, policy.TTL, policy.Persistent,
		func(ctx context.Context) (subsonicapi.Album, error) {
			return l.client.GetAlbum(ctx, albumID)
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: load album %s: %w", albumID, err)
	}

	tracks := make([]model.Track, 0, len(album.Songs))
	for _, s := range album.Songs {
		tracks = append(tracks, songToTrack(s))
	}
	return tracks, nil
}

// LoadRandom fetches n random songs (cached per getRandomSongs' short,
// memory-only TTL) and converts them to Tracks.
func (l *Loader) LoadRandom(ctx context.Context, n int) ([]model.Track, error) {
	policy, _ := subsonicapi.PolicyFor(subsonicapi.EndpointRandomSongs)
	key := subsonicapi.CanonicalKey(subsonicapi.EndpointRandomSongs, map[string]string{"size": fmt.Sprint(n)})

	result, err := apicache.GetOrFetch(ctx, l.cache, subsonicapi.EndpointRandomSongs, key, policy.TTL, policy.Persistent,
		func(ctx context.Context) (subsonicapi.RandomSongs, error) {
			return l.client.GetRandomSongs(ctx, n)
		})
	if err != nil {
		return nil, fmt.Errorf("catalog: load random songs: %w", err)
	}

	tracks := make([]model.Track, 0, len(result.Songs))
	for _, s := range result.Songs {
		tracks = append(tracks, songToTrack(s))
	}
	return tracks, nil
}

// StreamURL resolves the signed, short-lived direct stream URL for a
// track. It is never routed through ApiCache: a fresh signature is
// required on every call.
func (l *Loader) StreamURL(ctx context.Context, trackID string) (string, error) {
	return l.client.StreamURL(trackID)
}

func songToTrack(s subsonicapi.Song) model.Track {
	return model.Track{
		TrackID:     s.ID,
		Title:       s.Title,
		Artist:      s.Artist,
		Album:       s.Album,
		AlbumID:     s.AlbumID,
		CoverArtID:  s.CoverArt,
		DurationS:   s.Duration,
		TrackNumber: s.Track,
		Mime:        s.ContentType,
		TrackGainDB: s.TrackGainDB(),
		AlbumGainDB: s.AlbumGainDB(),
		TrackPeak:   s.TrackPeakValue(),
		AlbumPeak:   s.AlbumPeakValue(),
	}
}
