package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syeo66/voidweaver-sub001/internal/apicache"
	"github.com/syeo66/voidweaver-sub001/internal/model"
	"github.com/syeo66/voidweaver-sub001/internal/subsonicapi"
)

func nowPlayingRecord(trackID string) model.ScrobbleRecord {
	return model.ScrobbleRecord{ID: "r1", Service: "subsonic", TrackID: trackID, Kind: model.NowPlaying, QueuedAt: time.Now()}
}

func submissionRecord(trackID string) model.ScrobbleRecord {
	playedAt := time.Now()
	return model.ScrobbleRecord{ID: "r2", Service: "subsonic", TrackID: trackID, Kind: model.Submission, PlayedAt: &playedAt, QueuedAt: time.Now()}
}

type fakeClient struct {
	albumCalls  int
	randomCalls int
	album       subsonicapi.Album
	random      subsonicapi.RandomSongs
}

func (f *fakeClient) GetAlbum(context.Context, string) (subsonicapi.Album, error) {
	f.albumCalls++
	return f.album, nil
}

func (f *fakeClient) GetRandomSongs(context.Context, int) (subsonicapi.RandomSongs, error) {
	f.randomCalls++
	return f.random, nil
}

func (f *fakeClient) StreamURL(id string) (string, error) {
	return "https://music.example.com/rest/stream?id=" + id, nil
}

func TestLoader_LoadAlbum_ConvertsSongsAndCachesByFingerprint(t *testing.T) {
	client := &fakeClient{album: subsonicapi.Album{
		ID: "a1",
		Songs: []subsonicapi.Song{
			{ID: "t1", Title: "One", Duration: 120},
			{ID: "t2", Title: "Two", Duration: 180},
		},
	}}
	cache := apicache.New()
	loader := New(client, cache)

	tracks, err := loader.LoadAlbum(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.Equal(t, "t1", tracks[0].TrackID)
	require.Equal(t, "One", tracks[0].Title)
	require.Equal(t, 120, tracks[0].DurationS)

	_, err = loader.LoadAlbum(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, 1, client.albumCalls, "second load must be served from ApiCache")
}

func TestLoader_LoadRandom_ConvertsSongs(t *testing.T) {
	client := &fakeClient{random: subsonicapi.RandomSongs{
		Songs: []subsonicapi.Song{{ID: "t1", Title: "Random"}},
	}}
	cache := apicache.New()
	loader := New(client, cache)

	tracks, err := loader.LoadRandom(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	require.Equal(t, "Random", tracks[0].Title)
}

func TestLoader_StreamURL_NeverCached(t *testing.T) {
	client := &fakeClient{}
	cache := apicache.New()
	loader := New(client, cache)

	url1, err := loader.StreamURL(context.Background(), "t1")
	require.NoError(t, err)
	require.Contains(t, url1, "id=t1")
}

type fakeScrobbleClient struct {
	calls []struct {
		id         string
		submission bool
		timeMs     string
	}
}

func (f *fakeScrobbleClient) Scrobble(_ context.Context, id string, submission bool, timeMs string) error {
	f.calls = append(f.calls, struct {
		id         string
		submission bool
		timeMs     string
	}{id, submission, timeMs})
	return nil
}

func TestSubmitter_Submit_NowPlayingOmitsTime(t *testing.T) {
	client := &fakeScrobbleClient{}
	sub := NewSubmitter(client)

	rec := nowPlayingRecord("t1")
	require.NoError(t, sub.Submit(context.Background(), rec))
	require.Len(t, client.calls, 1)
	require.False(t, client.calls[0].submission)
	require.Empty(t, client.calls[0].timeMs)
}

func TestSubmitter_Submit_SubmissionIncludesTime(t *testing.T) {
	client := &fakeScrobbleClient{}
	sub := NewSubmitter(client)

	rec := submissionRecord("t1")
	require.NoError(t, sub.Submit(context.Background(), rec))
	require.Len(t, client.calls, 1)
	require.True(t, client.calls[0].submission)
	require.NotEmpty(t, client.calls[0].timeMs)
}
