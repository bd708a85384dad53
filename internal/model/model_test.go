package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

// TestTrackJSONRoundTrip is the round-trip law from spec: for any Track,
// unmarshal(marshal(t)) == t. go-cmp gives a readable structural diff on
// failure instead of a bare boolean, which matters most for the pointer
// ReplayGain fields.
func TestTrackJSONRoundTrip(t *testing.T) {
	tracks := []Track{
		{TrackID: "t1", Title: "Song", Artist: "Artist", Album: "Album",
			AlbumID: "a1", CoverArtID: "c1", DurationS: 210, TrackNumber: 3, Mime: "audio/flac"},
		{TrackID: "t2", Title: "Gained", TrackGainDB: f64(-3.5), AlbumGainDB: f64(-2.1),
			TrackPeak: f64(0.98), AlbumPeak: f64(0.99)},
	}

	for _, tr := range tracks {
		raw, err := json.Marshal(tr)
		require.NoError(t, err)

		var out Track
		require.NoError(t, json.Unmarshal(raw, &out))

		if diff := cmp.Diff(tr, out); diff != "" {
			t.Errorf("Track round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestPlaylistJSONRoundTrip(t *testing.T) {
	p := Playlist{
		Tracks: []Track{
			{TrackID: "t1", Title: "One"},
			{TrackID: "t2", Title: "Two"},
		},
		CurrentIndex: 1,
	}

	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out Playlist
	require.NoError(t, json.Unmarshal(raw, &out))

	if diff := cmp.Diff(p, out); diff != "" {
		t.Errorf("Playlist round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestScrobbleRecordJSONRoundTrip(t *testing.T) {
	playedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	records := []ScrobbleRecord{
		{ID: "r1", Service: "subsonic", TrackID: "t1", Kind: NowPlaying,
			QueuedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "r2", Service: "subsonic", TrackID: "t1", Kind: Submission,
			PlayedAt: &playedAt, QueuedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), RetryCount: 2},
	}

	for _, rec := range records {
		raw, err := json.Marshal(rec)
		require.NoError(t, err)

		var out ScrobbleRecord
		require.NoError(t, json.Unmarshal(raw, &out))

		if diff := cmp.Diff(rec, out, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
			t.Errorf("ScrobbleRecord round-trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestApiCacheEntryJSONRoundTrip(t *testing.T) {
	entry := ApiCacheEntry[Track]{
		Key:       "getAlbum?id=42",
		Value:     Track{TrackID: "t1", Title: "Cached"},
		ExpiresAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	var out ApiCacheEntry[Track]
	require.NoError(t, json.Unmarshal(raw, &out))

	if diff := cmp.Diff(entry, out, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("ApiCacheEntry round-trip mismatch (-want +got):\n%s", diff)
	}

	require.False(t, out.Expired(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, out.Expired(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}
