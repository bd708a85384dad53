package subsonicapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	calls int
	body  map[string][]byte
	err   error
}

func (f *fakeTransport) Get(_ context.Context, endpoint string, _ map[string]string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.body[endpoint], nil
}

func testCreds() Credentials {
	return Credentials{Username: "alice", Password: "secret", ClientID: "voidweaver"}
}

func TestNewClient_RejectsPlainHTTP(t *testing.T) {
	_, err := NewClient("http://insecure.example.com", testCreds(), &fakeTransport{})
	require.Error(t, err)
}

func TestNewClient_AcceptsHTTPS(t *testing.T) {
	c, err := NewClient("https://music.example.com", testCreds(), &fakeTransport{})
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestClient_GetAlbumList2(t *testing.T) {
	ft := &fakeTransport{body: map[string][]byte{
		EndpointAlbumList2: []byte(`<albumList2><album id="1" name="A" artist="Art" songCount="10" duration="600" created="2020"/></albumList2>`),
	}}
	c, err := NewClient("https://music.example.com", testCreds(), ft)
	require.NoError(t, err)

	out, err := c.GetAlbumList2(context.Background(), "recent", 50)
	require.NoError(t, err)
	require.Len(t, out.Albums, 1)
	require.Equal(t, "A", out.Albums[0].Name)
}

func TestClient_GetAlbum(t *testing.T) {
	ft := &fakeTransport{body: map[string][]byte{
		EndpointAlbum: []byte(`<album id="1" name="A"><song id="s1" title="T" duration="200"/></album>`),
	}}
	c, err := NewClient("https://music.example.com", testCreds(), ft)
	require.NoError(t, err)

	out, err := c.GetAlbum(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, out.Songs, 1)
	require.Equal(t, "T", out.Songs[0].Title)
}

func TestClient_GetArtistsAndArtist(t *testing.T) {
	ft := &fakeTransport{body: map[string][]byte{
		EndpointArtists: []byte(`<artists><index><artist id="a1" name="Artist"/></index></artists>`),
		EndpointArtist:  []byte(`<artist id="a1" name="Artist"><album id="1" name="A"/></artist>`),
	}}
	c, err := NewClient("https://music.example.com", testCreds(), ft)
	require.NoError(t, err)

	artists, err := c.GetArtists(context.Background())
	require.NoError(t, err)
	require.Len(t, artists.Index, 1)

	artist, err := c.GetArtist(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, artist.Albums, 1)
}

func TestClient_Search3(t *testing.T) {
	ft := &fakeTransport{body: map[string][]byte{
		EndpointSearch3: []byte(`<searchResult3><song id="s1" title="Found"/></searchResult3>`),
	}}
	c, err := NewClient("https://music.example.com", testCreds(), ft)
	require.NoError(t, err)

	out, err := c.Search3(context.Background(), "query", 5, 5, 5)
	require.NoError(t, err)
	require.Len(t, out.Songs, 1)
}

func TestClient_GetRandomSongs(t *testing.T) {
	ft := &fakeTransport{body: map[string][]byte{
		EndpointRandomSongs: []byte(`<randomSongs><song id="s1" title="R"/></randomSongs>`),
	}}
	c, err := NewClient("https://music.example.com", testCreds(), ft)
	require.NoError(t, err)

	out, err := c.GetRandomSongs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out.Songs, 1)
}

func TestClient_StreamURLAndCoverArtURL(t *testing.T) {
	c, err := NewClient("https://music.example.com", testCreds(), &fakeTransport{})
	require.NoError(t, err)

	streamURL, err := c.StreamURL("t1")
	require.NoError(t, err)
	require.Contains(t, streamURL, "/rest/stream?")
	require.Contains(t, streamURL, "id=t1")

	coverURL, err := c.CoverArtURL("t1", 300)
	require.NoError(t, err)
	require.Contains(t, coverURL, "/rest/getCoverArt?")
	require.Contains(t, coverURL, "size=300")
}

func TestClient_Scrobble(t *testing.T) {
	ft := &fakeTransport{body: map[string][]byte{EndpointScrobble: []byte("")}}
	c, err := NewClient("https://music.example.com", testCreds(), ft)
	require.NoError(t, err)

	require.NoError(t, c.Scrobble(context.Background(), "t1", true, "1700000000000"))
	require.Equal(t, 1, ft.calls)
}
