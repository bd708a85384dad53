package subsonicapi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
)

// Transport is the narrow capability interface the REST client depends
// on. Production code backs it with an HTTP/2 client wrapped in the retry
// policy from internal/config.NetworkConfig; tests back it with a fake
// that can gate or fail responses deterministically.
type Transport interface {
	// Get issues a GET against endpoint with the given query params
	// (excluding auth, which Client adds) and returns the raw response
	// body. Only GETs are retried, per spec; Get must be idempotent.
	Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error)
}

// Client is the typed Subsonic REST client. It signs every request, but
// does not cache; ApiCache sits in front of it for endpoints with a TTL
// policy.
type Client struct {
	transport Transport
	creds     Credentials
	baseURL   string
}

// NewClient constructs a Client. baseURL must be HTTPS; construction
// rejects plain HTTP per the server protocol's mandatory TLS policy.
func NewClient(baseURL string, creds Credentials, transport Transport) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("subsonicapi: invalid base url: %w", err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("subsonicapi: server url must use https, got %q", u.Scheme)
	}
	return &Client{transport: transport, creds: creds, baseURL: baseURL}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	return c.transport.Get(ctx, endpoint, params)
}

// GetAlbumList2 fetches a page of the album list (type=recent by default).
func (c *Client) GetAlbumList2(ctx context.Context, listType string, size int) (AlbumList2, error) {
	body, err := c.get(ctx, EndpointAlbumList2, map[string]string{
		"type": listType,
		"size": fmt.Sprint(size),
	})
	if err != nil {
		return AlbumList2{}, err
	}
	var out AlbumList2
	if err := xml.Unmarshal(body, &out); err != nil {
		return AlbumList2{}, fmt.Errorf("subsonicapi: parse getAlbumList2: %w", err)
	}
	return out, nil
}

// GetAlbum fetches album detail with its nested song list.
func (c *Client) GetAlbum(ctx context.Context, id string) (Album, error) {
	body, err := c.get(ctx, EndpointAlbum, map[string]string{"id": id})
	if err != nil {
		return Album{}, err
	}
	var out Album
	if err := xml.Unmarshal(body, &out); err != nil {
		return Album{}, fmt.Errorf("subsonicapi: parse getAlbum: %w", err)
	}
	return out, nil
}

// GetArtists fetches the artist index.
func (c *Client) GetArtists(ctx context.Context) (ArtistsIndex, error) {
	body, err := c.get(ctx, EndpointArtists, nil)
	if err != nil {
		return ArtistsIndex{}, err
	}
	var out ArtistsIndex
	if err := xml.Unmarshal(body, &out); err != nil {
		return ArtistsIndex{}, fmt.Errorf("subsonicapi: parse getArtists: %w", err)
	}
	return out, nil
}

// GetArtist fetches a single artist's albums.
func (c *Client) GetArtist(ctx context.Context, id string) (Artist, error) {
	body, err := c.get(ctx, EndpointArtist, map[string]string{"id": id})
	if err != nil {
		return Artist{}, err
	}
	var out Artist
	if err := xml.Unmarshal(body, &out); err != nil {
		return Artist{}, fmt.Errorf("subsonicapi: parse getArtist: %w", err)
	}
	return out, nil
}

// Search3 performs a combined artist/album/song search.
func (c *Client) Search3(ctx context.Context, query string, artistCount, albumCount, songCount int) (SearchResult3, error) {
	body, err := c.get(ctx, EndpointSearch3, map[string]string{
		"query":       query,
		"artistCount": fmt.Sprint(artistCount),
		"albumCount":  fmt.Sprint(albumCount),
		"songCount":   fmt.Sprint(songCount),
	})
	if err != nil {
		return SearchResult3{}, err
	}
	var out SearchResult3
	if err := xml.Unmarshal(body, &out); err != nil {
		return SearchResult3{}, fmt.Errorf("subsonicapi: parse search3: %w", err)
	}
	return out, nil
}

// GetRandomSongs fetches up to size random songs. An empty result is
// returned as-is; callers enforce the EmptyResult policy (spec §8).
func (c *Client) GetRandomSongs(ctx context.Context, size int) (RandomSongs, error) {
	body, err := c.get(ctx, EndpointRandomSongs, map[string]string{"size": fmt.Sprint(size)})
	if err != nil {
		return RandomSongs{}, err
	}
	var out RandomSongs
	if err := xml.Unmarshal(body, &out); err != nil {
		return RandomSongs{}, fmt.Errorf("subsonicapi: parse getRandomSongs: %w", err)
	}
	return out, nil
}

// StreamURL builds the signed, short-lived direct URL for streaming a
// track. It is never cached by ApiCache: a fresh signature is required on
// every call.
func (c *Client) StreamURL(id string) (string, error) {
	return c.signedURL(EndpointStream, map[string]string{"id": id})
}

// CoverArtURL builds the signed direct URL for a track or album's cover
// art at the given pixel size (spec default 300).
func (c *Client) CoverArtURL(id string, size int) (string, error) {
	return c.signedURL(EndpointCoverArt, map[string]string{"id": id, "size": fmt.Sprint(size)})
}

func (c *Client) signedURL(endpoint string, params map[string]string) (string, error) {
	auth, err := SignParams(c.creds)
	if err != nil {
		return "", fmt.Errorf("subsonicapi: sign %s: %w", endpoint, err)
	}
	for k, v := range params {
		auth.Set(k, v)
	}
	return fmt.Sprintf("%s/rest/%s?%s", c.baseURL, endpoint, auth.Encode()), nil
}

// Scrobble notifies the server of a now-playing track or a play
// submission. time, when non-empty, is a millisecond epoch timestamp.
func (c *Client) Scrobble(ctx context.Context, id string, submission bool, timeMs string) error {
	params := map[string]string{
		"id":         id,
		"submission": fmt.Sprint(submission),
	}
	if timeMs != "" {
		params["time"] = timeMs
	}
	_, err := c.get(ctx, EndpointScrobble, params)
	return err
}
