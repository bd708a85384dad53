package subsonicapi

import "time"

// Endpoint names for every server call the playback core issues.
const (
	EndpointAlbumList2   = "getAlbumList2"
	EndpointAlbum        = "getAlbum"
	EndpointArtists      = "getArtists"
	EndpointArtist       = "getArtist"
	EndpointSearch3      = "search3"
	EndpointRandomSongs  = "getRandomSongs"
	EndpointStream       = "stream"
	EndpointCoverArt     = "getCoverArt"
	EndpointScrobble     = "scrobble"
)

// CachePolicy is the fixed per-endpoint caching rule: a TTL and whether
// the entry is eligible for the persistent tier.
type CachePolicy struct {
	TTL        time.Duration
	Persistent bool
}

// ttlTable is the fixed TTL policy from the server protocol contract.
// Endpoints not present here (stream, getCoverArt, scrobble) are never
// cached by ApiCache; they are direct URLs or fire-and-forget calls.
var ttlTable = map[string]CachePolicy{
	EndpointAlbumList2:  {TTL: 3 * time.Minute, Persistent: true},
	EndpointAlbum:       {TTL: 10 * time.Minute, Persistent: true},
	EndpointArtists:     {TTL: 15 * time.Minute, Persistent: true},
	EndpointArtist:      {TTL: 10 * time.Minute, Persistent: true},
	EndpointSearch3:     {TTL: 5 * time.Minute, Persistent: true},
	EndpointRandomSongs: {TTL: 1 * time.Minute, Persistent: false},
}

// PolicyFor returns the fixed cache policy for endpoint and whether one is
// defined. Endpoints with no policy must not be routed through ApiCache.
func PolicyFor(endpoint string) (CachePolicy, bool) {
	p, ok := ttlTable[endpoint]
	return p, ok
}
