package subsonicapi

import "encoding/xml"

// Song is the wire representation of a track as the server returns it
// inside album, artist, search, and random-songs responses. ReplayGain
// tags vary by server implementation; Song accepts every spelling the
// field can arrive under and exposes the tolerant accessors below.
type Song struct {
	ID          string `xml:"id,attr"`
	Title       string `xml:"title,attr"`
	Artist      string `xml:"artist,attr"`
	Album       string `xml:"album,attr"`
	AlbumID     string `xml:"albumId,attr"`
	CoverArt    string `xml:"coverArt,attr"`
	Duration    int    `xml:"duration,attr"`
	Track       int    `xml:"track,attr"`
	ContentType string `xml:"contentType,attr"`

	ReplayGainTrackGain *float64 `xml:"replayGainTrackGain,attr"`
	RGTrackGain         *float64 `xml:"rgTrackGain,attr"`
	TrackGain           *float64 `xml:"trackGain,attr"`

	ReplayGainAlbumGain *float64 `xml:"replayGainAlbumGain,attr"`
	RGAlbumGain         *float64 `xml:"rgAlbumGain,attr"`
	AlbumGain           *float64 `xml:"albumGain,attr"`

	ReplayGainTrackPeak *float64 `xml:"replayGainTrackPeak,attr"`
	RGTrackPeak         *float64 `xml:"rgTrackPeak,attr"`
	TrackPeak           *float64 `xml:"trackPeak,attr"`

	ReplayGainAlbumPeak *float64 `xml:"replayGainAlbumPeak,attr"`
	RGAlbumPeak         *float64 `xml:"rgAlbumPeak,attr"`
	AlbumPeak           *float64 `xml:"albumPeak,attr"`
}

// firstNonNil returns the first non-nil pointer among candidates, or nil.
func firstNonNil(candidates ...*float64) *float64 {
	for _, c := range candidates {
		if c != nil {
			return c
		}
	}
	return nil
}

// TrackGainDB returns the track gain under whichever spelling the server
// used, or nil if absent under all three.
func (s Song) TrackGainDB() *float64 {
	return firstNonNil(s.ReplayGainTrackGain, s.RGTrackGain, s.TrackGain)
}

// AlbumGainDB returns the album gain under whichever spelling the server
// used, or nil if absent under all three.
func (s Song) AlbumGainDB() *float64 {
	return firstNonNil(s.ReplayGainAlbumGain, s.RGAlbumGain, s.AlbumGain)
}

// TrackPeakValue returns the track peak under whichever spelling the
// server used, or nil if absent under all three.
func (s Song) TrackPeakValue() *float64 {
	return firstNonNil(s.ReplayGainTrackPeak, s.RGTrackPeak, s.TrackPeak)
}

// AlbumPeakValue returns the album peak under whichever spelling the
// server used, or nil if absent under all three.
func (s Song) AlbumPeakValue() *float64 {
	return firstNonNil(s.ReplayGainAlbumPeak, s.RGAlbumPeak, s.AlbumPeak)
}

// Album is the detail response from getAlbum: the album attributes plus
// its nested song list.
type Album struct {
	XMLName  xml.Name `xml:"album"`
	ID       string   `xml:"id,attr"`
	Name     string   `xml:"name,attr"`
	Artist   string   `xml:"artist,attr"`
	CoverArt string   `xml:"coverArt,attr"`
	SongCount int     `xml:"songCount,attr"`
	Duration int      `xml:"duration,attr"`
	Created  string   `xml:"created,attr"`
	Songs    []Song   `xml:"song"`
}

// AlbumListEntry is one row of getAlbumList2's summary listing.
type AlbumListEntry struct {
	ID        string `xml:"id,attr"`
	Name      string `xml:"name,attr"`
	Artist    string `xml:"artist,attr"`
	CoverArt  string `xml:"coverArt,attr"`
	SongCount int    `xml:"songCount,attr"`
	Duration  int    `xml:"duration,attr"`
	Created   string `xml:"created,attr"`
}

// AlbumList2 wraps getAlbumList2's response body.
type AlbumList2 struct {
	XMLName xml.Name         `xml:"albumList2"`
	Albums  []AlbumListEntry `xml:"album"`
}

// Artist is one row of getArtists, or the detail response from getArtist
// when Albums is populated.
type Artist struct {
	ID         string           `xml:"id,attr"`
	Name       string           `xml:"name,attr"`
	CoverArt   string           `xml:"coverArt,attr"`
	AlbumCount int              `xml:"albumCount,attr"`
	Albums     []AlbumListEntry `xml:"album"`
}

// ArtistsIndex wraps getArtists' response body.
type ArtistsIndex struct {
	XMLName xml.Name `xml:"artists"`
	Index   []struct {
		Artists []Artist `xml:"artist"`
	} `xml:"index"`
}

// SearchResult3 wraps search3's response body.
type SearchResult3 struct {
	XMLName xml.Name         `xml:"searchResult3"`
	Artists []Artist         `xml:"artist"`
	Albums  []AlbumListEntry `xml:"album"`
	Songs   []Song           `xml:"song"`
}

// RandomSongs wraps getRandomSongs' response body.
type RandomSongs struct {
	XMLName xml.Name `xml:"randomSongs"`
	Songs   []Song   `xml:"song"`
}
