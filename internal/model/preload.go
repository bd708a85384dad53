package model

import "time"

// SourceState is the lifecycle of a PreparedSource.
type SourceState int

const (
	SourceUnloaded SourceState = iota
	SourcePreparing
	SourceReady
	SourceFailed
)

func (s SourceState) String() string {
	switch s {
	case SourceUnloaded:
		return "unloaded"
	case SourcePreparing:
		return "preparing"
	case SourceReady:
		return "ready"
	case SourceFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PreparedSource is an opaque decoder handle bound to a stream URL. It is
// owned exclusively by the PreloadCache entry holding it until it is
// handed off (Take) or released (eviction).
type PreparedSource struct {
	StreamURL  string
	State      SourceState
	PreparedAt time.Time

	// Handle is the decoder-specific opaque resource. The playback core
	// never inspects it; only internal/decoder implementations do.
	Handle any
}

// PreloadEntry binds a playlist position to a Track, its stream URL, and
// (once preparation completes) a PreparedSource.
type PreloadEntry struct {
	PlaylistIndex int
	Track         Track
	StreamURL     string
	Source        *PreparedSource
	PreparedAt    time.Time
}

// Ready reports whether the entry has a usable PreparedSource.
func (e *PreloadEntry) Ready() bool {
	return e.Source != nil && e.Source.State == SourceReady
}
