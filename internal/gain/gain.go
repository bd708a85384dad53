// Package gain computes the linear volume multiplier the playback
// controller applies to a track before handing it to the decoder.
package gain

import (
	"math"

	"github.com/syeo66/voidweaver-sub001/internal/config"
	"github.com/syeo66/voidweaver-sub001/internal/model"
)

// Provider produces a linear volume multiplier for a track. Implementations
// must be pure and deterministic: same inputs, same output, no I/O.
type Provider interface {
	GainMultiplier(track model.Track, mode config.GainMode, preampDB float64, preventClip bool, fallbackGainDB float64) float64
}

// ReplayGain is the default, spec-faithful Provider.
type ReplayGain struct{}

// GainMultiplier returns 1.0 for GainOff. Otherwise it selects the
// track or album gain (falling back to fallbackGainDB when the tag is
// absent), adds the preamp, converts to a linear multiplier, and clamps to
// avoid clipping against the corresponding peak when preventClip is set.
func (ReplayGain) GainMultiplier(track model.Track, mode config.GainMode, preampDB float64, preventClip bool, fallbackGainDB float64) float64 {
	if mode == config.GainOff {
		return 1.0
	}

	var selectedGainDB *float64
	var peak *float64
	switch mode {
	case config.GainTrack:
		selectedGainDB = track.TrackGainDB
		peak = track.TrackPeak
	case config.GainAlbum:
		selectedGainDB = track.AlbumGainDB
		peak = track.AlbumPeak
	}

	gainDB := fallbackGainDB
	if selectedGainDB != nil {
		gainDB = *selectedGainDB
	}
	gainDB += preampDB

	mult := math.Pow(10, gainDB/20)

	if preventClip && peak != nil && *peak > 0 {
		if *peak*mult > 1 {
			mult = 1 / *peak
		}
	}

	return mult
}
