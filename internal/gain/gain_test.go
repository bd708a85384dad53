package gain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syeo66/voidweaver-sub001/internal/config"
	"github.com/syeo66/voidweaver-sub001/internal/model"
)

func f64(v float64) *float64 { return &v }

func TestGainMultiplier_OffIsUnity(t *testing.T) {
	g := ReplayGain{}
	mult := g.GainMultiplier(model.Track{TrackGainDB: f64(-6)}, config.GainOff, 0, true, 0)
	require.Equal(t, 1.0, mult)
}

func TestGainMultiplier_TrackGainApplied(t *testing.T) {
	g := ReplayGain{}
	mult := g.GainMultiplier(model.Track{TrackGainDB: f64(-6)}, config.GainTrack, 0, false, 0)
	require.InDelta(t, math.Pow(10, -6.0/20), mult, 1e-9)
}

func TestGainMultiplier_FallsBackWhenTagMissing(t *testing.T) {
	g := ReplayGain{}
	mult := g.GainMultiplier(model.Track{}, config.GainTrack, 0, false, -3)
	require.InDelta(t, math.Pow(10, -3.0/20), mult, 1e-9)
}

func TestGainMultiplier_PreampAdds(t *testing.T) {
	g := ReplayGain{}
	mult := g.GainMultiplier(model.Track{TrackGainDB: f64(-6)}, config.GainTrack, 2, false, 0)
	require.InDelta(t, math.Pow(10, -4.0/20), mult, 1e-9)
}

func TestGainMultiplier_ClipPreventionClamps(t *testing.T) {
	g := ReplayGain{}
	// +6dB gain with a peak of 0.9 would exceed 1.0 without clamping.
	mult := g.GainMultiplier(model.Track{TrackGainDB: f64(6), TrackPeak: f64(0.9)}, config.GainTrack, 0, true, 0)
	require.InDelta(t, 1.0/0.9, mult, 1e-9)
}

func TestGainMultiplier_ClipPreventionDisabledAllowsOvershoot(t *testing.T) {
	g := ReplayGain{}
	mult := g.GainMultiplier(model.Track{TrackGainDB: f64(6), TrackPeak: f64(0.9)}, config.GainTrack, 0, false, 0)
	require.Greater(t, mult*0.9, 1.0)
}
