// Package config loads the playback core's persisted settings: theme,
// ReplayGain policy, and network timeouts/retry budget. It follows the
// teacher's FileConfig idiom: a YAML-tagged struct tree with pointer
// fields wherever "unset" must be distinguishable from an explicit zero
// value or false.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GainMode selects which ReplayGain value GainProvider applies.
type GainMode string

const (
	GainOff   GainMode = "off"
	GainTrack GainMode = "track"
	GainAlbum GainMode = "album"
)

// NetworkConfig carries the REST transport's timeout and retry policy
// (spec §6). Retry is exponential backoff with jitter and only applies to
// idempotent GETs.
type NetworkConfig struct {
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MetadataTimeout   time.Duration `yaml:"metadata_timeout"`
	StreamingTimeout  time.Duration `yaml:"streaming_timeout"`
	MaxRetryAttempts  int           `yaml:"max_retry_attempts"`
	BaseBackoff       time.Duration `yaml:"base_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	// MaxRequestsPerSecond caps the sustained rate of outbound REST calls
	// against the server, independent of retry backoff; it protects a
	// self-hosted Subsonic instance from a burst of catalog loads (e.g. a
	// PreloadCache window refill) saturating it. Zero disables the cap.
	MaxRequestsPerSecond float64 `yaml:"max_requests_per_second"`
}

// DefaultNetworkConfig returns conservative defaults suitable for a mobile
// client on an intermittent connection.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectionTimeout:    10 * time.Second,
		RequestTimeout:       15 * time.Second,
		MetadataTimeout:      10 * time.Second,
		StreamingTimeout:     30 * time.Second,
		MaxRetryAttempts:     3,
		BaseBackoff:          2 * time.Second,
		MaxBackoff:           5 * time.Minute,
		MaxRequestsPerSecond: 10,
	}
}

// ReplayGainSettings carries the user's gain preferences. PreventClip and
// the preamp use pointer fields so a settings file that omits them is
// distinguishable from one that sets them to zero/false.
type ReplayGainSettings struct {
	Mode            GainMode `yaml:"mode"`
	PreampDB        *float64 `yaml:"preamp_db,omitempty"`
	PreventClip     *bool    `yaml:"prevent_clip,omitempty"`
	FallbackGainDB  *float64 `yaml:"fallback_gain_db,omitempty"`
}

// PreampDBOrZero returns the configured preamp, defaulting to 0 when unset.
func (r ReplayGainSettings) PreampDBOrZero() float64 {
	if r.PreampDB == nil {
		return 0
	}
	return *r.PreampDB
}

// PreventClipOrDefault returns the configured clip-prevention flag,
// defaulting to true when unset.
func (r ReplayGainSettings) PreventClipOrDefault() bool {
	if r.PreventClip == nil {
		return true
	}
	return *r.PreventClip
}

// FallbackGainDBOrZero returns the configured fallback gain, defaulting to
// 0 dB when unset.
func (r ReplayGainSettings) FallbackGainDBOrZero() float64 {
	if r.FallbackGainDB == nil {
		return 0
	}
	return *r.FallbackGainDB
}

// Theme selects the UI appearance; the playback core only persists it.
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// Settings is the full persisted configuration tree for the client.
type Settings struct {
	Theme      Theme              `yaml:"theme"`
	ReplayGain ReplayGainSettings `yaml:"replaygain"`
	Network    NetworkConfig      `yaml:"network"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		Theme:      ThemeSystem,
		ReplayGain: ReplayGainSettings{Mode: GainTrack},
		Network:    DefaultNetworkConfig(),
	}
}

// Load reads and validates settings from path. A missing file is not an
// error; it yields Default().
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return s, nil
}

// Save persists settings to path as YAML.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings that would leave the network or gain layers in
// an undefined state.
func (s Settings) Validate() error {
	switch s.ReplayGain.Mode {
	case GainOff, GainTrack, GainAlbum:
	default:
		return fmt.Errorf("config: invalid replaygain mode %q", s.ReplayGain.Mode)
	}
	if s.Network.MaxRetryAttempts < 0 {
		return fmt.Errorf("config: max_retry_attempts must be >= 0")
	}
	if s.Network.BaseBackoff <= 0 {
		return fmt.Errorf("config: base_backoff must be > 0")
	}
	if s.Network.MaxBackoff < s.Network.BaseBackoff {
		return fmt.Errorf("config: max_backoff must be >= base_backoff")
	}
	return nil
}
