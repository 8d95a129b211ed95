package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains configuration for the MAGDA live engine.
type Config struct {
	SentryDSN string `yaml:"sentry_dsn"` // Sentry DSN, empty disables reporting
	Debug     bool   `yaml:"debug"`      // development logging + strict field checks

	Engine   EngineConfig   `yaml:"engine"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

// EngineConfig tunes ingestion, buffering and recompute scheduling.
type EngineConfig struct {
	// AnalysisInterval is the fixed-rate recompute period. Zero disables the
	// ticker (recompute then only happens on buffer mutation).
	AnalysisInterval time.Duration `yaml:"analysis_interval"`
	// AnalysisOnMutation triggers a recompute on every note append.
	AnalysisOnMutation bool `yaml:"analysis_on_mutation"`
	// WindowSpan is how far back the analysis window reaches.
	WindowSpan time.Duration `yaml:"window_span"`
	// TrackBufferSize is the per-track note ring capacity.
	TrackBufferSize int `yaml:"track_buffer_size"`
	// MaxBufferedEvents bounds note events across all tracks.
	MaxBufferedEvents int `yaml:"max_buffered_events"`
	// OutboundQueueSize is the EventBus outbound message queue capacity.
	OutboundQueueSize int `yaml:"outbound_queue_size"`
	// RecentNotes is how many note events the project snapshot retains.
	RecentNotes int `yaml:"recent_notes"`
}

// AnalysisConfig holds the metric constants and opportunity thresholds. The
// swing/syncopation numbers are empirical, inherited from the original MAGDA
// heuristics; they are configuration, not hardcoded logic.
type AnalysisConfig struct {
	// Epsilon guards divisions by near-zero window spans and means.
	Epsilon float64 `yaml:"epsilon"`
	// OffbeatWindow is the fraction of the beat cycle counted as off-beat
	// around the 1/4 and 3/4 beat positions (0.10 = middle 10%).
	OffbeatWindow float64 `yaml:"offbeat_window"`
	// MinSwingNotes is the minimum note count before swing is measured;
	// below it the ratio defaults to straight (0.5).
	MinSwingNotes int `yaml:"min_swing_notes"`
	// BassMeanPitch / MelodyMeanPitch split the coarse role classification.
	BassMeanPitch   float64 `yaml:"bass_mean_pitch"`
	MelodyMeanPitch float64 `yaml:"melody_mean_pitch"`

	Thresholds ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig drives enhancement-opportunity tagging.
type ThresholdConfig struct {
	LowDensity       float64 `yaml:"low_density"`        // notes/sec below this -> increase_note_density
	HighDensity      float64 `yaml:"high_density"`       // notes/sec above this -> thin_out_notes
	NarrowVelocity   int     `yaml:"narrow_velocity"`    // velocity span below this -> add_velocity_variation
	NarrowPitch      int     `yaml:"narrow_pitch"`       // pitch span below this -> expand_pitch_range
	LowGroove        float64 `yaml:"low_groove"`         // groove below this -> tighten_timing
	StraightSwingLow float64 `yaml:"straight_swing_low"` // swing inside [low, high] -> add_swing
	StraightSwingHi  float64 `yaml:"straight_swing_hi"`
}

// Default returns the engine defaults used when no config file is present.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			AnalysisInterval:   500 * time.Millisecond,
			AnalysisOnMutation: false,
			WindowSpan:         30 * time.Second,
			TrackBufferSize:    256,
			MaxBufferedEvents:  4096,
			OutboundQueueSize:  1024,
			RecentNotes:        128,
		},
		Analysis: AnalysisConfig{
			Epsilon:         1e-9,
			OffbeatWindow:   0.10,
			MinSwingNotes:   4,
			BassMeanPitch:   60,
			MelodyMeanPitch: 80,
			Thresholds: ThresholdConfig{
				LowDensity:       0.5,
				HighDensity:      8.0,
				NarrowVelocity:   10,
				NarrowPitch:      7,
				LowGroove:        0.4,
				StraightSwingLow: 0.45,
				StraightSwingHi:  0.55,
			},
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dsn := os.Getenv("MAGDA_SENTRY_DSN"); dsn != "" {
		c.SentryDSN = dsn
	}
	if os.Getenv("MAGDA_DEBUG") == "1" {
		c.Debug = true
	}
}
