// Package analysis derives rolling musical metrics from note windows. Every
// kernel here is a pure function of its input: same notes in, same numbers
// out, so the engine can recompute redundantly without side effects.
package analysis

import (
	"math"

	"github.com/Conceptual-Machines/magda-live-go/config"
	"github.com/Conceptual-Machines/magda-live-go/models"
	"github.com/viterin/vek"
)

// Density is notes per second over the window span.
func Density(noteCount int, spanSeconds, epsilon float64) float64 {
	return float64(noteCount) / math.Max(spanSeconds, epsilon)
}

// RhythmicComplexity is the coefficient of variation of successive onset
// deltas, clamped to [0, 1]. Fewer than two notes scores 0; a perfectly
// regular pulse also scores 0.
func RhythmicComplexity(onsets []float64, epsilon float64) float64 {
	if len(onsets) < 2 {
		return 0
	}
	return clamp01(coefficientOfVariation(diffs(onsets), epsilon))
}

// GrooveQuality combines timing and velocity regularity: the average of
// (1 - timing CV) and (1 - velocity CV), both clamped to [0, 1].
func GrooveQuality(onsets, velocities []float64, epsilon float64) float64 {
	if len(onsets) < 2 || len(velocities) == 0 {
		return 0
	}
	timing := clamp01(1 - coefficientOfVariation(diffs(onsets), epsilon))
	velocity := clamp01(1 - coefficientOfVariation(velocities, epsilon))
	return (timing + velocity) / 2
}

// SwingRatio measures long-short alternation between successive inter-onset
// intervals: the fraction of even-indexed intervals longer than the interval
// that follows them. Fewer than minNotes notes defaults to straight (0.5).
func SwingRatio(onsets []float64, minNotes int) float64 {
	if len(onsets) < minNotes {
		return 0.5
	}
	intervals := diffs(onsets)
	pairs, longShort := 0, 0
	for i := 0; i+1 < len(intervals); i += 2 {
		pairs++
		if intervals[i] > intervals[i+1] {
			longShort++
		}
	}
	if pairs == 0 {
		return 0.5
	}
	return float64(longShort) / float64(pairs)
}

// Syncopation is the fraction of onsets falling in the off-beat phase
// windows centered on the 1/4 and 3/4 positions of the beat cycle at the
// given tempo. The first onset in the window anchors the beat grid.
func Syncopation(onsets []float64, bpm, offbeatWindow float64) float64 {
	if len(onsets) == 0 || bpm <= 0 {
		return 0
	}
	beat := 60 / bpm
	half := offbeatWindow / 2
	offbeat := 0
	for _, t := range onsets {
		phase := math.Mod((t-onsets[0])/beat, 1.0)
		if phase < 0 {
			phase += 1.0
		}
		if math.Abs(phase-0.25) < half || math.Abs(phase-0.75) < half {
			offbeat++
		}
	}
	return float64(offbeat) / float64(len(onsets))
}

// ClassifyRole buckets a track by mean pitch. This is a coarse placeholder
// heuristic, not real harmonic analysis.
func ClassifyRole(pitches []float64, cfg config.AnalysisConfig) models.MusicalRole {
	if len(pitches) == 0 {
		return models.RoleHarmony
	}
	mean := vek.Mean(pitches)
	switch {
	case mean < cfg.BassMeanPitch:
		return models.RoleBass
	case mean > cfg.MelodyMeanPitch:
		return models.RoleMelody
	default:
		return models.RoleHarmony
	}
}

// AnalyzeWindow computes the full metric set for one track's note window.
// The returned analysis has a zero LastUpdated; the engine stamps it only
// when the values actually changed.
func AnalyzeWindow(trackID string, notes []models.NoteEvent, bpm, spanSeconds float64, cfg config.AnalysisConfig) models.TrackAnalysis {
	a := models.TrackAnalysis{
		TrackID:     trackID,
		NoteCount:   len(notes),
		MusicalRole: models.RoleHarmony,
		SwingRatio:  0.5,
	}
	a.NoteDensity = Density(len(notes), spanSeconds, cfg.Epsilon)
	if len(notes) == 0 {
		return a
	}

	onsets := make([]float64, len(notes))
	pitches := make([]float64, len(notes))
	velocities := make([]float64, len(notes))
	base := notes[0].Timestamp
	for i, n := range notes {
		onsets[i] = n.Timestamp.Sub(base).Seconds()
		pitches[i] = float64(n.Pitch)
		velocities[i] = float64(n.Velocity)
	}

	a.PitchMin = int(vek.Min(pitches))
	a.PitchMax = int(vek.Max(pitches))
	a.VelocityMin = int(vek.Min(velocities))
	a.VelocityMax = int(vek.Max(velocities))
	a.RhythmicComplexity = RhythmicComplexity(onsets, cfg.Epsilon)
	a.GrooveQuality = GrooveQuality(onsets, velocities, cfg.Epsilon)
	a.SwingRatio = SwingRatio(onsets, cfg.MinSwingNotes)
	a.SyncopationLevel = Syncopation(onsets, bpm, cfg.OffbeatWindow)
	a.MusicalRole = ClassifyRole(pitches, cfg)
	a.Opportunities = opportunities(a, cfg.Thresholds)
	return a
}

// opportunities derives enhancement tags by thresholding the metric set. The
// order is fixed so recomputes stay byte-identical.
func opportunities(a models.TrackAnalysis, th config.ThresholdConfig) []string {
	var tags []string
	if a.NoteDensity < th.LowDensity {
		tags = append(tags, "increase_note_density")
	}
	if a.NoteDensity > th.HighDensity {
		tags = append(tags, "thin_out_notes")
	}
	if a.NoteCount > 1 && a.PitchMax-a.PitchMin < th.NarrowPitch {
		tags = append(tags, "expand_pitch_range")
	}
	if a.NoteCount > 1 && a.VelocityMax-a.VelocityMin < th.NarrowVelocity {
		tags = append(tags, "add_velocity_variation")
	}
	if a.NoteCount > 1 && a.GrooveQuality < th.LowGroove {
		tags = append(tags, "tighten_timing")
	}
	if a.NoteCount > 1 && a.SwingRatio >= th.StraightSwingLow && a.SwingRatio <= th.StraightSwingHi {
		tags = append(tags, "add_swing")
	}
	return tags
}

// coefficientOfVariation is stddev/mean; zero or near-zero means score 0 so
// silent or degenerate windows never blow up.
func coefficientOfVariation(xs []float64, epsilon float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := vek.Mean(xs)
	if math.Abs(mean) < epsilon {
		return 0
	}
	dev := vek.SubNumber(xs, mean)
	variance := vek.Mean(vek.Mul(dev, dev))
	return math.Sqrt(variance) / math.Abs(mean)
}

func diffs(xs []float64) []float64 {
	out := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out = append(out, xs[i]-xs[i-1])
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
