package models

import (
	"time"
)

// TrackKind identifies what a track carries.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindMIDI  TrackKind = "midi"
	TrackKindBus   TrackKind = "bus"
)

// Track is the live mirror of a single DAW track. Tracks are created on first
// reference from an inbound message and live for the whole session; fields are
// filled in piecemeal as partial updates arrive from the DAW.
type Track struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        TrackKind `json:"kind"`
	Armed       bool      `json:"armed"`
	Muted       bool      `json:"muted"`
	Solo        bool      `json:"solo"`
	Volume      float64   `json:"volume"`
	Pan         float64   `json:"pan"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Region is the live mirror of a media item / clip. TrackID is a weak
// reference: a region may name a track the store has not seen yet.
type Region struct {
	ID          string    `json:"id"`
	TrackID     string    `json:"trackId"`
	Name        string    `json:"name"`
	Start       float64   `json:"start"`
	Length      float64   `json:"length"`
	Position    float64   `json:"position"`
	Selected    bool      `json:"selected"`
	Muted       bool      `json:"muted"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Selection is the session's single active time/track/region selection.
// Fields update independently; start may arrive before end.
type Selection struct {
	Start     float64  `json:"start"`
	End       float64  `json:"end"`
	TrackIDs  []string `json:"trackIds"`
	RegionIDs []string `json:"regionIds"`
}

// NoteEvent is one sounding (or sounded) MIDI note observed on the live
// stream. Duration stays negative until a matching note-off arrives.
type NoteEvent struct {
	TrackID   string        `json:"trackId"`
	Pitch     int           `json:"pitch"`
	Velocity  int           `json:"velocity"`
	Channel   int           `json:"channel"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Open reports whether the note is still waiting for its note-off.
func (n NoteEvent) Open() bool { return n.Duration < 0 }

// TimeSignature is the session meter, e.g. 4/4.
type TimeSignature struct {
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

// ProjectState is the aggregate snapshot of the live session. Snapshots
// handed to consumers are deep copies; nothing in a ProjectState aliases the
// store's mutable state.
type ProjectState struct {
	Name          string        `json:"name"`
	Tempo         float64       `json:"tempo"`
	TimeSignature TimeSignature `json:"timeSignature"`
	SampleRate    int           `json:"sampleRate"`
	Tracks        []Track       `json:"tracks"`  // ordered by ID
	Regions       []Region      `json:"regions"` // ordered by ID
	Selection     *Selection    `json:"selection,omitempty"`
	RecentNotes   []NoteEvent   `json:"recentNotes"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

// TrackByID returns the track with the given id, if present.
func (p *ProjectState) TrackByID(id string) (Track, bool) {
	for _, t := range p.Tracks {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// RegionByID returns the region with the given id, if present.
func (p *ProjectState) RegionByID(id string) (Region, bool) {
	for _, r := range p.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// MusicalRole is the coarse per-track role classification produced by the
// analysis engine. It is a placeholder heuristic based on mean pitch, not a
// substitute for real harmonic analysis.
type MusicalRole string

const (
	RoleBass    MusicalRole = "bass"
	RoleHarmony MusicalRole = "harmony"
	RoleMelody  MusicalRole = "melody"
)

// TrackAnalysis is the derived per-track metric snapshot. Values are
// recomputed from the note window; consumers always receive copies.
type TrackAnalysis struct {
	TrackID            string      `json:"trackId"`
	NoteCount          int         `json:"noteCount"`
	NoteDensity        float64     `json:"noteDensity"` // notes per second over the window
	PitchMin           int         `json:"pitchMin"`
	PitchMax           int         `json:"pitchMax"`
	VelocityMin        int         `json:"velocityMin"`
	VelocityMax        int         `json:"velocityMax"`
	RhythmicComplexity float64     `json:"rhythmicComplexity"`
	GrooveQuality      float64     `json:"grooveQuality"`
	SwingRatio         float64     `json:"swingRatio"`
	SyncopationLevel   float64     `json:"syncopationLevel"`
	MusicalRole        MusicalRole `json:"musicalRole"`
	Opportunities      []string    `json:"opportunities"`
	LastUpdated        time.Time   `json:"lastUpdated"`
}

// Equal compares two analyses ignoring LastUpdated, so the engine can detect
// whether a recompute actually changed anything.
func (a TrackAnalysis) Equal(b TrackAnalysis) bool {
	if a.TrackID != b.TrackID ||
		a.NoteCount != b.NoteCount ||
		a.NoteDensity != b.NoteDensity ||
		a.PitchMin != b.PitchMin || a.PitchMax != b.PitchMax ||
		a.VelocityMin != b.VelocityMin || a.VelocityMax != b.VelocityMax ||
		a.RhythmicComplexity != b.RhythmicComplexity ||
		a.GrooveQuality != b.GrooveQuality ||
		a.SwingRatio != b.SwingRatio ||
		a.SyncopationLevel != b.SyncopationLevel ||
		a.MusicalRole != b.MusicalRole ||
		len(a.Opportunities) != len(b.Opportunities) {
		return false
	}
	for i := range a.Opportunities {
		if a.Opportunities[i] != b.Opportunities[i] {
			return false
		}
	}
	return true
}

// ScheduledNote is one note in a playback run, positioned on the beat grid.
// JSON field names match the MAGDA note wire format.
type ScheduledNote struct {
	Pitch       int     `json:"midiNoteNumber"`
	Velocity    int     `json:"velocity"`
	StartBeats  float64 `json:"startBeats"`
	LengthBeats float64 `json:"lengthBeats"`
	Channel     int     `json:"channel,omitempty"`
}
