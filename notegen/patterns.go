package notegen

import (
	"fmt"

	"github.com/Conceptual-Machines/magda-live-go/models"
)

// Direction controls the note order of an arpeggio.
type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionUpDown Direction = "updown"
)

// Pattern describes a chord-based figure to render onto the beat grid.
// Zero values fall back to sensible defaults: one bar, velocity 100,
// octave 4, single pass.
type Pattern struct {
	// Chord is a single chord symbol, used by Chord and Arpeggio.
	Chord string
	// Chords is the symbol sequence used by Progression.
	Chords []string
	// LengthBeats is the total span of one pass. Defaults to 4 beats
	// (one bar per chord for progressions).
	LengthBeats float64
	// NoteBeats overrides the per-note duration of an arpeggio,
	// e.g. 0.25 for sixteenth notes.
	NoteBeats float64
	Velocity  int
	Octave    int
	Channel   int
	Repeat    int
	Direction Direction
}

func (p Pattern) withDefaults(bars float64) Pattern {
	if p.LengthBeats <= 0 {
		p.LengthBeats = bars * 4.0
	}
	if p.Velocity <= 0 {
		p.Velocity = 100
	}
	if p.Octave == 0 {
		p.Octave = 4
	}
	if p.Repeat <= 0 {
		p.Repeat = 1
	}
	if p.Direction == "" {
		p.Direction = DirectionUp
	}
	return p
}

// Chord renders the pattern's chord as simultaneous notes, one block
// per repeat.
func Chord(p Pattern, startBeat float64) ([]models.ScheduledNote, error) {
	p = p.withDefaults(1)

	chordNotes, err := ChordToMIDI(p.Chord, p.Octave)
	if err != nil {
		return nil, err
	}

	var notes []models.ScheduledNote
	currentBeat := startBeat

	for r := 0; r < p.Repeat; r++ {
		for _, midiNote := range chordNotes {
			notes = append(notes, models.ScheduledNote{
				Pitch:       midiNote,
				Velocity:    p.Velocity,
				StartBeats:  currentBeat,
				LengthBeats: p.LengthBeats,
				Channel:     p.Channel,
			})
		}
		currentBeat += p.LengthBeats
	}

	return notes, nil
}

// Arpeggio renders the pattern's chord as sequential notes in the given
// direction. Per-note duration is NoteBeats when set, otherwise the
// pattern length divided evenly across the chord tones.
func Arpeggio(p Pattern, startBeat float64) ([]models.ScheduledNote, error) {
	p = p.withDefaults(1)

	chordNotes, err := ChordToMIDI(p.Chord, p.Octave)
	if err != nil {
		return nil, err
	}

	switch p.Direction {
	case DirectionDown:
		chordNotes = reversed(chordNotes)
	case DirectionUpDown:
		// Up then down, without repeating the top note.
		up := chordNotes
		down := reversed(chordNotes[1:])
		chordNotes = append(up, down...)
	}

	noteBeats := p.NoteBeats
	if noteBeats <= 0 {
		noteBeats = p.LengthBeats / float64(len(chordNotes))
	}

	var notes []models.ScheduledNote
	currentBeat := startBeat

	for r := 0; r < p.Repeat; r++ {
		for _, midiNote := range chordNotes {
			notes = append(notes, models.ScheduledNote{
				Pitch:       midiNote,
				Velocity:    p.Velocity,
				StartBeats:  currentBeat,
				LengthBeats: noteBeats,
				Channel:     p.Channel,
			})
			currentBeat += noteBeats
		}
	}

	return notes, nil
}

// Progression renders the pattern's chord sequence as consecutive
// block chords, the total length divided evenly across the chords.
func Progression(p Pattern, startBeat float64) ([]models.ScheduledNote, error) {
	if len(p.Chords) == 0 {
		return nil, fmt.Errorf("progression has no chords")
	}
	p = p.withDefaults(float64(len(p.Chords)))

	chordBeats := p.LengthBeats / float64(len(p.Chords))

	var notes []models.ScheduledNote
	currentBeat := startBeat

	for r := 0; r < p.Repeat; r++ {
		for _, chordSymbol := range p.Chords {
			chordNotes, err := ChordToMIDI(chordSymbol, p.Octave)
			if err != nil {
				return nil, fmt.Errorf("invalid chord in progression: %s: %w", chordSymbol, err)
			}

			for _, midiNote := range chordNotes {
				notes = append(notes, models.ScheduledNote{
					Pitch:       midiNote,
					Velocity:    p.Velocity,
					StartBeats:  currentBeat,
					LengthBeats: chordBeats,
					Channel:     p.Channel,
				})
			}

			currentBeat += chordBeats
		}
	}

	return notes, nil
}

func reversed(notes []int) []int {
	out := make([]int, len(notes))
	for i, n := range notes {
		out[len(notes)-1-i] = n
	}
	return out
}
