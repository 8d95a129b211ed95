package notegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChordPattern(t *testing.T) {
	notes, err := Chord(Pattern{Chord: "C", LengthBeats: 4}, 8)
	require.NoError(t, err)
	require.Len(t, notes, 3)

	for _, n := range notes {
		assert.Equal(t, 8.0, n.StartBeats)
		assert.Equal(t, 4.0, n.LengthBeats)
		assert.Equal(t, 100, n.Velocity)
	}
	assert.Equal(t, 60, notes[0].Pitch)
	assert.Equal(t, 64, notes[1].Pitch)
	assert.Equal(t, 67, notes[2].Pitch)
}

func TestChordPattern_Repeat(t *testing.T) {
	notes, err := Chord(Pattern{Chord: "Em", LengthBeats: 2, Repeat: 2}, 0)
	require.NoError(t, err)
	require.Len(t, notes, 6)

	assert.Equal(t, 0.0, notes[0].StartBeats)
	assert.Equal(t, 2.0, notes[3].StartBeats)
}

func TestArpeggio_Up(t *testing.T) {
	notes, err := Arpeggio(Pattern{Chord: "C", LengthBeats: 4}, 0)
	require.NoError(t, err)
	require.Len(t, notes, 3)

	pitches := []int{notes[0].Pitch, notes[1].Pitch, notes[2].Pitch}
	assert.Equal(t, []int{60, 64, 67}, pitches)

	// Length splits evenly across the three chord tones.
	for i, n := range notes {
		assert.InDelta(t, float64(i)*4.0/3.0, n.StartBeats, 1e-9)
		assert.InDelta(t, 4.0/3.0, n.LengthBeats, 1e-9)
	}
}

func TestArpeggio_Down(t *testing.T) {
	notes, err := Arpeggio(Pattern{Chord: "C", Direction: DirectionDown}, 0)
	require.NoError(t, err)

	pitches := []int{notes[0].Pitch, notes[1].Pitch, notes[2].Pitch}
	assert.Equal(t, []int{67, 64, 60}, pitches)
}

func TestArpeggio_UpDown(t *testing.T) {
	notes, err := Arpeggio(Pattern{Chord: "C", Direction: DirectionUpDown}, 0)
	require.NoError(t, err)

	var pitches []int
	for _, n := range notes {
		pitches = append(pitches, n.Pitch)
	}
	// Top note is not doubled on the turnaround.
	assert.Equal(t, []int{60, 64, 67, 64, 60}, pitches)
}

func TestArpeggio_ExplicitNoteBeats(t *testing.T) {
	notes, err := Arpeggio(Pattern{Chord: "C", NoteBeats: 0.25, Repeat: 2}, 0)
	require.NoError(t, err)
	require.Len(t, notes, 6)

	for i, n := range notes {
		assert.InDelta(t, float64(i)*0.25, n.StartBeats, 1e-9)
		assert.Equal(t, 0.25, n.LengthBeats)
	}
}

func TestProgression(t *testing.T) {
	notes, err := Progression(Pattern{Chords: []string{"C", "Am", "F", "G"}}, 0)
	require.NoError(t, err)
	require.Len(t, notes, 12)

	// One bar per chord by default.
	assert.Equal(t, 0.0, notes[0].StartBeats)
	assert.Equal(t, 4.0, notes[3].StartBeats)
	assert.Equal(t, 8.0, notes[6].StartBeats)
	assert.Equal(t, 12.0, notes[9].StartBeats)
	assert.Equal(t, 4.0, notes[0].LengthBeats)
}

func TestProgression_InvalidChord(t *testing.T) {
	_, err := Progression(Pattern{Chords: []string{"C", "X"}}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X")
}

func TestProgression_Empty(t *testing.T) {
	_, err := Progression(Pattern{}, 0)
	assert.Error(t, err)
}
