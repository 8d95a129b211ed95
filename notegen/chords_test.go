package notegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChordToMIDI(t *testing.T) {
	tests := []struct {
		name   string
		chord  string
		octave int
		want   []int
	}{
		{
			name:   "C major triad",
			chord:  "C",
			octave: 4,
			want:   []int{60, 64, 67},
		},
		{
			name:   "E minor",
			chord:  "Em",
			octave: 4,
			want:   []int{64, 67, 71},
		},
		{
			name:   "A minor seventh",
			chord:  "Am7",
			octave: 4,
			want:   []int{69, 72, 76, 79},
		},
		{
			name:   "C major seventh",
			chord:  "Cmaj7",
			octave: 4,
			want:   []int{60, 64, 67, 71},
		},
		{
			name:   "sharp root",
			chord:  "F#",
			octave: 3,
			want:   []int{54, 58, 61},
		},
		{
			name:   "flat root",
			chord:  "Bb",
			octave: 3,
			want:   []int{58, 62, 65},
		},
		{
			name:   "sus4",
			chord:  "Csus4",
			octave: 4,
			want:   []int{60, 65, 67},
		},
		{
			name:   "diminished",
			chord:  "Bdim",
			octave: 3,
			want:   []int{59, 62, 65},
		},
		{
			name:   "slash bass prepended an octave down",
			chord:  "Em/G",
			octave: 4,
			want:   []int{55, 64, 67, 71},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := ChordToMIDI(tt.chord, tt.octave)
			require.NoError(t, err)
			assert.Equal(t, tt.want, notes)
		})
	}
}

func TestChordToMIDI_InvalidRoot(t *testing.T) {
	_, err := ChordToMIDI("H", 4)
	assert.Error(t, err)

	_, err = ChordToMIDI("", 4)
	assert.Error(t, err)
}

func TestChordToMIDI_AddedNinth(t *testing.T) {
	notes, err := ChordToMIDI("Cadd9", 4)
	require.NoError(t, err)
	// Triad plus the 9th on top.
	assert.Equal(t, []int{60, 64, 67, 74}, notes)
}
