package notegen

import (
	"fmt"
	"strings"
)

// ChordToMIDI converts a chord symbol to MIDI note numbers.
// Supports: C, Em, Am7, Cmaj7, Emin/G (slash bass), sus2/sus4, dim, aug,
// and extensions (7, maj7, 9, 11, 13, add9, add11, add13).
// Returns MIDI note numbers (0-127) ordered low to high, bass first.
func ChordToMIDI(chordSymbol string, octave int) ([]int, error) {
	baseChord := chordSymbol
	bassNote := ""
	if strings.Contains(chordSymbol, "/") {
		parts := strings.Split(chordSymbol, "/")
		if len(parts) == 2 {
			baseChord = strings.TrimSpace(parts[0])
			bassNote = strings.TrimSpace(parts[1])
		}
	}

	root, err := parseRootNote(baseChord)
	if err != nil {
		return nil, fmt.Errorf("invalid chord root: %w", err)
	}

	rootMIDI := noteToMIDI(root, octave)
	quality := parseChordQuality(baseChord)
	extensions := parseExtensions(baseChord)
	intervals := buildChordIntervals(quality, extensions)

	notes := make([]int, 0, len(intervals)+1)
	for _, interval := range intervals {
		midiNote := rootMIDI + interval
		if midiNote < 0 || midiNote > 127 {
			continue
		}
		notes = append(notes, midiNote)
	}

	// Slash bass goes one octave below the chord.
	if bassNote != "" {
		bassRoot, err := parseRootNote(bassNote)
		if err == nil {
			bassMIDI := noteToMIDI(bassRoot, octave-1)
			if bassMIDI >= 0 && bassMIDI <= 127 {
				notes = append([]int{bassMIDI}, notes...)
			}
		}
	}

	if len(notes) == 0 {
		return nil, fmt.Errorf("no valid MIDI notes generated for chord: %s", chordSymbol)
	}

	return notes, nil
}

func parseRootNote(chordSymbol string) (string, error) {
	if len(chordSymbol) == 0 {
		return "", fmt.Errorf("empty chord symbol")
	}

	root := ""
	if len(chordSymbol) > 1 && (chordSymbol[1] == '#' || chordSymbol[1] == 'b') {
		root = chordSymbol[:2]
	} else {
		root = chordSymbol[:1]
	}

	validRoots := map[string]bool{
		"C": true, "C#": true, "Db": true, "D": true, "D#": true, "Eb": true,
		"E": true, "F": true, "F#": true, "Gb": true, "G": true, "G#": true,
		"Ab": true, "A": true, "A#": true, "Bb": true, "B": true,
	}

	if !validRoots[root] {
		return "", fmt.Errorf("invalid root note: %s", root)
	}

	return root, nil
}

func parseChordQuality(chordSymbol string) string {
	chordSymbol = stripRoot(chordSymbol)

	if strings.HasPrefix(chordSymbol, "m") && !strings.HasPrefix(chordSymbol, "maj") && !strings.HasPrefix(chordSymbol, "min") {
		return "minor"
	}
	if strings.HasPrefix(chordSymbol, "min") && !strings.HasPrefix(chordSymbol, "min7") {
		return "minor"
	}
	if strings.HasPrefix(chordSymbol, "dim") {
		return "diminished"
	}
	if strings.HasPrefix(chordSymbol, "aug") {
		return "augmented"
	}
	if strings.HasPrefix(chordSymbol, "sus2") {
		return "sus2"
	}
	if strings.HasPrefix(chordSymbol, "sus4") {
		return "sus4"
	}

	return "major"
}

func parseExtensions(chordSymbol string) []string {
	extensions := []string{}
	chordSymbol = stripRoot(chordSymbol)

	if strings.Contains(chordSymbol, "maj7") {
		extensions = append(extensions, "maj7")
		chordSymbol = strings.ReplaceAll(chordSymbol, "maj7", "")
	}
	if strings.Contains(chordSymbol, "min7") {
		extensions = append(extensions, "min7")
		chordSymbol = strings.ReplaceAll(chordSymbol, "min7", "")
	}
	if strings.Contains(chordSymbol, "7") {
		extensions = append(extensions, "7")
	}
	if strings.Contains(chordSymbol, "13") {
		extensions = append(extensions, "13")
	} else if strings.Contains(chordSymbol, "11") {
		extensions = append(extensions, "11")
	} else if strings.Contains(chordSymbol, "9") {
		extensions = append(extensions, "9")
	}

	return extensions
}

func stripRoot(chordSymbol string) string {
	if len(chordSymbol) > 1 && (chordSymbol[1] == '#' || chordSymbol[1] == 'b') {
		return chordSymbol[2:]
	}
	if len(chordSymbol) > 0 {
		return chordSymbol[1:]
	}
	return chordSymbol
}

func buildChordIntervals(quality string, extensions []string) []int {
	var intervals []int

	switch quality {
	case "major":
		intervals = []int{0, 4, 7} // Root, Major 3rd, Perfect 5th
	case "minor":
		intervals = []int{0, 3, 7} // Root, Minor 3rd, Perfect 5th
	case "diminished":
		intervals = []int{0, 3, 6} // Root, Minor 3rd, Diminished 5th
	case "augmented":
		intervals = []int{0, 4, 8} // Root, Major 3rd, Augmented 5th
	case "sus2":
		intervals = []int{0, 2, 7} // Root, Major 2nd, Perfect 5th
	case "sus4":
		intervals = []int{0, 5, 7} // Root, Perfect 4th, Perfect 5th
	default:
		intervals = []int{0, 4, 7}
	}

	for _, ext := range extensions {
		switch ext {
		case "7", "min7":
			intervals = append(intervals, 10) // Minor 7th
		case "maj7":
			intervals = append(intervals, 11) // Major 7th
		case "9", "add9":
			intervals = append(intervals, 14) // Major 9th
		case "11", "add11":
			intervals = append(intervals, 17) // Perfect 11th
		case "13", "add13":
			intervals = append(intervals, 21) // Major 13th
		}
	}

	return intervals
}

func noteToMIDI(note string, octave int) int {
	noteMap := map[string]int{
		"C":  0,
		"C#": 1, "Db": 1,
		"D":  2,
		"D#": 3, "Eb": 3,
		"E":  4,
		"F":  5,
		"F#": 6, "Gb": 6,
		"G":  7,
		"G#": 8, "Ab": 8,
		"A":  9,
		"A#": 10, "Bb": 10,
		"B":  11,
	}

	offset, ok := noteMap[note]
	if !ok {
		return 60 // C4
	}

	// C4 = 60, so: (octave + 1) * 12 + offset
	return (octave+1)*12 + offset
}
