package stream

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestNoteOnOff_Pairing(t *testing.T) {
	b := New(8, 64, zap.NewNop())

	b.NoteOn("1", 60, 0, 90, at(0))
	b.NoteOff("1", 60, 0, at(250))

	events := b.Window("1", t0)
	require.Len(t, events, 1)
	assert.False(t, events[0].Open())
	assert.Equal(t, 250*time.Millisecond, events[0].Duration)
}

func TestNoteOff_PairsMostRecentOpenNote(t *testing.T) {
	b := New(8, 64, zap.NewNop())

	// two overlapping C4s on the same channel
	b.NoteOn("1", 60, 0, 90, at(0))
	b.NoteOn("1", 60, 0, 100, at(100))
	b.NoteOff("1", 60, 0, at(150))

	events := b.Window("1", t0)
	require.Len(t, events, 2)
	assert.True(t, events[0].Open(), "older note stays open")
	assert.Equal(t, 50*time.Millisecond, events[1].Duration)
}

func TestNoteOff_ChannelMismatchStaysOpen(t *testing.T) {
	b := New(8, 64, zap.NewNop())

	b.NoteOn("1", 60, 0, 90, at(0))
	b.NoteOff("1", 60, 9, at(100))

	events := b.Window("1", t0)
	require.Len(t, events, 1)
	assert.True(t, events[0].Open())
	assert.Equal(t, uint64(1), b.SpuriousOffCount())
}

func TestNoteOff_SpuriousIsNoOp(t *testing.T) {
	b := New(8, 64, zap.NewNop())
	b.NoteOn("1", 60, 0, 90, at(0))

	before := b.Len()
	b.NoteOff("1", 72, 0, at(50))   // wrong pitch
	b.NoteOff("ghost", 60, 0, at(50)) // unknown track

	assert.Equal(t, before, b.Len())
	assert.Equal(t, uint64(2), b.SpuriousOffCount())
}

func TestRing_FIFOEviction(t *testing.T) {
	b := New(4, 64, zap.NewNop())

	for i := 0; i < 6; i++ {
		b.NoteOn("1", 60+i, 0, 90, at(i*10))
	}

	events := b.Window("1", t0)
	require.Len(t, events, 4)
	assert.Equal(t, 62, events[0].Pitch, "oldest two evicted")
	assert.Equal(t, 65, events[3].Pitch)
	assert.Equal(t, 4, b.Len())
}

func TestGlobalBound_EnforcedAcrossTracks(t *testing.T) {
	b := New(8, 10, zap.NewNop())

	for track := 0; track < 5; track++ {
		for i := 0; i < 4; i++ {
			b.NoteOn(fmt.Sprintf("%d", track), 60+i, 0, 90, at(track*100+i))
		}
	}

	assert.LessOrEqual(t, b.Len(), 10)
}

func TestWindow_SinceFilterAndDetachment(t *testing.T) {
	b := New(8, 64, zap.NewNop())
	for i := 0; i < 5; i++ {
		b.NoteOn("1", 60+i, 0, 90, at(i*100))
	}

	events := b.Window("1", at(200))
	require.Len(t, events, 3)
	assert.Equal(t, 62, events[0].Pitch)

	// mutating the returned slice must not affect the buffer
	events[0].Pitch = 0
	again := b.Window("1", at(200))
	assert.Equal(t, 62, again[0].Pitch)
}

func TestConcurrentPerTrackMutation(t *testing.T) {
	b := New(64, 1024, zap.NewNop())

	var wg sync.WaitGroup
	for track := 0; track < 8; track++ {
		wg.Add(1)
		go func(track int) {
			defer wg.Done()
			id := fmt.Sprintf("%d", track)
			for i := 0; i < 100; i++ {
				b.NoteOn(id, 60, 0, 90, at(i))
				b.NoteOff(id, 60, 0, at(i+1))
			}
		}(track)
	}
	wg.Wait()

	for track := 0; track < 8; track++ {
		events := b.Window(fmt.Sprintf("%d", track), t0)
		assert.Len(t, events, 64)
		for _, ev := range events[:len(events)-1] {
			assert.False(t, ev.Open())
		}
	}
}
