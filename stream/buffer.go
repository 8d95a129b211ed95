// Package stream keeps the per-track bounded history of recent note events,
// pairing note-ons with their note-offs as they arrive.
package stream

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/models"
	"go.uber.org/zap"
)

// NoteWindowBuffer holds one fixed-capacity ring of note events per track.
// Mutation is independent per track; only the track registry itself is
// shared. A process-wide cap bounds total buffered events across all tracks.
type NoteWindowBuffer struct {
	mu       sync.RWMutex
	tracks   map[string]*trackRing
	trackCap int
	maxTotal int64

	total        atomic.Int64
	spuriousOffs atomic.Uint64

	logger *zap.Logger
}

// trackRing is a fixed-capacity FIFO ring. Eviction is by arrival order:
// recency of arrival, not of access, is what matters for musical analysis.
type trackRing struct {
	mu     sync.Mutex
	events []models.NoteEvent
	head   int
	size   int
}

// New creates a buffer with the given per-track ring capacity and the
// process-wide event bound.
func New(trackCap, maxTotal int, logger *zap.Logger) *NoteWindowBuffer {
	if trackCap <= 0 {
		trackCap = 256
	}
	if maxTotal <= 0 {
		maxTotal = 16 * trackCap
	}
	return &NoteWindowBuffer{
		tracks:   map[string]*trackRing{},
		trackCap: trackCap,
		maxTotal: int64(maxTotal),
		logger:   logger,
	}
}

// NoteOn appends a new open note event (duration unset) to the track's ring,
// evicting the oldest event when the ring or the global bound is full.
// Eviction is always local to the appending track so mutation never crosses
// track locks; the global bound therefore carries at most one event of slack
// per track.
func (b *NoteWindowBuffer) NoteOn(trackID string, pitch, channel, velocity int, ts time.Time) {
	r := b.ring(trackID)

	r.mu.Lock()
	if r.size == len(r.events) || b.total.Load() >= b.maxTotal {
		if r.size > 0 {
			r.head = (r.head + 1) % len(r.events)
			r.size--
			b.total.Add(-1)
		}
	}
	r.events[(r.head+r.size)%len(r.events)] = models.NoteEvent{
		TrackID:   trackID,
		Pitch:     pitch,
		Velocity:  velocity,
		Channel:   channel,
		Timestamp: ts,
		Duration:  -1,
	}
	r.size++
	r.mu.Unlock()

	b.total.Add(1)
}

// NoteOff pairs the most recent still-open note with matching pitch and
// channel, setting its duration. A note-off with no open counterpart is a
// no-op: real MIDI streams routinely deliver spurious offs.
func (b *NoteWindowBuffer) NoteOff(trackID string, pitch, channel int, ts time.Time) {
	b.mu.RLock()
	r := b.tracks[trackID]
	b.mu.RUnlock()
	if r == nil {
		b.spurious(trackID, pitch, channel)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := r.size - 1; i >= 0; i-- {
		ev := &r.events[(r.head+i)%len(r.events)]
		if ev.Open() && ev.Pitch == pitch && ev.Channel == channel {
			d := ts.Sub(ev.Timestamp)
			if d < 0 {
				d = 0
			}
			ev.Duration = d
			return
		}
	}
	b.spurious(trackID, pitch, channel)
}

// Window returns a detached chronological copy of the track's events with
// timestamp >= since.
func (b *NoteWindowBuffer) Window(trackID string, since time.Time) []models.NoteEvent {
	b.mu.RLock()
	r := b.tracks[trackID]
	b.mu.RUnlock()
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NoteEvent, 0, r.size)
	for i := 0; i < r.size; i++ {
		ev := r.events[(r.head+i)%len(r.events)]
		if !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out
}

// TrackIDs returns the ids of every track that has buffered events.
func (b *NoteWindowBuffer) TrackIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.tracks))
	for id := range b.tracks {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the total buffered events across all tracks.
func (b *NoteWindowBuffer) Len() int { return int(b.total.Load()) }

// SpuriousOffCount reports how many note-offs found no open note.
func (b *NoteWindowBuffer) SpuriousOffCount() uint64 { return b.spuriousOffs.Load() }

func (b *NoteWindowBuffer) ring(trackID string) *trackRing {
	b.mu.RLock()
	r := b.tracks[trackID]
	b.mu.RUnlock()
	if r != nil {
		return r
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if r = b.tracks[trackID]; r == nil {
		r = &trackRing{events: make([]models.NoteEvent, b.trackCap)}
		b.tracks[trackID] = r
	}
	return r
}

func (b *NoteWindowBuffer) spurious(trackID string, pitch, channel int) {
	b.spuriousOffs.Add(1)
	b.logger.Debug("stream: spurious note-off",
		zap.String("track", trackID),
		zap.Int("pitch", pitch),
		zap.Int("channel", channel))
}
