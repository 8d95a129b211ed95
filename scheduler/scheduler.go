// Package scheduler drives timed note emission against a musical beat grid.
// One BeatScheduler owns one playback run at a time; the playback loop is the
// only intentionally sleeping code in the engine and is interruptible within
// a few milliseconds of Stop being called.
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/metrics"
	"github.com/Conceptual-Machines/magda-live-go/models"
	"go.uber.org/zap"
)

// Sink receives the scheduler's note emissions. Implementations may fail per
// call; a failed note-on is logged and playback continues, a failed note-off
// is retried once to bound the risk of stuck notes.
type Sink interface {
	EmitNoteOn(pitch, velocity, channel int) error
	EmitNoteOff(pitch, channel int) error
}

// State is the scheduler lifecycle: Idle -> Scheduled -> Playing ->
// (Stopped | Completed). Completed is equivalent to Stopped for reload
// purposes.
type State int32

const (
	StateIdle State = iota
	StateScheduled
	StatePlaying
	StateStopped
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// timelineEvent is one emission on the wall-clock timeline of a run.
type timelineEvent struct {
	at       time.Duration
	on       bool
	pitch    int
	velocity int
	channel  int
}

// BeatScheduler converts beat-positioned notes into timed note-on/note-off
// emission at a fixed tempo.
type BeatScheduler struct {
	mu      sync.Mutex
	state   State
	notes   []models.ScheduledNote
	bpm     float64
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped *sync.Once

	sink    Sink
	logger  *zap.Logger
	metrics *metrics.SentryMetrics
}

// New creates an idle scheduler emitting into sink.
func New(sink Sink, logger *zap.Logger) *BeatScheduler {
	return &BeatScheduler{
		sink:    sink,
		logger:  logger,
		metrics: metrics.NewSentryMetrics(),
	}
}

// State returns the current lifecycle state.
func (s *BeatScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load stages a note list for playback at the given tempo. Valid only while
// no run is staged or playing; a bad tempo or empty list is rejected with no
// state change.
func (s *BeatScheduler) Load(notes []models.ScheduledNote, bpm float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateStopped, StateCompleted:
	default:
		return &SchedulingError{Op: "load", Reason: "scheduler is " + s.state.String()}
	}
	if bpm <= 0 {
		return &SchedulingError{Op: "load", Reason: "bpm must be positive"}
	}
	if len(notes) == 0 {
		return &SchedulingError{Op: "load", Reason: "empty note list"}
	}

	s.notes = append([]models.ScheduledNote(nil), notes...)
	s.bpm = bpm
	s.state = StateScheduled
	return nil
}

// Play starts the staged run on its own goroutine.
func (s *BeatScheduler) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateScheduled {
		return &SchedulingError{Op: "play", Reason: "scheduler is " + s.state.String()}
	}

	s.state = StatePlaying
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.stopped = &sync.Once{}

	events := buildTimeline(s.notes, s.bpm)
	go s.run(events, s.stopCh, s.doneCh, len(s.notes), s.bpm)
	return nil
}

// Stop halts playback. Safe from any goroutine in any state; a no-op when
// nothing is playing. When it returns, no further note-on will be emitted,
// and note-offs for currently sounding notes have been attempted.
func (s *BeatScheduler) Stop() {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateStopped, StateCompleted:
		s.mu.Unlock()
		return
	case StateScheduled:
		// loaded but never started; a racing Play will now refuse
		s.state = StateStopped
		s.mu.Unlock()
		return
	}

	stopped, stopCh, done := s.stopped, s.stopCh, s.doneCh
	s.mu.Unlock()

	stopped.Do(func() { close(stopCh) })
	<-done
}

// run walks the precomputed timeline, sleeping between events and aborting
// within one select of the stop channel closing.
func (s *BeatScheduler) run(events []timelineEvent, stopCh, doneCh chan struct{}, noteCount int, bpm float64) {
	start := time.Now()
	wasStopped := false
	sounding := map[[2]int]int{}

	defer func() {
		s.mu.Lock()
		if wasStopped {
			s.state = StateStopped
		} else {
			s.state = StateCompleted
		}
		s.mu.Unlock()
		close(doneCh)
		s.metrics.RecordPlaybackRun(context.Background(), noteCount, bpm, time.Since(start), wasStopped)
	}()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for _, ev := range events {
		if delay := ev.at - time.Since(start); delay > 0 {
			timer.Reset(delay)
			select {
			case <-stopCh:
				if !timer.Stop() {
					<-timer.C
				}
				s.releaseSounding(sounding)
				wasStopped = true
				return
			case <-timer.C:
			}
		} else {
			// still honor a stop that raced in while we were not sleeping
			select {
			case <-stopCh:
				s.releaseSounding(sounding)
				wasStopped = true
				return
			default:
			}
		}

		key := [2]int{ev.pitch, ev.channel}
		if ev.on {
			if err := s.sink.EmitNoteOn(ev.pitch, ev.velocity, ev.channel); err != nil {
				// one bad note must not abort the sequence
				s.logger.Warn("scheduler: note-on failed",
					zap.Int("pitch", ev.pitch), zap.Error(err))
				s.metrics.CaptureError(&SinkError{Op: "note_on", Pitch: ev.pitch, Channel: ev.channel, Err: err})
				continue
			}
			sounding[key]++
		} else {
			if sounding[key] > 0 {
				sounding[key]--
			}
			s.emitOffWithRetry(ev.pitch, ev.channel)
		}
	}
	s.logger.Debug("scheduler: run completed", zap.Int("notes", noteCount))
}

// releaseSounding best-effort emits note-offs for everything still sounding,
// so a stopped run does not leave stuck notes.
func (s *BeatScheduler) releaseSounding(sounding map[[2]int]int) {
	for key, n := range sounding {
		for i := 0; i < n; i++ {
			s.emitOffWithRetry(key[0], key[1])
		}
	}
}

func (s *BeatScheduler) emitOffWithRetry(pitch, channel int) {
	if err := s.sink.EmitNoteOff(pitch, channel); err != nil {
		if err = s.sink.EmitNoteOff(pitch, channel); err != nil {
			s.logger.Warn("scheduler: note-off failed after retry",
				zap.Int("pitch", pitch), zap.Error(err))
			s.metrics.CaptureError(&SinkError{Op: "note_off", Pitch: pitch, Channel: channel, Err: err})
		}
	}
}

// buildTimeline expands notes into wall-clock emission events. Notes are
// stable-sorted by start beat (ties keep insertion order); at equal times a
// note-off emits before a note-on so back-to-back notes hand over cleanly.
func buildTimeline(notes []models.ScheduledNote, bpm float64) []timelineEvent {
	sorted := append([]models.ScheduledNote(nil), notes...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartBeats < sorted[j].StartBeats
	})

	secondsPerBeat := 60 / bpm
	events := make([]timelineEvent, 0, 2*len(sorted))
	for _, n := range sorted {
		on := time.Duration(n.StartBeats * secondsPerBeat * float64(time.Second))
		off := time.Duration((n.StartBeats + n.LengthBeats) * secondsPerBeat * float64(time.Second))
		events = append(events,
			timelineEvent{at: on, on: true, pitch: n.Pitch, velocity: n.Velocity, channel: n.Channel},
			timelineEvent{at: off, pitch: n.Pitch, channel: n.Channel},
		)
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return !events[i].on && events[j].on
	})
	return events
}
