package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/config"
	"github.com/Conceptual-Machines/magda-live-go/metrics"
	"github.com/Conceptual-Machines/magda-live-go/models"
	"github.com/Conceptual-Machines/magda-live-go/stream"
	"go.uber.org/zap"
)

// Publisher receives per-track analyses when a recompute changed them.
type Publisher interface {
	PublishAnalysis(models.TrackAnalysis)
}

// Engine recomputes TrackAnalysis snapshots from the note window buffer.
// Recomputation is idempotent: with no intervening buffer mutation a second
// pass produces identical analyses and publishes nothing.
type Engine struct {
	buf     *stream.NoteWindowBuffer
	tempo   func() float64
	span    time.Duration
	cfg     config.AnalysisConfig
	pub     Publisher
	logger  *zap.Logger
	metrics *metrics.SentryMetrics

	mu    sync.RWMutex
	cache map[string]models.TrackAnalysis

	dirty chan struct{}
	now   func() time.Time
}

// NewEngine wires the analysis engine to a buffer and a tempo source. pub
// may be nil when nobody consumes change notifications.
func NewEngine(buf *stream.NoteWindowBuffer, tempo func() float64, span time.Duration, cfg config.AnalysisConfig, pub Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		buf:     buf,
		tempo:   tempo,
		span:    span,
		cfg:     cfg,
		pub:     pub,
		logger:  logger,
		metrics: metrics.NewSentryMetrics(),
		cache:   map[string]models.TrackAnalysis{},
		dirty:   make(chan struct{}, 1),
		now:     time.Now,
	}
}

// SetClock overrides the engine clock, for tests.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// MarkDirty requests a recompute from the engine's run loop. Non-blocking;
// redundant marks coalesce.
func (e *Engine) MarkDirty() {
	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

// Recompute re-derives the analysis for every track with buffered notes and
// publishes the ones that changed.
func (e *Engine) Recompute() {
	start := time.Now()
	since := e.now().Add(-e.span)
	bpm := e.tempo()

	tracks := e.buf.TrackIDs()
	for _, id := range tracks {
		window := e.buf.Window(id, since)
		next := AnalyzeWindow(id, window, bpm, e.span.Seconds(), e.cfg)

		e.mu.Lock()
		prev, seen := e.cache[id]
		if seen && prev.Equal(next) {
			e.mu.Unlock()
			continue
		}
		next.LastUpdated = e.now()
		e.cache[id] = next
		e.mu.Unlock()

		if e.pub != nil {
			e.pub.PublishAnalysis(next)
		}
	}
	e.metrics.RecordAnalysisPass(len(tracks), time.Since(start))
}

// Analysis returns the cached analysis copy for one track.
func (e *Engine) Analysis(trackID string) (models.TrackAnalysis, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.cache[trackID]
	if !ok {
		return models.TrackAnalysis{}, false
	}
	a.Opportunities = append([]string(nil), a.Opportunities...)
	return a, true
}

// All returns copies of every cached track analysis.
func (e *Engine) All() map[string]models.TrackAnalysis {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]models.TrackAnalysis, len(e.cache))
	for id, a := range e.cache {
		a.Opportunities = append([]string(nil), a.Opportunities...)
		out[id] = a
	}
	return out
}

// Run drives recomputation until ctx is cancelled: on a fixed interval when
// one is configured, and whenever the buffer reports a mutation.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	e.logger.Info("analysis: engine running",
		zap.Duration("interval", interval),
		zap.Duration("window", e.span))
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			e.Recompute()
		case <-e.dirty:
			e.Recompute()
		}
	}
}
