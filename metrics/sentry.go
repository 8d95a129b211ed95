package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// Init configures the Sentry SDK. An empty DSN disables reporting; the
// SentryMetrics helpers then become no-ops.
func Init(dsn string, debug bool) error {
	if dsn == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Debug:            debug,
		EnableTracing:    true,
		TracesSampleRate: 0.1,
	})
}

// Flush drains pending Sentry events, typically deferred from main.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// SentryMetrics handles custom metrics for the live engine
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordDispatch records one inbound message dispatch and whether a handler fired
func (m *SentryMetrics) RecordDispatch(address string, matched bool, duration time.Duration) {
	if !m.enabled {
		return
	}

	ctx := context.Background()
	span := sentry.StartSpan(ctx, "bus.dispatch")
	defer span.Finish()

	span.SetTag("matched", fmt.Sprintf("%t", matched))
	span.SetData("address", address)
	span.SetData("duration_us", duration.Microseconds())

	if matched {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusNotFound
	}
	span.Description = fmt.Sprintf("Dispatch: %s", address)
}

// RecordPlaybackRun records one scheduler playback run
func (m *SentryMetrics) RecordPlaybackRun(ctx context.Context, noteCount int, bpm float64, duration time.Duration, stopped bool) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "scheduler.playback")
	defer span.Finish()

	span.SetTag("stopped", fmt.Sprintf("%t", stopped))
	span.SetData("note_count", noteCount)
	span.SetData("bpm", bpm)
	span.SetData("duration_ms", duration.Milliseconds())

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Playback: %d notes at %.1f BPM", noteCount, bpm)
}

// RecordAnalysisPass records one full analysis recompute pass
func (m *SentryMetrics) RecordAnalysisPass(trackCount int, duration time.Duration) {
	if !m.enabled {
		return
	}

	ctx := context.Background()
	span := sentry.StartSpan(ctx, "analysis.recompute")
	defer span.Finish()

	span.SetData("track_count", trackCount)
	span.SetData("duration_us", duration.Microseconds())

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Analysis Pass: %d tracks", trackCount)
}

// CaptureError reports an error that was swallowed to keep a loop alive
// (handler panics, sink failures, malformed messages).
func (m *SentryMetrics) CaptureError(err error) {
	if !m.enabled || err == nil {
		return
	}
	sentry.CaptureException(err)
}
