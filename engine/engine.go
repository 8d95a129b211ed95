// Package engine wires the event bus, live state store, note stream
// buffer, analysis engine and subscription hub into one running unit,
// and pumps messages between the bus and a transport.
package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Conceptual-Machines/magda-live-go/analysis"
	"github.com/Conceptual-Machines/magda-live-go/bus"
	"github.com/Conceptual-Machines/magda-live-go/config"
	"github.com/Conceptual-Machines/magda-live-go/hub"
	"github.com/Conceptual-Machines/magda-live-go/models"
	"github.com/Conceptual-Machines/magda-live-go/state"
	"github.com/Conceptual-Machines/magda-live-go/stream"
	"github.com/Conceptual-Machines/magda-live-go/transport"
)

var trackFields = []string{"name", "kind", "armed", "muted", "solo", "volume", "pan"}
var regionFields = []string{"name", "track", "start", "length", "position", "selected", "muted"}
var selectionFields = []string{"start", "end", "tracks", "regions"}

// Engine owns the live session components and the address map that
// routes inbound messages to them.
type Engine struct {
	cfg    *config.Config
	logger *zap.Logger

	Bus      *bus.EventBus
	Store    *state.Store
	Buffer   *stream.NoteWindowBuffer
	Analysis *analysis.Engine
	Hub      *hub.Hub

	now func() time.Time
}

// New builds the component graph and registers the full address map on
// the bus.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		cfg:    cfg,
		logger: logger,
		Bus:    bus.New(cfg.Engine.OutboundQueueSize, logger),
		Store:  state.New(cfg.Engine.RecentNotes, logger),
		Buffer: stream.New(cfg.Engine.TrackBufferSize, cfg.Engine.MaxBufferedEvents, logger),
		Hub:    hub.New(logger),
		now:    time.Now,
	}
	e.Analysis = analysis.NewEngine(e.Buffer, e.Store.Tempo, cfg.Engine.WindowSpan, cfg.Analysis, e.Hub, logger)

	if err := e.register(); err != nil {
		return nil, fmt.Errorf("register address map: %w", err)
	}
	return e, nil
}

// SetClock overrides the timestamp source for note ingestion. Tests only.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) register() error {
	for _, field := range trackFields {
		field := field
		if err := e.Bus.Register("track/*/"+field, func(captures []string, args []any) error {
			if len(args) < 1 {
				return fmt.Errorf("track field %s: missing value", field)
			}
			if err := e.Store.ApplyTrackField(captures[0], field, args[0]); err != nil {
				return err
			}
			e.afterStateChange()
			return nil
		}); err != nil {
			return err
		}
	}

	for _, field := range regionFields {
		field := field
		if err := e.Bus.Register("region/*/"+field, func(captures []string, args []any) error {
			if len(args) < 1 {
				return fmt.Errorf("region field %s: missing value", field)
			}
			if err := e.Store.ApplyRegionField(captures[0], field, args[0]); err != nil {
				return err
			}
			e.afterStateChange()
			return nil
		}); err != nil {
			return err
		}
	}

	for _, field := range selectionFields {
		field := field
		if err := e.Bus.Register("selection/"+field, func(_ []string, args []any) error {
			if len(args) < 1 {
				return fmt.Errorf("selection field %s: missing value", field)
			}
			if err := e.Store.ApplySelectionField(field, args[0]); err != nil {
				return err
			}
			e.afterStateChange()
			return nil
		}); err != nil {
			return err
		}
	}

	projectRoutes := map[string]string{
		"project/name":         "name",
		"transport/tempo":      "tempo",
		"transport/timesig":    "timesig",
		"transport/samplerate": "samplerate",
	}
	for address, field := range projectRoutes {
		field := field
		if err := e.Bus.Register(address, func(_ []string, args []any) error {
			if len(args) < 1 {
				return fmt.Errorf("project field %s: missing value", field)
			}
			if err := e.Store.ApplyProjectField(field, args[0]); err != nil {
				return err
			}
			e.afterStateChange()
			// Tempo changes shift the beat grid under every open window.
			if field == "tempo" {
				e.Analysis.MarkDirty()
			}
			return nil
		}); err != nil {
			return err
		}
	}

	if err := e.Bus.Register("note/on", e.handleNoteOn); err != nil {
		return err
	}
	return e.Bus.Register("note/off", e.handleNoteOff)
}

// handleNoteOn ingests [trackID, pitch, channel, velocity].
func (e *Engine) handleNoteOn(_ []string, args []any) error {
	trackID, pitch, channel, rest, err := noteArgs("note/on", args)
	if err != nil {
		return err
	}
	velocity := 100
	if len(rest) > 0 {
		v, ok := argInt(rest[0])
		if !ok || v < 0 || v > 127 {
			return fmt.Errorf("note/on: bad velocity %v", rest[0])
		}
		velocity = v
	}

	ts := e.now()
	e.Buffer.NoteOn(trackID, pitch, channel, velocity, ts)
	e.Store.AppendNote(models.NoteEvent{
		TrackID:   trackID,
		Pitch:     pitch,
		Channel:   channel,
		Velocity:  velocity,
		Timestamp: ts,
		Duration:  -1,
	})
	if e.cfg.Engine.AnalysisOnMutation {
		e.Analysis.MarkDirty()
	}
	return nil
}

// handleNoteOff ingests [trackID, pitch, channel].
func (e *Engine) handleNoteOff(_ []string, args []any) error {
	trackID, pitch, channel, _, err := noteArgs("note/off", args)
	if err != nil {
		return err
	}
	e.Buffer.NoteOff(trackID, pitch, channel, e.now())
	if e.cfg.Engine.AnalysisOnMutation {
		e.Analysis.MarkDirty()
	}
	return nil
}

func (e *Engine) afterStateChange() {
	e.Hub.PublishState(e.Store.Snapshot())
	if e.cfg.Engine.AnalysisOnMutation {
		e.Analysis.MarkDirty()
	}
}

// Run pumps transport inbound messages through the bus, bus outbound
// messages back to the transport, and drives periodic analysis. Blocks
// until ctx is cancelled or the transport's inbound channel closes.
func (e *Engine) Run(ctx context.Context, tr transport.Transport) {
	go e.Analysis.Run(ctx, e.cfg.Engine.AnalysisInterval)
	go e.pumpOutbound(ctx, tr)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-tr.Inbound():
			if !ok {
				e.logger.Info("📪 transport inbound closed")
				return
			}
			e.Bus.Dispatch(msg.Address, msg.Args)
		}
	}
}

func (e *Engine) pumpOutbound(ctx context.Context, tr transport.Transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-e.Bus.Outbound():
			if err := tr.Send(msg); err != nil {
				e.logger.Warn("⚠️ outbound send failed", zap.String("address", msg.Address), zap.Error(err))
			}
		}
	}
}

func noteArgs(op string, args []any) (trackID string, pitch, channel int, rest []any, err error) {
	if len(args) < 3 {
		return "", 0, 0, nil, fmt.Errorf("%s: want at least 3 args, got %d", op, len(args))
	}
	trackID, ok := args[0].(string)
	if !ok {
		return "", 0, 0, nil, fmt.Errorf("%s: bad track id %v", op, args[0])
	}
	pitch, ok = argInt(args[1])
	if !ok || pitch < 0 || pitch > 127 {
		return "", 0, 0, nil, fmt.Errorf("%s: bad pitch %v", op, args[1])
	}
	channel, ok = argInt(args[2])
	if !ok || channel < 0 || channel > 15 {
		return "", 0, 0, nil, fmt.Errorf("%s: bad channel %v", op, args[2])
	}
	return trackID, pitch, channel, args[3:], nil
}

func argInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
