package engine

import (
	"github.com/Conceptual-Machines/magda-live-go/bus"
)

// BusSink routes scheduler note emission onto the bus as outbound
// note/on and note/off messages, for transports that deliver playback
// to the session host. It implements scheduler.Sink.
type BusSink struct {
	bus *bus.EventBus
}

// NewBusSink creates a sink that publishes through b's outbound queue.
func NewBusSink(b *bus.EventBus) *BusSink {
	return &BusSink{bus: b}
}

// EmitNoteOn enqueues an outbound note/on. Never blocks; the bus drops
// and counts when the outbound queue is full.
func (s *BusSink) EmitNoteOn(pitch, velocity, channel int) error {
	s.bus.Send("note/on", []any{pitch, velocity, channel})
	return nil
}

// EmitNoteOff enqueues an outbound note/off.
func (s *BusSink) EmitNoteOff(pitch, channel int) error {
	s.bus.Send("note/off", []any{pitch, channel})
	return nil
}
