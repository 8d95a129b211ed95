// Package midiout emits scheduled notes to a hardware or virtual MIDI
// output port via rtmidi.
package midiout

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.uber.org/zap"
)

// DeviceSink sends note on/off messages to a MIDI output port. It
// implements scheduler.Sink.
type DeviceSink struct {
	drv    *rtmididrv.Driver
	port   drivers.Out
	send   func(msg midi.Message) error
	logger *zap.Logger
}

// Open connects to the first output port whose name contains portName
// (case-insensitive). An empty portName selects the first available port.
func Open(portName string, logger *zap.Logger) (*DeviceSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	outs, err := drv.Outs()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("list midi outputs: %w", err)
	}
	if len(outs) == 0 {
		drv.Close()
		return nil, fmt.Errorf("no midi output ports available")
	}

	var port drivers.Out
	if portName == "" {
		port = outs[0]
	} else {
		for _, out := range outs {
			if strings.Contains(strings.ToLower(out.String()), strings.ToLower(portName)) {
				port = out
				break
			}
		}
		if port == nil {
			drv.Close()
			return nil, fmt.Errorf("no midi output port matching %q", portName)
		}
	}

	if err := port.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open midi port %q: %w", port.String(), err)
	}

	send, err := midi.SendTo(port)
	if err != nil {
		port.Close()
		drv.Close()
		return nil, fmt.Errorf("send to midi port %q: %w", port.String(), err)
	}

	logger.Info("🎹 MIDI output connected", zap.String("port", port.String()))

	return &DeviceSink{
		drv:    drv,
		port:   port,
		send:   send,
		logger: logger,
	}, nil
}

// EmitNoteOn sends a note-on message on the given channel.
func (d *DeviceSink) EmitNoteOn(pitch, velocity, channel int) error {
	return d.send(midi.NoteOn(clampChannel(channel), clamp7(pitch), clamp7(velocity)))
}

// EmitNoteOff sends a note-off message on the given channel.
func (d *DeviceSink) EmitNoteOff(pitch, channel int) error {
	return d.send(midi.NoteOff(clampChannel(channel), clamp7(pitch)))
}

// Silence sends All Notes Off on every channel. Used after an aborted
// playback run to make sure nothing keeps sounding.
func (d *DeviceSink) Silence() {
	for ch := uint8(0); ch < 16; ch++ {
		if err := d.send(midi.ControlChange(ch, midi.AllNotesOff, midi.Off)); err != nil {
			d.logger.Warn("⚠️ all-notes-off failed", zap.Uint8("channel", ch), zap.Error(err))
			return
		}
	}
}

// Close releases the port and the rtmidi driver.
func (d *DeviceSink) Close() error {
	var err error
	if d.port != nil {
		err = d.port.Close()
	}
	d.drv.Close()
	return err
}

func clamp7(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}

func clampChannel(ch int) uint8 {
	if ch < 0 {
		return 0
	}
	if ch > 15 {
		return 15
	}
	return uint8(ch)
}
