// Package transport adapts wire protocols to the engine's address-path
// messages. The engine itself is transport-agnostic; anything that can
// produce (address, args) pairs can feed it.
package transport

import (
	"github.com/Conceptual-Machines/magda-live-go/bus"
)

// Transport delivers inbound messages and accepts outbound ones.
type Transport interface {
	// Inbound yields decoded inbound messages. The channel closes when the
	// underlying connection ends.
	Inbound() <-chan bus.Message
	// Send delivers one outbound message.
	Send(msg bus.Message) error
	Close() error
}

// Pipe is an in-process transport: tests and demos inject inbound messages
// and observe outbound ones directly.
type Pipe struct {
	in  chan bus.Message
	out chan bus.Message
}

// NewPipe creates a pipe transport with the given channel capacity.
func NewPipe(buffer int) *Pipe {
	if buffer <= 0 {
		buffer = 64
	}
	return &Pipe{
		in:  make(chan bus.Message, buffer),
		out: make(chan bus.Message, buffer),
	}
}

// Inject feeds one inbound message, as if it arrived off the wire.
func (p *Pipe) Inject(address string, args ...any) {
	p.in <- bus.Message{Address: address, Args: args}
}

// Inbound implements Transport.
func (p *Pipe) Inbound() <-chan bus.Message { return p.in }

// Send implements Transport.
func (p *Pipe) Send(msg bus.Message) error {
	p.out <- msg
	return nil
}

// Outbound exposes messages the engine sent, for assertions.
func (p *Pipe) Outbound() <-chan bus.Message { return p.out }

// Close implements Transport.
func (p *Pipe) Close() error {
	close(p.in)
	return nil
}
