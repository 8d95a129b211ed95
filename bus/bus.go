// Package bus decouples the wire format of inbound and outbound address-path
// messages from the rest of the live engine. The bus holds no session state;
// registered handlers mutate the state store and note buffers.
package bus

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/metrics"
	"go.uber.org/zap"
)

// Handler processes one dispatched message. captures holds the concrete
// segments matched by wildcard positions of the registered pattern, in order.
// A handler error is counted and logged, never fatal to the stream.
type Handler func(captures []string, args []any) error

// Message is one outbound address-path message queued for the transport
// adapter.
type Message struct {
	Address string `json:"address"`
	Args    []any  `json:"args"`
}

type route struct {
	pattern  string
	segments []string
	handler  Handler
	seq      int
}

// EventBus routes inbound messages to registered handlers and queues outbound
// messages for the transport adapter.
type EventBus struct {
	mu     sync.RWMutex
	routes []*route
	seen   map[string]struct{}

	outbound chan Message

	unmatched       atomic.Uint64
	handlerFailures atomic.Uint64
	outboundDropped atomic.Uint64

	logger  *zap.Logger
	metrics *metrics.SentryMetrics
}

// New creates an event bus with the given outbound queue capacity.
func New(outboundQueue int, logger *zap.Logger) *EventBus {
	if outboundQueue <= 0 {
		outboundQueue = 1024
	}
	return &EventBus{
		seen:     map[string]struct{}{},
		outbound: make(chan Message, outboundQueue),
		logger:   logger,
		metrics:  metrics.NewSentryMetrics(),
	}
}

// Register binds a handler to an address pattern. A pattern is a slash
// delimited path; a "*" segment matches exactly one concrete segment.
// Registering the same literal pattern twice is a startup programming error.
func (b *EventBus) Register(pattern string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, dup := b.seen[pattern]; dup {
		return &DuplicateHandlerError{Pattern: pattern}
	}
	b.seen[pattern] = struct{}{}
	b.routes = append(b.routes, &route{
		pattern:  pattern,
		segments: strings.Split(pattern, "/"),
		handler:  handler,
		seq:      len(b.routes),
	})
	return nil
}

// Dispatch routes an inbound message to the most specific matching handler
// and reports whether one fired. Exact segments outrank wildcards at the same
// position; full ties go to the first registered pattern. Addresses with no
// matching handler are counted and dropped: the DAW protocol surface is wider
// than what the engine consumes.
func (b *EventBus) Dispatch(address string, args []any) bool {
	start := time.Now()
	segments := strings.Split(address, "/")

	b.mu.RLock()
	var best *route
	var bestCaptures []string
	for _, r := range b.routes {
		captures, ok := match(r.segments, segments)
		if !ok {
			continue
		}
		if best == nil || moreSpecific(r, best) {
			best = r
			bestCaptures = captures
		}
	}
	b.mu.RUnlock()

	if best == nil {
		b.unmatched.Add(1)
		b.logger.Debug("bus: no handler for address", zap.String("address", address))
		b.metrics.RecordDispatch(address, false, time.Since(start))
		return false
	}

	if err := best.handler(bestCaptures, args); err != nil {
		b.handlerFailures.Add(1)
		b.logger.Warn("bus: handler failed",
			zap.String("address", address),
			zap.String("pattern", best.pattern),
			zap.Error(err))
		b.metrics.CaptureError(&ProtocolError{Address: address, Err: err})
	}
	b.metrics.RecordDispatch(address, true, time.Since(start))
	return true
}

// Send enqueues an outbound message for delivery by the transport adapter.
// The queue is bounded; when the transport cannot keep up the message is
// dropped and counted rather than blocking the caller.
func (b *EventBus) Send(address string, args []any) {
	msg := Message{Address: address, Args: args}
	select {
	case b.outbound <- msg:
	default:
		b.outboundDropped.Add(1)
		b.logger.Warn("bus: outbound queue full, dropping message",
			zap.String("address", address))
	}
}

// Outbound exposes the queued outbound messages to the transport adapter.
func (b *EventBus) Outbound() <-chan Message {
	return b.outbound
}

// UnmatchedCount reports how many inbound addresses found no handler.
func (b *EventBus) UnmatchedCount() uint64 { return b.unmatched.Load() }

// HandlerFailureCount reports how many handler invocations returned an error.
func (b *EventBus) HandlerFailureCount() uint64 { return b.handlerFailures.Load() }

// OutboundDroppedCount reports how many outbound messages were dropped.
func (b *EventBus) OutboundDroppedCount() uint64 { return b.outboundDropped.Load() }

// match reports whether pattern segments match address segments, returning
// the concrete values captured by wildcard positions.
func match(pattern, address []string) ([]string, bool) {
	if len(pattern) != len(address) {
		return nil, false
	}
	var captures []string
	for i, p := range pattern {
		if p == "*" {
			captures = append(captures, address[i])
			continue
		}
		if p != address[i] {
			return nil, false
		}
	}
	return captures, true
}

// moreSpecific reports whether a should win over b for the same address:
// literal beats wildcard at the earliest differing position, and the earlier
// registration wins a full tie.
func moreSpecific(a, b *route) bool {
	for i := range a.segments {
		aw := a.segments[i] == "*"
		bw := b.segments[i] == "*"
		if aw != bw {
			return bw // b has the wildcard here, a is more specific
		}
	}
	return a.seq < b.seq
}
