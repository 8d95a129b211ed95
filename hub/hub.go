// Package hub fans state and analysis changes out to registered consumers.
// Notification is synchronous and ordered: subscribers run in registration
// order on the goroutine that produced the event, and one failing callback
// never starves the rest.
package hub

import (
	"fmt"
	"sync"

	"github.com/Conceptual-Machines/magda-live-go/metrics"
	"github.com/Conceptual-Machines/magda-live-go/models"
	"go.uber.org/zap"
)

// Kind selects which events a subscription receives.
type Kind int

const (
	KindStateChange Kind = iota
	KindAnalysisUpdate
)

func (k Kind) String() string {
	switch k {
	case KindStateChange:
		return "state_change"
	case KindAnalysisUpdate:
		return "analysis_update"
	default:
		return "unknown"
	}
}

// Event carries either a project snapshot or a track analysis, depending on
// Kind. Both payloads are detached copies; callbacks may keep them.
type Event struct {
	Kind     Kind
	State    *models.ProjectState
	Analysis *models.TrackAnalysis
}

// Callback handles one event. Panics are recovered, reported and counted.
type Callback func(Event)

// Subscription identifies one registered callback for Unsubscribe.
type Subscription struct {
	kind Kind
	id   uint64
}

type subscriber struct {
	id uint64
	cb Callback
}

// Hub is the subscription registry.
type Hub struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[Kind][]subscriber
	logger  *zap.Logger
	metrics *metrics.SentryMetrics
}

// New creates an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		subs:    map[Kind][]subscriber{},
		logger:  logger,
		metrics: metrics.NewSentryMetrics(),
	}
}

// Subscribe registers a callback for one event kind and returns a handle for
// Unsubscribe.
func (h *Hub) Subscribe(kind Kind, cb Callback) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	h.subs[kind] = append(h.subs[kind], subscriber{id: h.nextID, cb: cb})
	return Subscription{kind: kind, id: h.nextID}
}

// Unsubscribe removes a subscription. Unknown handles are ignored.
func (h *Hub) Unsubscribe(sub Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.subs[sub.kind]
	for i, s := range list {
		if s.id == sub.id {
			h.subs[sub.kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// PublishState notifies state-change subscribers with a snapshot copy.
func (h *Hub) PublishState(snap models.ProjectState) {
	h.publish(Event{Kind: KindStateChange, State: &snap})
}

// PublishAnalysis notifies analysis-update subscribers.
func (h *Hub) PublishAnalysis(a models.TrackAnalysis) {
	h.publish(Event{Kind: KindAnalysisUpdate, Analysis: &a})
}

func (h *Hub) publish(ev Event) {
	h.mu.RLock()
	list := append([]subscriber(nil), h.subs[ev.Kind]...)
	h.mu.RUnlock()

	for _, s := range list {
		h.invoke(s, ev)
	}
}

func (h *Hub) invoke(s subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("hub: %s subscriber %d panicked: %v", ev.Kind, s.id, r)
			h.logger.Error("hub: subscriber panic",
				zap.Stringer("kind", ev.Kind),
				zap.Uint64("subscriber", s.id),
				zap.Any("panic", r))
			h.metrics.CaptureError(err)
		}
	}()
	s.cb(ev)
}
