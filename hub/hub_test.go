package hub

import (
	"testing"

	"github.com/Conceptual-Machines/magda-live-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublish_RegistrationOrder(t *testing.T) {
	h := New(zap.NewNop())

	var order []string
	h.Subscribe(KindStateChange, func(Event) { order = append(order, "first") })
	h.Subscribe(KindStateChange, func(Event) { order = append(order, "second") })
	h.Subscribe(KindStateChange, func(Event) { order = append(order, "third") })

	h.PublishState(models.ProjectState{Name: "x"})
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPublish_KindsAreIndependent(t *testing.T) {
	h := New(zap.NewNop())

	var states, analyses int
	h.Subscribe(KindStateChange, func(Event) { states++ })
	h.Subscribe(KindAnalysisUpdate, func(Event) { analyses++ })

	h.PublishState(models.ProjectState{})
	h.PublishAnalysis(models.TrackAnalysis{TrackID: "1"})
	h.PublishAnalysis(models.TrackAnalysis{TrackID: "2"})

	assert.Equal(t, 1, states)
	assert.Equal(t, 2, analyses)
}

func TestPublish_PanickingCallbackDoesNotStopOthers(t *testing.T) {
	h := New(zap.NewNop())

	var reached bool
	h.Subscribe(KindAnalysisUpdate, func(Event) { panic("bad consumer") })
	h.Subscribe(KindAnalysisUpdate, func(Event) { reached = true })

	h.PublishAnalysis(models.TrackAnalysis{TrackID: "1"})
	assert.True(t, reached)
}

func TestUnsubscribe(t *testing.T) {
	h := New(zap.NewNop())

	var calls int
	sub := h.Subscribe(KindStateChange, func(Event) { calls++ })
	h.PublishState(models.ProjectState{})
	h.Unsubscribe(sub)
	h.PublishState(models.ProjectState{})

	assert.Equal(t, 1, calls)

	// double unsubscribe is harmless
	h.Unsubscribe(sub)
}

func TestEvent_PayloadIsDetached(t *testing.T) {
	h := New(zap.NewNop())

	var got *models.ProjectState
	h.Subscribe(KindStateChange, func(ev Event) { got = ev.State })

	snap := models.ProjectState{Name: "original"}
	h.PublishState(snap)
	require.NotNil(t, got)

	snap.Name = "mutated after publish"
	assert.Equal(t, "original", got.Name)
}
