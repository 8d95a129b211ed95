package analysis

import (
	"testing"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/models"
	"github.com/Conceptual-Machines/magda-live-go/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturePublisher struct {
	published []models.TrackAnalysis
}

func (p *capturePublisher) PublishAnalysis(a models.TrackAnalysis) {
	p.published = append(p.published, a)
}

func testEngine(t *testing.T) (*Engine, *stream.NoteWindowBuffer, *capturePublisher, time.Time) {
	t.Helper()
	buf := stream.New(64, 1024, zap.NewNop())
	pub := &capturePublisher{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tempo := func() float64 { return 120 }
	e := NewEngine(buf, tempo, 30*time.Second, acfg(), pub, zap.NewNop())
	e.SetClock(func() time.Time { return now })
	return e, buf, pub, now
}

func TestRecompute_PublishesNewAnalyses(t *testing.T) {
	e, buf, pub, now := testEngine(t)

	buf.NoteOn("1", 60, 0, 90, now.Add(-time.Second))
	buf.NoteOn("1", 64, 0, 92, now.Add(-500*time.Millisecond))
	e.Recompute()

	require.Len(t, pub.published, 1)
	assert.Equal(t, "1", pub.published[0].TrackID)
	assert.Equal(t, 2, pub.published[0].NoteCount)

	a, ok := e.Analysis("1")
	require.True(t, ok)
	assert.Equal(t, 2, a.NoteCount)
}

func TestRecompute_IdempotentWithoutMutation(t *testing.T) {
	e, buf, pub, now := testEngine(t)

	buf.NoteOn("1", 60, 0, 90, now.Add(-time.Second))
	e.Recompute()
	first, ok := e.Analysis("1")
	require.True(t, ok)

	e.Recompute()
	second, ok := e.Analysis("1")
	require.True(t, ok)

	assert.Equal(t, first, second, "recompute without mutation must be byte-identical")
	assert.Len(t, pub.published, 1, "unchanged analyses are not republished")
}

func TestRecompute_RepublishesAfterMutation(t *testing.T) {
	e, buf, pub, now := testEngine(t)

	buf.NoteOn("1", 60, 0, 90, now.Add(-time.Second))
	e.Recompute()
	buf.NoteOn("1", 72, 0, 100, now.Add(-200*time.Millisecond))
	e.Recompute()

	require.Len(t, pub.published, 2)
	assert.Equal(t, 2, pub.published[1].NoteCount)
}

func TestRecompute_WindowExcludesOldNotes(t *testing.T) {
	e, buf, _, now := testEngine(t)

	buf.NoteOn("1", 60, 0, 90, now.Add(-time.Minute)) // outside the 30s window
	buf.NoteOn("1", 64, 0, 90, now.Add(-time.Second))
	e.Recompute()

	a, ok := e.Analysis("1")
	require.True(t, ok)
	assert.Equal(t, 1, a.NoteCount)
}

func TestAnalysis_ReturnsDetachedCopies(t *testing.T) {
	e, buf, _, now := testEngine(t)

	// sparse window so opportunity tags exist
	buf.NoteOn("1", 60, 0, 90, now.Add(-time.Second))
	buf.NoteOn("1", 61, 0, 90, now.Add(-500*time.Millisecond))
	e.Recompute()

	a, ok := e.Analysis("1")
	require.True(t, ok)
	require.NotEmpty(t, a.Opportunities)
	a.Opportunities[0] = "tampered"

	again, _ := e.Analysis("1")
	assert.NotEqual(t, "tampered", again.Opportunities[0])
}

func TestAll_CoversEveryTrack(t *testing.T) {
	e, buf, _, now := testEngine(t)

	buf.NoteOn("1", 40, 0, 90, now.Add(-time.Second))
	buf.NoteOn("2", 84, 0, 90, now.Add(-time.Second))
	e.Recompute()

	all := e.All()
	require.Len(t, all, 2)
	assert.Equal(t, models.RoleBass, all["1"].MusicalRole)
	assert.Equal(t, models.RoleMelody, all["2"].MusicalRole)
}
