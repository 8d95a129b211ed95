package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func noop(captures []string, args []any) error { return nil }

func TestRegister_DuplicatePattern(t *testing.T) {
	b := New(16, zap.NewNop())

	require.NoError(t, b.Register("track/*/volume", noop))
	err := b.Register("track/*/volume", noop)

	var dup *DuplicateHandlerError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "track/*/volume", dup.Pattern)
}

func TestDispatch_LiteralOutranksWildcard(t *testing.T) {
	b := New(16, zap.NewNop())

	var fired string
	require.NoError(t, b.Register("track/*/volume", func(c []string, a []any) error {
		fired = "wildcard"
		return nil
	}))
	require.NoError(t, b.Register("track/3/volume", func(c []string, a []any) error {
		fired = "literal"
		return nil
	}))

	assert.True(t, b.Dispatch("track/3/volume", []any{0.8}))
	assert.Equal(t, "literal", fired)

	assert.True(t, b.Dispatch("track/7/volume", []any{0.8}))
	assert.Equal(t, "wildcard", fired)
}

func TestDispatch_EarliestLiteralSegmentWins(t *testing.T) {
	b := New(16, zap.NewNop())

	var fired string
	require.NoError(t, b.Register("*/on", func(c []string, a []any) error {
		fired = "tail-literal"
		return nil
	}))
	require.NoError(t, b.Register("note/*", func(c []string, a []any) error {
		fired = "head-literal"
		return nil
	}))

	// both patterns match; the literal at the earlier position wins
	assert.True(t, b.Dispatch("note/on", nil))
	assert.Equal(t, "head-literal", fired)
}

func TestDispatch_WildcardCapture(t *testing.T) {
	b := New(16, zap.NewNop())

	var captured []string
	var gotArgs []any
	require.NoError(t, b.Register("region/*/name", func(c []string, a []any) error {
		captured = c
		gotArgs = a
		return nil
	}))

	assert.True(t, b.Dispatch("region/r42/name", []any{"Chorus"}))
	assert.Equal(t, []string{"r42"}, captured)
	assert.Equal(t, []any{"Chorus"}, gotArgs)
}

func TestDispatch_UnmatchedCountedNotFatal(t *testing.T) {
	b := New(16, zap.NewNop())
	require.NoError(t, b.Register("track/*/volume", noop))

	assert.False(t, b.Dispatch("fx/1/wet", []any{0.3}))
	assert.False(t, b.Dispatch("track/1/volume/extra", []any{0.3}))
	assert.Equal(t, uint64(2), b.UnmatchedCount())
}

func TestDispatch_HandlerErrorCounted(t *testing.T) {
	b := New(16, zap.NewNop())
	require.NoError(t, b.Register("note/on", func(c []string, a []any) error {
		return errors.New("bad args")
	}))

	// the handler fired, so dispatch still reports true
	assert.True(t, b.Dispatch("note/on", []any{"x"}))
	assert.Equal(t, uint64(1), b.HandlerFailureCount())
}

func TestSend_QueuesAndDropsWhenFull(t *testing.T) {
	b := New(2, zap.NewNop())

	b.Send("note/on", []any{60, 90, 0})
	b.Send("note/on", []any{64, 90, 0})
	b.Send("note/on", []any{67, 90, 0}) // over capacity, dropped

	assert.Equal(t, uint64(1), b.OutboundDroppedCount())

	msg := <-b.Outbound()
	assert.Equal(t, "note/on", msg.Address)
	assert.Equal(t, []any{60, 90, 0}, msg.Args)
	assert.Len(t, b.Outbound(), 1)
}
