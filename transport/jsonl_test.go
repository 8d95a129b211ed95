package transport

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Conceptual-Machines/magda-live-go/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    bus.Message
		wantErr bool
	}{
		{
			name: "float arg",
			line: `{"address":"track/3/volume","args":[0.8]}`,
			want: bus.Message{Address: "track/3/volume", Args: []any{0.8}},
		},
		{
			name: "integral numbers stay ints",
			line: `{"address":"note/on","args":["1",60,90,0]}`,
			want: bus.Message{Address: "note/on", Args: []any{"1", 60, 90, 0}},
		},
		{
			name: "bool and string args",
			line: `{"address":"track/2/muted","args":[true]}`,
			want: bus.Message{Address: "track/2/muted", Args: []any{true}},
		},
		{
			name: "no args",
			line: `{"address":"transport/play"}`,
			want: bus.Message{Address: "transport/play"},
		},
		{
			name: "id list arg",
			line: `{"address":"selection/tracks","args":[["1","4"]]}`,
			want: bus.Message{Address: "selection/tracks", Args: []any{[]any{"1", "4"}}},
		},
		{
			name:    "list of lists rejected",
			line:    `{"address":"x","args":[[["1"]]]}`,
			wantErr: true,
		},
		{
			name:    "missing address",
			line:    `{"args":[1]}`,
			wantErr: true,
		},
		{
			name:    "args not an array",
			line:    `{"address":"x","args":{"a":1}}`,
			wantErr: true,
		},
		{
			name:    "nested arg rejected",
			line:    `{"address":"x","args":[{"a":1}]}`,
			wantErr: true,
		},
		{
			name:    "broken JSON",
			line:    `{"address":`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	msg := bus.Message{Address: "note/on", Args: []any{"2", 64, 90, 0}}
	line, err := Encode(msg)
	require.NoError(t, err)

	back, err := Decode(line)
	require.NoError(t, err)
	assert.Equal(t, msg, back)
}

func TestJSONL_ReadLoopSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"address":"track/1/volume","args":[0.5]}`,
		`garbage`,
		``,
		`{"address":"track/1/pan","args":[-0.25]}`,
	}, "\n")

	jt := NewJSONL(strings.NewReader(input), io.Discard, zap.NewNop())

	var got []bus.Message
	for msg := range jt.Inbound() {
		got = append(got, msg)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "track/1/volume", got[0].Address)
	assert.Equal(t, "track/1/pan", got[1].Address)
	assert.Equal(t, uint64(1), jt.MalformedCount())
}

func TestJSONL_Send(t *testing.T) {
	var sb strings.Builder
	jt := NewJSONL(strings.NewReader(""), &sb, zap.NewNop())

	require.NoError(t, jt.Send(bus.Message{Address: "note/on", Args: []any{60, 90, 0}}))
	require.NoError(t, jt.Send(bus.Message{Address: "note/off", Args: []any{60, 0}}))

	// give the read loop a moment to drain EOF so the test is not racy
	time.Sleep(10 * time.Millisecond)

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"address":"note/on","args":[60,90,0]}`, lines[0])
	assert.Equal(t, `{"address":"note/off","args":[60,0]}`, lines[1])
}

func TestPipe(t *testing.T) {
	p := NewPipe(8)
	p.Inject("track/1/volume", 0.9)

	msg := <-p.Inbound()
	assert.Equal(t, "track/1/volume", msg.Address)
	assert.Equal(t, []any{0.9}, msg.Args)

	require.NoError(t, p.Send(bus.Message{Address: "note/on"}))
	out := <-p.Outbound()
	assert.Equal(t, "note/on", out.Address)
}
