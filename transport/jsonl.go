package transport

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/Conceptual-Machines/magda-live-go/bus"
)

// JSONL speaks newline-delimited JSON messages of the form
//
//	{"address":"track/3/volume","args":[0.8]}
//
// over any reader/writer pair (stdio, TCP, a Unix socket). Malformed lines
// are counted and skipped; the stream itself stays up.
type JSONL struct {
	in        chan bus.Message
	w         io.Writer
	wmu       sync.Mutex
	closer    io.Closer
	malformed atomic.Uint64
	logger    *zap.Logger
}

// NewJSONL starts decoding r on a background goroutine and writes outbound
// messages to w. If r implements io.Closer, Close closes it.
func NewJSONL(r io.Reader, w io.Writer, logger *zap.Logger) *JSONL {
	t := &JSONL{
		in:     make(chan bus.Message, 256),
		w:      w,
		logger: logger,
	}
	if c, ok := r.(io.Closer); ok {
		t.closer = c
	}
	go t.readLoop(r)
	return t
}

// Inbound implements Transport.
func (t *JSONL) Inbound() <-chan bus.Message { return t.in }

// Send implements Transport.
func (t *JSONL) Send(msg bus.Message) error {
	line, err := Encode(msg)
	if err != nil {
		return err
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()
	_, err = io.WriteString(t.w, line+"\n")
	return err
}

// Close implements Transport.
func (t *JSONL) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// MalformedCount reports how many inbound lines failed to decode.
func (t *JSONL) MalformedCount() uint64 { return t.malformed.Load() }

func (t *JSONL) readLoop(r io.Reader) {
	defer close(t.in)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg, err := Decode(line)
		if err != nil {
			t.malformed.Add(1)
			t.logger.Warn("transport: malformed line", zap.Error(err))
			continue
		}
		t.in <- msg
	}
	if err := scanner.Err(); err != nil {
		t.logger.Warn("transport: read loop ended", zap.Error(err))
	}
}

// Decode parses one JSONL line into a message. Argument primitives are
// string, int, float and bool; integral JSON numbers decode as int so MIDI
// values keep their natural type.
func Decode(line string) (bus.Message, error) {
	if !gjson.Valid(line) {
		return bus.Message{}, fmt.Errorf("invalid JSON")
	}
	address := gjson.Get(line, "address")
	if address.Type != gjson.String || address.Str == "" {
		return bus.Message{}, fmt.Errorf("missing address")
	}

	msg := bus.Message{Address: address.Str}
	rawArgs := gjson.Get(line, "args")
	if !rawArgs.Exists() {
		return msg, nil
	}
	if !rawArgs.IsArray() {
		return bus.Message{}, fmt.Errorf("args must be an array")
	}

	var decodeErr error
	rawArgs.ForEach(func(_, v gjson.Result) bool {
		arg, err := decodeArg(v, true)
		if err != nil {
			decodeErr = err
			return false
		}
		msg.Args = append(msg.Args, arg)
		return true
	})
	if decodeErr != nil {
		return bus.Message{}, decodeErr
	}
	return msg, nil
}

// decodeArg converts one JSON value. Lists nest one level deep at most:
// selection messages carry id lists, nothing carries lists of lists.
func decodeArg(v gjson.Result, allowList bool) (any, error) {
	switch v.Type {
	case gjson.String:
		return v.Str, nil
	case gjson.Number:
		if strings.ContainsAny(v.Raw, ".eE") {
			return v.Num, nil
		}
		return int(v.Int()), nil
	case gjson.True:
		return true, nil
	case gjson.False:
		return false, nil
	case gjson.JSON:
		if !allowList || !v.IsArray() {
			return nil, fmt.Errorf("unsupported arg %s", v.Raw)
		}
		var list []any
		var elemErr error
		v.ForEach(func(_, el gjson.Result) bool {
			elem, err := decodeArg(el, false)
			if err != nil {
				elemErr = err
				return false
			}
			list = append(list, elem)
			return true
		})
		if elemErr != nil {
			return nil, elemErr
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported arg %s", v.Raw)
	}
}

// Encode renders one message as a JSONL line.
func Encode(msg bus.Message) (string, error) {
	line, err := sjson.Set("", "address", msg.Address)
	if err != nil {
		return "", err
	}
	args := msg.Args
	if args == nil {
		args = []any{}
	}
	line, err = sjson.Set(line, "args", args)
	if err != nil {
		return "", err
	}
	return line, nil
}
