package scheduler

import "fmt"

// SchedulingError reports a rejected Load or Play call. The scheduler's
// state is unchanged by a rejected call.
type SchedulingError struct {
	Op     string
	Reason string
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduler %s: %s", e.Op, e.Reason)
}

// SinkError wraps a failed note emission. Note-on failures are logged and
// playback continues; note-off failures are retried once first.
type SinkError struct {
	Op      string
	Pitch   int
	Channel int
	Err     error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s failed for pitch %d ch %d: %v", e.Op, e.Pitch, e.Channel, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
