package bus

import "fmt"

// DuplicateHandlerError reports a second registration for the same literal
// pattern. This is a registration-time programmer error and should be treated
// as fatal at startup.
type DuplicateHandlerError struct {
	Pattern string
}

func (e *DuplicateHandlerError) Error() string {
	return fmt.Sprintf("duplicate handler for pattern %q", e.Pattern)
}

// ProtocolError wraps a malformed or unexpected inbound message. These are
// dropped and counted; a bad message never aborts the stream.
type ProtocolError struct {
	Address string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error at %q: %v", e.Address, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
