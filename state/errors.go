package state

import "fmt"

// ValidationError reports an out-of-range or wrongly typed field value. The
// offending call is rejected at the boundary; the store is never left
// partially updated.
type ValidationError struct {
	Entity string
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s.%s value %v: %s", e.Entity, e.Field, e.Value, e.Reason)
}
