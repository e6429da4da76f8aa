package schema

import (
	"errors"
	"fmt"
)

// ErrCorruptTelemetry is matched by every decode failure caused by the buffer
// contents: truncation, declared lengths past their capacity, or counts that
// violate the layout.
var ErrCorruptTelemetry = errors.New("corrupt telemetry")

// CorruptError describes where a decode failed.
type CorruptError struct {
	Record string
	Field  string
	Offset int
	Need   int
	Have   int
	Reason string
}

func (e *CorruptError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("corrupt telemetry: %s.%s at offset %d: %s", e.Record, e.Field, e.Offset, e.Reason)
	}
	return fmt.Sprintf("corrupt telemetry: %s.%s at offset %d: need %d, have %d",
		e.Record, e.Field, e.Offset, e.Need, e.Have)
}

// Is reports ErrCorruptTelemetry as a match so callers can use errors.Is.
func (e *CorruptError) Is(target error) bool {
	return target == ErrCorruptTelemetry
}
