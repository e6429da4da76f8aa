// Package capture provides the primitives that fill the shared buffer with a
// serialized snapshot.
package capture

import (
	"errors"
	"fmt"

	"conduit-capture/internal/schema"
)

var (
	// ErrCaptureFailure is matched by every error a Source reports.
	ErrCaptureFailure = errors.New("capture failure")
	ErrNotStarted     = errors.New("capture source not started")
	ErrShortBuffer    = errors.New("destination shorter than record")
)

// Source is the external capture collaborator. Start performs one-time setup;
// Capture overwrites dst from offset 0 with the serialized record for slice
// and returns once the write is complete.
type Source interface {
	Start() error
	Capture(dst []byte, slice schema.Slice) error
	Close() error
}

// CaptureError reports a failed start or capture.
type CaptureError struct {
	Source string
	Op     string
	Slice  schema.Slice
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Op == "start" {
		return fmt.Sprintf("capture failure: %s start: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("capture failure: %s %s %s: %v", e.Source, e.Op, e.Slice, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Is reports ErrCaptureFailure as a match.
func (e *CaptureError) Is(target error) bool {
	return target == ErrCaptureFailure
}

func checkDst(source string, dst []byte, slice schema.Slice) error {
	if len(dst) < slice.Size() {
		return &CaptureError{Source: source, Op: "capture", Slice: slice,
			Err: fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(dst), slice.Size())}
	}
	return nil
}
