package conduit

import (
	"fmt"

	"conduit-capture/internal/buffer"
	"conduit-capture/internal/capture"
	"conduit-capture/internal/schema"
)

// WPILibIO is the full telemetry reader. It owns the shared buffer for its
// whole lifetime: New allocates it and Close releases it.
type WPILibIO struct {
	buf     *buffer.Shared
	src     capture.Source
	started bool
	r       sliceReader
}

// New allocates the shared buffer and returns a reader capturing from src.
func New(src capture.Source) (*WPILibIO, error) {
	buf := buffer.New()
	if err := buf.Allocate(); err != nil {
		return nil, err
	}
	return &WPILibIO{
		buf: buf,
		src: src,
		r:   sliceReader{buf: buf, src: src, slice: schema.SliceCore},
	}, nil
}

// Buffer returns the owned shared buffer so slice readers can share it.
func (w *WPILibIO) Buffer() *buffer.Shared {
	return w.buf
}

// Start initializes the capture source. Only the first successful call does
// any work.
func (w *WPILibIO) Start() error {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()
	if w.started {
		return nil
	}
	if err := w.src.Start(); err != nil {
		return err
	}
	w.started = true
	return nil
}

// CaptureData runs one capture and decode cycle.
func (w *WPILibIO) CaptureData() (schema.CoreInputs, error) {
	var out schema.CoreInputs
	err := w.r.read(func(b []byte) (err error) {
		out, err = schema.DecodeCoreInputs(b)
		return err
	})
	return out, err
}

// Close releases the shared buffer and closes the source. Further calls are
// no-ops.
func (w *WPILibIO) Close() error {
	w.r.mu.Lock()
	defer w.r.mu.Unlock()
	if !w.buf.Allocated() {
		return nil
	}
	if err := w.buf.Release(); err != nil {
		return err
	}
	if err := w.src.Close(); err != nil {
		return fmt.Errorf("failed to close capture source: %w", err)
	}
	return nil
}
