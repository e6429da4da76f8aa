package main

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit-capture/internal/capture"
	"conduit-capture/internal/conduit"
	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
	"conduit-capture/internal/schema"
	"conduit-capture/internal/testutil"
)

type stubSource struct {
	core []byte
	err  error
}

func (s *stubSource) Start() error { return nil }
func (s *stubSource) Close() error { return nil }

func (s *stubSource) Capture(dst []byte, slice schema.Slice) error {
	if s.err != nil {
		return &capture.CaptureError{Source: "stub", Op: "capture", Slice: slice, Err: s.err}
	}
	copy(dst, s.core[slice.Offset():slice.Offset()+slice.Size()])
	return nil
}

type memWriter struct {
	written []models.Snapshot
}

func (w *memWriter) Start(string)            {}
func (w *memWriter) Write(s models.Snapshot) { w.written = append(w.written, s) }
func (w *memWriter) Close() error            { return nil }

var _ database.Writer = (*memWriter)(nil)

func newTestCapturer(t *testing.T, src *stubSource, slices ...schema.Slice) (*capturer, *memWriter) {
	t.Helper()
	io, err := conduit.New(src)
	require.NoError(t, err)
	t.Cleanup(func() { io.Close() })
	require.NoError(t, io.Start())

	w := &memWriter{}
	return newCapturer(uuid.New(), io, src, slices, []database.Writer{w}), w
}

func TestCycleWritesOneSnapshotPerSlice(t *testing.T) {
	src := &stubSource{core: testutil.EncodedCoreInputs(t, schema.CoreInputsSize)}
	c, w := newTestCapturer(t, src, schema.SliceCore, schema.SliceDS, schema.SlicePDP, schema.SliceSystem)

	now := time.Now()
	c.cycle(now)

	require.Len(t, w.written, 4)
	for i, slice := range []schema.Slice{schema.SliceCore, schema.SliceDS, schema.SlicePDP, schema.SliceSystem} {
		assert.Equal(t, slice, w.written[i].Slice)
		assert.Equal(t, c.runID, w.written[i].RunID)
		assert.Equal(t, now, w.written[i].CapturedAt)
	}
	assert.Equal(t, int64(123_456_789), w.written[0].Timestamp)
	assert.Equal(t, uint64(4), c.captured)
	assert.Zero(t, c.errors)
}

func TestCycleCountsErrorsWithoutWriting(t *testing.T) {
	src := &stubSource{
		core: testutil.EncodedCoreInputs(t, schema.CoreInputsSize),
		err:  errors.New("driver gone"),
	}
	c, w := newTestCapturer(t, src, schema.SliceCore, schema.SlicePDP)

	c.cycle(time.Now())
	c.cycle(time.Now())

	assert.Empty(t, w.written)
	assert.Equal(t, uint64(4), c.errors)
}
