// Package conduit exposes the typed telemetry readers. Each read triggers a
// capture into the shared buffer and decodes the result.
//
// Readers that share one buffer overwrite each other's snapshots; drive them
// from a single goroutine. Each reader serializes its own capture and decode.
package conduit

import (
	"fmt"
	"sync"

	"conduit-capture/internal/buffer"
	"conduit-capture/internal/capture"
	"conduit-capture/internal/schema"
)

// sliceReader captures one slice into the shared buffer and hands back the
// captured bytes for decoding.
type sliceReader struct {
	mu    sync.Mutex
	buf   *buffer.Shared
	src   capture.Source
	slice schema.Slice
}

func (r *sliceReader) read(decode func([]byte) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mem, err := r.buf.Bytes()
	if err != nil {
		return err
	}
	if err := r.src.Capture(mem, r.slice); err != nil {
		return err
	}
	if err := decode(mem[:r.slice.Size()]); err != nil {
		return fmt.Errorf("%s read: %w", r.slice, err)
	}
	return nil
}

// DsReader reads driver station data.
type DsReader struct {
	r sliceReader
}

// NewDsReader creates a driver station reader over buf.
func NewDsReader(buf *buffer.Shared, src capture.Source) *DsReader {
	return &DsReader{r: sliceReader{buf: buf, src: src, slice: schema.SliceDS}}
}

// Read captures and decodes the driver station record.
func (d *DsReader) Read() (schema.DSData, error) {
	var out schema.DSData
	err := d.r.read(func(b []byte) (err error) {
		out, err = schema.DecodeDSData(b)
		return err
	})
	return out, err
}

// PDPReader reads power distribution panel data.
type PDPReader struct {
	r sliceReader
}

// NewPDPReader creates a power distribution reader over buf.
func NewPDPReader(buf *buffer.Shared, src capture.Source) *PDPReader {
	return &PDPReader{r: sliceReader{buf: buf, src: src, slice: schema.SlicePDP}}
}

// Read captures and decodes the power distribution record.
func (p *PDPReader) Read() (schema.PDPData, error) {
	var out schema.PDPData
	err := p.r.read(func(b []byte) (err error) {
		out, err = schema.DecodePDPData(b)
		return err
	})
	return out, err
}

// SystemReader reads controller system data.
type SystemReader struct {
	r sliceReader
}

// NewSystemReader creates a system reader over buf.
func NewSystemReader(buf *buffer.Shared, src capture.Source) *SystemReader {
	return &SystemReader{r: sliceReader{buf: buf, src: src, slice: schema.SliceSystem}}
}

// Read captures and decodes the system record.
func (s *SystemReader) Read() (schema.SystemData, error) {
	var out schema.SystemData
	err := s.r.read(func(b []byte) (err error) {
		out, err = schema.DecodeSystemData(b)
		return err
	})
	return out, err
}
