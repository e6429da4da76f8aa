package capture

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"conduit-capture/internal/schema"
)

// FileSource reads snapshots from a file the native capture driver keeps
// up to date, typically under /dev/shm. The file holds one CoreInputs record
// at offset 0; slice captures copy the matching sub-record.
type FileSource struct {
	path string
	f    *os.File
	mem  []byte
}

// NewFileSource creates a source for the given file. Nothing is opened until
// Start.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Start maps the file read-only. Calling Start again is a no-op.
func (s *FileSource) Start() error {
	if s.mem != nil {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return &CaptureError{Source: "file", Op: "start", Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return &CaptureError{Source: "file", Op: "start", Err: err}
	}
	if info.Size() < schema.CoreInputsSize {
		f.Close()
		return &CaptureError{Source: "file", Op: "start",
			Err: fmt.Errorf("%s holds %d bytes, need %d", s.path, info.Size(), schema.CoreInputsSize)}
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, schema.CoreInputsSize, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return &CaptureError{Source: "file", Op: "start", Err: fmt.Errorf("mmap %s: %w", s.path, err)}
	}
	s.f = f
	s.mem = mem
	return nil
}

// Capture copies the current record for slice into dst.
func (s *FileSource) Capture(dst []byte, slice schema.Slice) error {
	if s.mem == nil {
		return &CaptureError{Source: "file", Op: "capture", Slice: slice, Err: ErrNotStarted}
	}
	if err := checkDst("file", dst, slice); err != nil {
		return err
	}
	off := slice.Offset()
	copy(dst, s.mem[off:off+slice.Size()])
	return nil
}

// Close unmaps and closes the file. It is safe to call more than once.
func (s *FileSource) Close() error {
	if s.mem == nil {
		return nil
	}
	err := unix.Munmap(s.mem)
	s.mem = nil
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}
