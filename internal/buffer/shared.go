// Package buffer owns the fixed-size region the capture primitive writes
// snapshots into.
package buffer

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Size is the exact number of bytes the capture primitive writes into.
const Size = 100000

var (
	ErrUninitializedBuffer = errors.New("shared buffer used before allocation")
	ErrAlreadyAllocated    = errors.New("shared buffer already allocated")
)

// Shared is one anonymous shared mapping of Size bytes. It is not safe for
// concurrent capture; the reader that owns it serializes access.
type Shared struct {
	mem []byte
}

// New returns an unallocated buffer handle.
func New() *Shared {
	return &Shared{}
}

// Allocate maps the region. It must be called before any capture.
func (s *Shared) Allocate() error {
	if s.mem != nil {
		return ErrAlreadyAllocated
	}
	mem, err := unix.Mmap(-1, 0, Size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to map shared buffer: %w", err)
	}
	s.mem = mem
	return nil
}

// Release unmaps the region and clears the reference. Releasing an
// unallocated buffer is a no-op.
func (s *Shared) Release() error {
	if s.mem == nil {
		return nil
	}
	mem := s.mem
	s.mem = nil
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("failed to unmap shared buffer: %w", err)
	}
	return nil
}

// Allocated reports whether the region is currently mapped.
func (s *Shared) Allocated() bool {
	return s.mem != nil
}

// Bytes returns the mapped region. The contents are only valid until the
// next capture overwrites them.
func (s *Shared) Bytes() ([]byte, error) {
	if s.mem == nil {
		return nil, ErrUninitializedBuffer
	}
	return s.mem, nil
}
