package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedLifecycle(t *testing.T) {
	s := New()
	assert.False(t, s.Allocated())

	_, err := s.Bytes()
	assert.ErrorIs(t, err, ErrUninitializedBuffer)

	require.NoError(t, s.Allocate())
	assert.True(t, s.Allocated())
	assert.ErrorIs(t, s.Allocate(), ErrAlreadyAllocated)

	mem, err := s.Bytes()
	require.NoError(t, err)
	require.Len(t, mem, Size)
	mem[0], mem[Size-1] = 0xAB, 0xCD
	again, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), again[0])
	assert.Equal(t, byte(0xCD), again[Size-1])

	require.NoError(t, s.Release())
	assert.False(t, s.Allocated())
	assert.NoError(t, s.Release(), "second release must be a no-op")

	_, err = s.Bytes()
	assert.ErrorIs(t, err, ErrUninitializedBuffer)
}

func TestReleaseBeforeAllocate(t *testing.T) {
	assert.NoError(t, New().Release())
}

func TestReallocateAfterRelease(t *testing.T) {
	s := New()
	require.NoError(t, s.Allocate())
	require.NoError(t, s.Release())
	require.NoError(t, s.Allocate())
	mem, err := s.Bytes()
	require.NoError(t, err)
	assert.Equal(t, byte(0), mem[0], "fresh mapping is zero-filled")
	require.NoError(t, s.Release())
}
