package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit-capture/internal/can"
	"conduit-capture/internal/schema"
	"conduit-capture/internal/testutil"
)

func writeSnapshotFile(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conduit.shm")
	require.NoError(t, os.WriteFile(path, testutil.EncodedCoreInputs(t, size), 0o644))
	return path
}

func TestFileSourceCapturesEachSlice(t *testing.T) {
	src := NewFileSource(writeSnapshotFile(t, schema.CoreInputsSize))
	require.NoError(t, src.Start())
	require.NoError(t, src.Start(), "second start is a no-op")
	t.Cleanup(func() { src.Close() })

	want := testutil.SampleCoreInputs()
	dst := make([]byte, 100000)

	require.NoError(t, src.Capture(dst, schema.SliceCore))
	core, err := schema.DecodeCoreInputs(dst)
	require.NoError(t, err)
	assert.Equal(t, want.Timestamp, core.Timestamp)

	require.NoError(t, src.Capture(dst, schema.SliceDS))
	ds, err := schema.DecodeDSData(dst)
	require.NoError(t, err)
	assert.Equal(t, want.DS.EventName, ds.EventName)

	require.NoError(t, src.Capture(dst, schema.SlicePDP))
	pdp, err := schema.DecodePDPData(dst)
	require.NoError(t, err)
	assert.Equal(t, want.PDP, pdp)

	require.NoError(t, src.Capture(dst, schema.SliceSystem))
	sys, err := schema.DecodeSystemData(dst)
	require.NoError(t, err)
	assert.Equal(t, want.Sys.CANStatus, sys.CANStatus)
}

func TestFileSourceFailures(t *testing.T) {
	t.Run("capture before start", func(t *testing.T) {
		src := NewFileSource("/nonexistent")
		err := src.Capture(make([]byte, schema.CoreInputsSize), schema.SliceCore)
		assert.ErrorIs(t, err, ErrCaptureFailure)
		assert.ErrorIs(t, err, ErrNotStarted)
	})
	t.Run("missing file", func(t *testing.T) {
		err := NewFileSource(filepath.Join(t.TempDir(), "missing")).Start()
		assert.ErrorIs(t, err, ErrCaptureFailure)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("short file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short")
		require.NoError(t, os.WriteFile(path, make([]byte, 10), 0o644))
		assert.ErrorIs(t, NewFileSource(path).Start(), ErrCaptureFailure)
	})
	t.Run("short destination", func(t *testing.T) {
		src := NewFileSource(writeSnapshotFile(t, schema.CoreInputsSize))
		require.NoError(t, src.Start())
		defer src.Close()
		err := src.Capture(make([]byte, 16), schema.SliceDS)
		assert.ErrorIs(t, err, ErrShortBuffer)
		var ce *CaptureError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, schema.SliceDS, ce.Slice)
	})
	t.Run("close twice", func(t *testing.T) {
		src := NewFileSource(writeSnapshotFile(t, schema.CoreInputsSize))
		require.NoError(t, src.Start())
		require.NoError(t, src.Close())
		assert.NoError(t, src.Close())
	})
}

const hostIPOutput = `5: vcan0: <NOARP,UP,LOWER_UP> mtu 72 qdisc noqueue state UNKNOWN mode DEFAULT group default qlen 1000
    link/can  promiscuity 0 minmtu 0 maxmtu 0
    can state ERROR-ACTIVE (berr-counter tx 3 rx 4) restart-ms 0
	  bitrate 1000000 sample-point 0.750
	  re-started bus-errors arbit-lost error-warn error-pass bus-off
	  0          0          0          0          0          1
    RX: bytes  packets  errors  dropped overrun mcast
    0          0        0       0       0       0
    TX: bytes  packets  errors  dropped carrier collsns
    0          0        0       2       0       0
`

func newTestHostSource(t *testing.T) *HostSource {
	t.Helper()
	clock := time.Unix(1_760_000_000, 0)
	now := func() time.Time {
		clock = clock.Add(20 * time.Millisecond)
		return clock
	}
	probe := can.NewProbeWithRunner("vcan0", func(string, ...string) ([]byte, error) {
		return []byte(hostIPOutput), nil
	}, now)

	src := NewHostSource(HostConfig{TeamNumber: 6328, ThermalZone: "/thermal"}).WithProbe(probe)
	src.now = now
	src.readFile = func(path string) ([]byte, error) {
		assert.Equal(t, "/thermal", path)
		return []byte("47250\n"), nil
	}
	src.hostname = func() (string, error) { return "bench-rio", nil }
	return src
}

func TestHostSourceCapture(t *testing.T) {
	src := newTestHostSource(t)
	dst := make([]byte, schema.CoreInputsSize)

	err := src.Capture(dst, schema.SliceCore)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, src.Start())
	require.NoError(t, src.Capture(dst, schema.SliceCore))

	in, err := schema.DecodeCoreInputs(dst)
	require.NoError(t, err)
	assert.Positive(t, in.Timestamp)
	assert.Equal(t, int32(6328), in.Sys.TeamNumber)
	assert.Equal(t, 47.25, in.Sys.CPUTemp)
	assert.Equal(t, []byte("bench-rio"), in.Sys.Comments)
	assert.True(t, in.Sys.SystemTimeValid)
	assert.Equal(t, uint32(1), in.Sys.CANStatus.BusOffCount)
	assert.Equal(t, uint32(2), in.Sys.CANStatus.TxFullCount)
	assert.Equal(t, uint32(4), in.Sys.CANStatus.ReceiveErrorCount)
	assert.Equal(t, uint32(3), in.Sys.CANStatus.TransmitErrorCount)

	stats, ok := src.LastInterfaceStats()
	require.True(t, ok)
	assert.Equal(t, "vcan0", stats.Interface)

	require.NoError(t, src.Capture(dst, schema.SliceSystem))
	sys, err := schema.DecodeSystemData(dst)
	require.NoError(t, err)
	assert.Equal(t, int32(6328), sys.TeamNumber)

	assert.NoError(t, src.Close())
}

func TestHostSourceTimestampsAdvance(t *testing.T) {
	src := newTestHostSource(t)
	require.NoError(t, src.Start())
	dst := make([]byte, schema.CoreInputsSize)

	var last int64 = -1
	for i := 0; i < 3; i++ {
		require.NoError(t, src.Capture(dst, schema.SliceCore))
		in, err := schema.DecodeCoreInputs(dst)
		require.NoError(t, err)
		assert.Greater(t, in.Timestamp, last)
		last = in.Timestamp
	}
}

func TestHostSourceWithoutCAN(t *testing.T) {
	src := NewHostSource(HostConfig{TeamNumber: 1})
	src.readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	require.NoError(t, src.Start())
	dst := make([]byte, schema.CoreInputsSize)
	require.NoError(t, src.Capture(dst, schema.SliceCore))
	in, err := schema.DecodeCoreInputs(dst)
	require.NoError(t, err)
	assert.Zero(t, in.Sys.CANStatus)
	assert.Zero(t, in.Sys.CPUTemp)
	_, ok := src.LastInterfaceStats()
	assert.False(t, ok)
}
