package schema_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit-capture/internal/schema"
	"conduit-capture/internal/testutil"
)

const sharedBufferSize = 100000

func TestCoreInputsRoundTrip(t *testing.T) {
	want := testutil.SampleCoreInputs()
	buf := testutil.EncodedCoreInputs(t, sharedBufferSize)

	got, err := schema.DecodeCoreInputs(buf)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSubRecordRoundTrip(t *testing.T) {
	in := testutil.SampleCoreInputs()

	t.Run("ds", func(t *testing.T) {
		buf := make([]byte, schema.DSDataSize)
		require.NoError(t, schema.EncodeDSData(buf, &in.DS))
		got, err := schema.DecodeDSData(buf)
		require.NoError(t, err)
		if diff := cmp.Diff(in.DS, got); diff != "" {
			t.Fatalf("DSData mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("pdp", func(t *testing.T) {
		buf := make([]byte, schema.PDPDataSize)
		require.NoError(t, schema.EncodePDPData(buf, &in.PDP))
		got, err := schema.DecodePDPData(buf)
		require.NoError(t, err)
		assert.Equal(t, in.PDP, got)
	})
	t.Run("sys", func(t *testing.T) {
		buf := make([]byte, schema.SystemDataSize)
		require.NoError(t, schema.EncodeSystemData(buf, &in.Sys))
		got, err := schema.DecodeSystemData(buf)
		require.NoError(t, err)
		if diff := cmp.Diff(in.Sys, got); diff != "" {
			t.Fatalf("SystemData mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("sub-records sit at their core offsets", func(t *testing.T) {
		buf := testutil.EncodedCoreInputs(t, schema.CoreInputsSize)
		ds, err := schema.DecodeDSData(buf[schema.SliceDS.Offset():])
		require.NoError(t, err)
		assert.Equal(t, in.DS.EventName, ds.EventName)
		sys, err := schema.DecodeSystemData(buf[schema.SliceSystem.Offset():])
		require.NoError(t, err)
		assert.Equal(t, in.Sys.TeamNumber, sys.TeamNumber)
	})
}

func TestFloatsRoundTripBitForBit(t *testing.T) {
	in := testutil.SampleCoreInputs()
	in.PDP.Voltage = 1e-310
	in.DS.Joysticks[0].AxisValues[0] = -1.0000001
	buf := make([]byte, schema.CoreInputsSize)
	require.NoError(t, schema.EncodeCoreInputs(buf, &in))

	got, err := schema.DecodeCoreInputs(buf)
	require.NoError(t, err)
	assert.Equal(t, in.PDP.Voltage, got.PDP.Voltage)
	assert.Equal(t, in.DS.Joysticks[0].AxisValues[0], got.DS.Joysticks[0].AxisValues[0])
}

func TestFixedString(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
		want string
	}{
		{name: "terminated", raw: []byte("ABC\x00\x00\x00"), want: "ABC"},
		{name: "no terminator fills capacity", raw: []byte("ABCDEF"), want: "ABCDEF"},
		{name: "bytes after terminator ignored", raw: []byte("AB\x00CD\x00"), want: "AB"},
		{name: "empty", raw: []byte("\x00\x00"), want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, schema.FixedString(tc.raw))
		})
	}
}

func TestJoystickNameAtFullCapacity(t *testing.T) {
	buf := make([]byte, schema.JoystickSize)
	for i := 0; i < schema.JoystickNameCapacity; i++ {
		buf[i] = 'x'
	}
	j, err := schema.DecodeJoystick(buf)
	require.NoError(t, err)
	assert.Len(t, j.Name, schema.JoystickNameCapacity)
}

func TestGameSpecificMessageKeepsNULs(t *testing.T) {
	in := testutil.SampleCoreInputs()
	buf := make([]byte, schema.DSDataSize)
	require.NoError(t, schema.EncodeDSData(buf, &in.DS))

	ds, err := schema.DecodeDSData(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'A', 0, 'B'}, ds.GameSpecificMessage)
}

func TestButtonsDecodeBitByBit(t *testing.T) {
	j := schema.Joystick{ButtonMask: 0b0000_0101, ButtonCount: 4}
	assert.Equal(t, []bool{true, false, true, false}, j.Buttons())
	assert.Equal(t, []bool{}, schema.DecodeBits(0xFF, 0))
	assert.Len(t, schema.DecodeBits(0xFFFF_FFFF, 40), 32)
}

func TestControlWordAndFaultFlags(t *testing.T) {
	in := testutil.SampleCoreInputs()
	cw := in.DS.ControlWord
	assert.True(t, cw.Enabled())
	assert.False(t, cw.Autonomous())
	assert.True(t, cw.FMSAttached())
	assert.True(t, cw.DSAttached())
	assert.False(t, cw.EStop())

	assert.Equal(t, []string{"breaker_3", "brownout"}, in.PDP.ActiveFaults())
	assert.Equal(t, []string{"has_reset"}, in.PDP.ActiveStickyFaults())
	faults := in.PDP.ChannelFaults()
	require.Len(t, faults, 24)
	assert.True(t, faults[3])
	assert.False(t, faults[4])

	flags := schema.ControlWordFlags.Decode(uint32(cw))
	assert.Len(t, flags, len(schema.ControlWordFlags))
	assert.True(t, flags["enabled"])
}

func TestDecodeCorruptTelemetry(t *testing.T) {
	valid := func(t *testing.T) []byte {
		return testutil.EncodedCoreInputs(t, schema.CoreInputsSize)
	}
	ds := schema.CoreDSOffset
	sys := schema.CoreSysOffset
	pdp := schema.CorePDPOffset

	tests := []struct {
		name   string
		mutate func(b []byte) []byte
		field  string
	}{
		{
			name:   "truncated buffer",
			mutate: func(b []byte) []byte { return b[:schema.CoreInputsSize-1] },
			field:  "*",
		},
		{
			name: "game specific message longer than field",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b[ds+132:], schema.GameSpecificMessageCapacity+1)
				return b
			},
			field: "game_specific_message",
		},
		{
			name: "serial number longer than field",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b[sys+16:], 0xFFFF)
				return b
			},
			field: "serial_number",
		},
		{
			name: "comments longer than field",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint16(b[sys+82:], schema.CommentsCapacity+10)
				return b
			},
			field: "comments",
		},
		{
			name: "axis count past capacity",
			mutate: func(b []byte) []byte {
				b[ds+160+258] = schema.MaxJoystickAxes + 1
				return b
			},
			field: "axis_count",
		},
		{
			name: "button count past mask width",
			mutate: func(b []byte) []byte {
				b[ds+160+schema.JoystickSize+320] = 33
				return b
			},
			field: "button_count",
		},
		{
			name: "negative channel count",
			mutate: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[pdp+4:], 0xFFFF_FFFF)
				return b
			},
			field: "channel_count",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schema.DecodeCoreInputs(tc.mutate(valid(t)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, schema.ErrCorruptTelemetry))
			var ce *schema.CorruptError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestDecodeShortSubRecords(t *testing.T) {
	for _, slice := range []schema.Slice{schema.SliceCore, schema.SliceDS, schema.SlicePDP, schema.SliceSystem} {
		t.Run(slice.String(), func(t *testing.T) {
			_, err := schema.Decode(slice, make([]byte, slice.Size()/2))
			assert.ErrorIs(t, err, schema.ErrCorruptTelemetry)
		})
	}
	_, err := schema.DecodeCANStatus(make([]byte, 3))
	assert.ErrorIs(t, err, schema.ErrCorruptTelemetry)
}

func TestEncodeRejectsOverlongFields(t *testing.T) {
	ds := schema.DSData{GameSpecificMessage: make([]byte, schema.GameSpecificMessageCapacity+1)}
	assert.Error(t, schema.EncodeDSData(make([]byte, schema.DSDataSize), &ds))

	sys := schema.SystemData{SerialNumber: []byte("123456789")}
	assert.Error(t, schema.EncodeSystemData(make([]byte, schema.SystemDataSize), &sys))

	assert.Error(t, schema.EncodePDPData(make([]byte, 8), &schema.PDPData{}))
}

func TestDecodeZeroBufferIsTotal(t *testing.T) {
	got, err := schema.DecodeCoreInputs(make([]byte, sharedBufferSize))
	require.NoError(t, err)
	assert.Empty(t, got.DS.EventName)
	assert.Empty(t, got.DS.GameSpecificMessage)
	assert.Empty(t, got.DS.Joysticks[0].Buttons())
}
