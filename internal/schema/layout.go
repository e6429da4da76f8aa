package schema

import "fmt"

// Capacities of the fixed arrays in the wire layout
const (
	JoystickNameCapacity = 256
	MaxJoystickAxes      = 12
	MaxJoystickButtons   = 32
	MaxJoystickPOVs      = 12
	MaxJoysticks         = 6

	EventNameCapacity           = 64
	GameSpecificMessageCapacity = 64

	MaxPDPChannels = 24

	SerialNumberCapacity = 8
	CommentsCapacity     = 64
)

// Encoded record sizes in bytes. Records are little-endian with natural
// alignment, and each record is padded to a multiple of its widest member.
const (
	JoystickSize   = 356
	DSDataSize     = 2296
	PDPDataSize    = 256
	CANStatusSize  = 20
	SystemDataSize = 240
	CoreInputsSize = 2800
)

// Offsets of the sub-records inside an encoded CoreInputs
const (
	CoreDSOffset  = 8
	CorePDPOffset = 2304
	CoreSysOffset = 2560
)

// Slice names one of the records a capture can target.
type Slice int

const (
	SliceCore Slice = iota
	SliceDS
	SlicePDP
	SliceSystem
)

// String returns the short name used in topics, tables and logs.
func (s Slice) String() string {
	switch s {
	case SliceCore:
		return "core"
	case SliceDS:
		return "ds"
	case SlicePDP:
		return "pdp"
	case SliceSystem:
		return "sys"
	}
	return "unknown"
}

// Size returns the encoded size of the record the slice targets.
func (s Slice) Size() int {
	switch s {
	case SliceCore:
		return CoreInputsSize
	case SliceDS:
		return DSDataSize
	case SlicePDP:
		return PDPDataSize
	case SliceSystem:
		return SystemDataSize
	}
	return 0
}

// Offset returns where the slice's record sits inside an encoded CoreInputs.
func (s Slice) Offset() int {
	switch s {
	case SliceDS:
		return CoreDSOffset
	case SlicePDP:
		return CorePDPOffset
	case SliceSystem:
		return CoreSysOffset
	}
	return 0
}

// ParseSlice maps a short name back to its Slice.
func ParseSlice(name string) (Slice, bool) {
	for _, s := range []Slice{SliceCore, SliceDS, SlicePDP, SliceSystem} {
		if s.String() == name {
			return s, true
		}
	}
	return SliceCore, false
}

// MarshalText encodes the slice by its short name.
func (s Slice) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the short names produced by MarshalText.
func (s *Slice) UnmarshalText(text []byte) error {
	v, ok := ParseSlice(string(text))
	if !ok {
		return fmt.Errorf("unknown slice %q", text)
	}
	*s = v
	return nil
}
