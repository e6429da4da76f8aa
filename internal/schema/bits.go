package schema

import "fmt"

// DecodeBits expands mask into count booleans, bit i mapping to index i.
// count is clamped to the 32 bits a mask can hold.
func DecodeBits(mask uint32, count int) []bool {
	if count < 0 {
		count = 0
	}
	if count > 32 {
		count = 32
	}
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = (mask>>uint(i))&1 == 1
	}
	return out
}

// Flag binds a bit index to its meaning.
type Flag struct {
	Bit  uint8
	Name string
}

// FlagTable decodes a bitmask field into named flags.
type FlagTable []Flag

// Decode returns every flag in table order with its state.
func (t FlagTable) Decode(mask uint32) map[string]bool {
	out := make(map[string]bool, len(t))
	for _, f := range t {
		out[f.Name] = (mask>>f.Bit)&1 == 1
	}
	return out
}

// Names returns the names of the set flags in table order.
func (t FlagTable) Names(mask uint32) []string {
	var out []string
	for _, f := range t {
		if (mask>>f.Bit)&1 == 1 {
			out = append(out, f.Name)
		}
	}
	return out
}

// Has reports whether the named flag is set in mask.
func (t FlagTable) Has(mask uint32, name string) bool {
	for _, f := range t {
		if f.Name == name {
			return (mask>>f.Bit)&1 == 1
		}
	}
	return false
}

// ControlWordFlags are the HAL control word bits.
var ControlWordFlags = FlagTable{
	{0, "enabled"},
	{1, "autonomous"},
	{2, "test"},
	{3, "estop"},
	{4, "fms_attached"},
	{5, "ds_attached"},
}

// PDPFaultFlags covers the live fault mask: one breaker bit per channel
// followed by the device-level faults.
var PDPFaultFlags = channelFlags("breaker", FlagTable{
	{24, "brownout"},
	{25, "can_warning"},
	{26, "hardware_fault"},
})

// PDPStickyFaultFlags covers the sticky fault mask.
var PDPStickyFaultFlags = channelFlags("sticky_breaker", FlagTable{
	{24, "brownout"},
	{25, "can_warning"},
	{26, "can_bus_off"},
	{27, "has_reset"},
})

func channelFlags(prefix string, tail FlagTable) FlagTable {
	t := make(FlagTable, 0, MaxPDPChannels+len(tail))
	for ch := 0; ch < MaxPDPChannels; ch++ {
		t = append(t, Flag{Bit: uint8(ch), Name: fmt.Sprintf("%s_%d", prefix, ch)})
	}
	return append(t, tail...)
}

// ControlWord is the driver station control bitfield.
type ControlWord int32

func (c ControlWord) has(name string) bool {
	return ControlWordFlags.Has(uint32(c), name)
}

func (c ControlWord) Enabled() bool     { return c.has("enabled") }
func (c ControlWord) Autonomous() bool  { return c.has("autonomous") }
func (c ControlWord) Test() bool        { return c.has("test") }
func (c ControlWord) EStop() bool       { return c.has("estop") }
func (c ControlWord) FMSAttached() bool { return c.has("fms_attached") }
func (c ControlWord) DSAttached() bool  { return c.has("ds_attached") }
