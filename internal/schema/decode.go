package schema

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// cursor walks a record left to right. The first out-of-range access latches
// a CorruptError and every later read returns zero values.
type cursor struct {
	buf    []byte
	off    int
	record string
	err    error
}

func (c *cursor) take(field string, n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.off+n > len(c.buf) {
		have := len(c.buf) - c.off
		if have < 0 {
			have = 0
		}
		c.err = &CorruptError{Record: c.record, Field: field, Offset: c.off, Need: n, Have: have}
		return nil
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) align(n int) {
	if r := c.off % n; r != 0 {
		c.off += n - r
	}
}

func (c *cursor) fail(field, reason string) {
	if c.err == nil {
		c.err = &CorruptError{Record: c.record, Field: field, Offset: c.off, Reason: reason}
	}
}

func (c *cursor) u8(field string) uint8 {
	b := c.take(field, 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) boolean(field string) bool {
	return c.u8(field) != 0
}

func (c *cursor) u16(field string) uint16 {
	c.align(2)
	b := c.take(field, 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (c *cursor) u32(field string) uint32 {
	c.align(4)
	b := c.take(field, 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) i32(field string) int32 {
	return int32(c.u32(field))
}

func (c *cursor) f32(field string) float32 {
	return math.Float32frombits(c.u32(field))
}

func (c *cursor) u64(field string) uint64 {
	c.align(8)
	b := c.take(field, 8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (c *cursor) f64(field string) float64 {
	return math.Float64frombits(c.u64(field))
}

// FixedString decodes a NUL-terminated field: bytes up to the first NUL, or
// the whole field when it holds none.
func FixedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// sized returns the first n bytes of a length-prefixed field verbatim.
func (c *cursor) sized(field string, b []byte, n int) []byte {
	if c.err != nil {
		return nil
	}
	if n > len(b) {
		c.fail(field, fmt.Sprintf("declared length %d exceeds capacity %d", n, len(b)))
		return nil
	}
	out := make([]byte, n)
	copy(out, b[:n])
	return out
}

func (c *cursor) count(field string, n, max int) {
	if n > max {
		c.fail(field, fmt.Sprintf("count %d exceeds capacity %d", n, max))
	}
}

func checkSize(record string, buf []byte, size int) error {
	if len(buf) < size {
		return &CorruptError{Record: record, Field: "*", Need: size, Have: len(buf)}
	}
	return nil
}

// DecodeJoystick decodes one Joystick from the start of buf.
func DecodeJoystick(buf []byte) (Joystick, error) {
	if err := checkSize("Joystick", buf, JoystickSize); err != nil {
		return Joystick{}, err
	}
	c := &cursor{buf: buf, record: "Joystick"}
	j := decodeJoystick(c)
	if c.err != nil {
		return Joystick{}, c.err
	}
	return j, nil
}

func decodeJoystick(c *cursor) Joystick {
	var j Joystick
	c.align(4)
	j.Name = FixedString(c.take("name", JoystickNameCapacity))
	j.Type = c.u8("type")
	j.IsXbox = c.boolean("is_xbox")
	j.AxisCount = c.u8("axis_count")
	c.count("axis_count", int(j.AxisCount), MaxJoystickAxes)
	copy(j.AxisTypes[:], c.take("axis_types", MaxJoystickAxes))
	for i := range j.AxisValues {
		j.AxisValues[i] = c.f32("axis_values")
	}
	j.ButtonCount = c.u8("button_count")
	c.count("button_count", int(j.ButtonCount), MaxJoystickButtons)
	j.ButtonMask = c.u32("buttons")
	j.POVCount = c.u8("pov_count")
	c.count("pov_count", int(j.POVCount), MaxJoystickPOVs)
	for i := range j.POVValues {
		j.POVValues[i] = int16(c.u16("pov_values"))
	}
	c.align(4)
	return j
}

// DecodeDSData decodes a DSData record from the start of buf.
func DecodeDSData(buf []byte) (DSData, error) {
	if err := checkSize("DSData", buf, DSDataSize); err != nil {
		return DSData{}, err
	}
	c := &cursor{buf: buf, record: "DSData"}
	d := decodeDSData(c)
	if c.err != nil {
		return DSData{}, c.err
	}
	return d, nil
}

func decodeDSData(c *cursor) DSData {
	var d DSData
	c.align(8)
	d.AllianceStation = c.i32("alliance_station")
	d.EventName = FixedString(c.take("event_name", EventNameCapacity))
	gsm := c.take("game_specific_message", GameSpecificMessageCapacity)
	gsmSize := c.u16("game_specific_message_size")
	d.GameSpecificMessage = c.sized("game_specific_message", gsm, int(gsmSize))
	d.MatchNumber = c.u16("match_number")
	d.ReplayNumber = c.u8("replay_number")
	d.MatchType = c.i32("match_type")
	d.ControlWord = ControlWord(c.i32("control_word"))
	d.MatchTime = c.f64("match_time")
	for i := range d.Joysticks {
		record := c.record
		c.record = fmt.Sprintf("%s.joysticks[%d]", record, i)
		d.Joysticks[i] = decodeJoystick(c)
		c.record = record
	}
	c.align(8)
	return d
}

// DecodePDPData decodes a PDPData record from the start of buf.
func DecodePDPData(buf []byte) (PDPData, error) {
	if err := checkSize("PDPData", buf, PDPDataSize); err != nil {
		return PDPData{}, err
	}
	c := &cursor{buf: buf, record: "PDPData"}
	p := decodePDPData(c)
	if c.err != nil {
		return PDPData{}, c.err
	}
	return p, nil
}

func decodePDPData(c *cursor) PDPData {
	var p PDPData
	c.align(8)
	p.Handle = c.i32("handle")
	p.ChannelCount = c.i32("channel_count")
	if p.ChannelCount < 0 {
		c.fail("channel_count", fmt.Sprintf("negative count %d", p.ChannelCount))
	}
	c.count("channel_count", int(p.ChannelCount), MaxPDPChannels)
	p.Type = c.i32("type")
	p.ModuleID = c.i32("module_id")
	p.Faults = c.u32("faults")
	p.StickyFaults = c.u32("sticky_faults")
	p.Temperature = c.f64("temperature")
	p.Voltage = c.f64("voltage")
	for i := range p.ChannelCurrent {
		p.ChannelCurrent[i] = c.f64("channel_current")
	}
	p.TotalCurrent = c.f64("total_current")
	p.TotalPower = c.f64("total_power")
	p.TotalEnergy = c.f64("total_energy")
	return p
}

// DecodeCANStatus decodes a CANStatus record from the start of buf.
func DecodeCANStatus(buf []byte) (CANStatus, error) {
	if err := checkSize("CANStatus", buf, CANStatusSize); err != nil {
		return CANStatus{}, err
	}
	c := &cursor{buf: buf, record: "CANStatus"}
	s := decodeCANStatus(c)
	if c.err != nil {
		return CANStatus{}, c.err
	}
	return s, nil
}

func decodeCANStatus(c *cursor) CANStatus {
	var s CANStatus
	c.align(4)
	s.PercentBusUtilization = c.f32("percent_bus_utilization")
	s.BusOffCount = c.u32("bus_off_count")
	s.TxFullCount = c.u32("tx_full_count")
	s.ReceiveErrorCount = c.u32("receive_error_count")
	s.TransmitErrorCount = c.u32("transmit_error_count")
	return s
}

// DecodeSystemData decodes a SystemData record from the start of buf.
func DecodeSystemData(buf []byte) (SystemData, error) {
	if err := checkSize("SystemData", buf, SystemDataSize); err != nil {
		return SystemData{}, err
	}
	c := &cursor{buf: buf, record: "SystemData"}
	s := decodeSystemData(c)
	if c.err != nil {
		return SystemData{}, c.err
	}
	return s, nil
}

func decodeRail(c *cursor, suffix string) Rail {
	var r Rail
	r.Voltage = c.f64("user_voltage_" + suffix)
	r.Current = c.f64("user_current_" + suffix)
	r.Active = c.boolean("user_active_" + suffix)
	r.CurrentFaults = c.i32("user_current_faults_" + suffix)
	return r
}

func decodeSystemData(c *cursor) SystemData {
	var s SystemData
	c.align(8)
	s.FPGAVersion = c.i32("fpga_version")
	s.FPGARevision = c.i32("fpga_revision")
	serial := c.take("serial_number", SerialNumberCapacity)
	serialSize := c.u16("serial_number_size")
	s.SerialNumber = c.sized("serial_number", serial, int(serialSize))
	comments := c.take("comments", CommentsCapacity)
	commentsSize := c.u16("comments_size")
	s.Comments = c.sized("comments", comments, int(commentsSize))
	s.TeamNumber = c.i32("team_number")
	s.FPGAButton = c.boolean("fpga_button")
	s.SystemActive = c.boolean("system_active")
	s.BrownedOut = c.boolean("browned_out")
	s.CommsDisableCount = c.i32("comms_disable_count")
	s.RSLState = c.boolean("rsl_state")
	s.SystemTimeValid = c.boolean("system_time_valid")
	s.VoltageVin = c.f64("voltage_vin")
	s.CurrentVin = c.f64("current_vin")
	s.Rail3V3 = decodeRail(c, "3v3")
	s.Rail5V = decodeRail(c, "5v")
	s.Rail6V = decodeRail(c, "6v")
	s.BrownoutVoltage = c.f64("brownout_voltage")
	s.CPUTemp = c.f64("cpu_temp")
	s.CANStatus = decodeCANStatus(c)
	s.EpochTime = c.u64("epoch_time")
	return s
}

// DecodeCoreInputs decodes a full snapshot from the start of buf.
func DecodeCoreInputs(buf []byte) (CoreInputs, error) {
	if err := checkSize("CoreInputs", buf, CoreInputsSize); err != nil {
		return CoreInputs{}, err
	}
	c := &cursor{buf: buf, record: "CoreInputs"}
	var in CoreInputs
	in.Timestamp = int64(c.u64("timestamp"))
	c.record = "CoreInputs.ds"
	in.DS = decodeDSData(c)
	c.record = "CoreInputs.pdp"
	in.PDP = decodePDPData(c)
	c.record = "CoreInputs.sys"
	in.Sys = decodeSystemData(c)
	if c.err != nil {
		return CoreInputs{}, c.err
	}
	return in, nil
}

// Decode dispatches on slice and returns the decoded record.
func Decode(slice Slice, buf []byte) (any, error) {
	switch slice {
	case SliceCore:
		return DecodeCoreInputs(buf)
	case SliceDS:
		return DecodeDSData(buf)
	case SlicePDP:
		return DecodePDPData(buf)
	case SliceSystem:
		return DecodeSystemData(buf)
	}
	return nil, fmt.Errorf("unknown slice %d", slice)
}
