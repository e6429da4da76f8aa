package schema

import (
	"encoding/binary"
	"fmt"
	"math"
)

// writer mirrors cursor for encoding. Padding bytes are zeroed.
type writer struct {
	buf    []byte
	off    int
	record string
	err    error
}

func (w *writer) fail(field, reason string) {
	if w.err == nil {
		w.err = fmt.Errorf("encode %s.%s: %s", w.record, field, reason)
	}
}

func (w *writer) align(n int) {
	for w.off%n != 0 {
		w.buf[w.off] = 0
		w.off++
	}
}

func (w *writer) put(b []byte) {
	copy(w.buf[w.off:], b)
	w.off += len(b)
}

func (w *writer) u8(v uint8) {
	w.buf[w.off] = v
	w.off++
}

func (w *writer) boolean(v bool) {
	if v {
		w.u8(1)
		return
	}
	w.u8(0)
}

func (w *writer) u16(v uint16) {
	w.align(2)
	binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
}

func (w *writer) u32(v uint32) {
	w.align(4)
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) u64(v uint64) {
	w.align(8)
	binary.LittleEndian.PutUint64(w.buf[w.off:], v)
	w.off += 8
}

func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }

// fixed writes b into a zero-filled field of the given capacity.
func (w *writer) fixed(field string, b []byte, capacity int) {
	if len(b) > capacity {
		w.fail(field, fmt.Sprintf("length %d exceeds capacity %d", len(b), capacity))
	}
	n := copy(w.buf[w.off:w.off+capacity], b)
	clear(w.buf[w.off+n : w.off+capacity])
	w.off += capacity
}

func (w *writer) count(field string, n, max int) {
	if n > max {
		w.fail(field, fmt.Sprintf("count %d exceeds capacity %d", n, max))
	}
}

func newWriter(dst []byte, record string, size int) (*writer, error) {
	if len(dst) < size {
		return nil, fmt.Errorf("encode %s: destination holds %d bytes, need %d", record, len(dst), size)
	}
	return &writer{buf: dst[:size], record: record}, nil
}

// EncodeJoystick writes j into the first JoystickSize bytes of dst.
func EncodeJoystick(dst []byte, j *Joystick) error {
	w, err := newWriter(dst, "Joystick", JoystickSize)
	if err != nil {
		return err
	}
	encodeJoystick(w, j)
	return w.err
}

func encodeJoystick(w *writer, j *Joystick) {
	w.align(4)
	w.fixed("name", []byte(j.Name), JoystickNameCapacity)
	w.u8(j.Type)
	w.boolean(j.IsXbox)
	w.count("axis_count", int(j.AxisCount), MaxJoystickAxes)
	w.u8(j.AxisCount)
	w.put(j.AxisTypes[:])
	for _, v := range j.AxisValues {
		w.f32(v)
	}
	w.count("button_count", int(j.ButtonCount), MaxJoystickButtons)
	w.u8(j.ButtonCount)
	w.u32(j.ButtonMask)
	w.count("pov_count", int(j.POVCount), MaxJoystickPOVs)
	w.u8(j.POVCount)
	for _, v := range j.POVValues {
		w.u16(uint16(v))
	}
	w.align(4)
}

// EncodeDSData writes d into the first DSDataSize bytes of dst.
func EncodeDSData(dst []byte, d *DSData) error {
	w, err := newWriter(dst, "DSData", DSDataSize)
	if err != nil {
		return err
	}
	encodeDSData(w, d)
	return w.err
}

func encodeDSData(w *writer, d *DSData) {
	w.align(8)
	w.i32(d.AllianceStation)
	w.fixed("event_name", []byte(d.EventName), EventNameCapacity)
	w.fixed("game_specific_message", d.GameSpecificMessage, GameSpecificMessageCapacity)
	w.u16(uint16(len(d.GameSpecificMessage)))
	w.u16(d.MatchNumber)
	w.u8(d.ReplayNumber)
	w.i32(d.MatchType)
	w.i32(int32(d.ControlWord))
	w.f64(d.MatchTime)
	for i := range d.Joysticks {
		encodeJoystick(w, &d.Joysticks[i])
	}
	w.align(8)
}

// EncodePDPData writes p into the first PDPDataSize bytes of dst.
func EncodePDPData(dst []byte, p *PDPData) error {
	w, err := newWriter(dst, "PDPData", PDPDataSize)
	if err != nil {
		return err
	}
	encodePDPData(w, p)
	return w.err
}

func encodePDPData(w *writer, p *PDPData) {
	w.align(8)
	w.i32(p.Handle)
	w.count("channel_count", int(p.ChannelCount), MaxPDPChannels)
	w.i32(p.ChannelCount)
	w.i32(p.Type)
	w.i32(p.ModuleID)
	w.u32(p.Faults)
	w.u32(p.StickyFaults)
	w.f64(p.Temperature)
	w.f64(p.Voltage)
	for _, v := range p.ChannelCurrent {
		w.f64(v)
	}
	w.f64(p.TotalCurrent)
	w.f64(p.TotalPower)
	w.f64(p.TotalEnergy)
}

func encodeCANStatus(w *writer, s *CANStatus) {
	w.align(4)
	w.f32(s.PercentBusUtilization)
	w.u32(s.BusOffCount)
	w.u32(s.TxFullCount)
	w.u32(s.ReceiveErrorCount)
	w.u32(s.TransmitErrorCount)
}

func encodeRail(w *writer, r *Rail) {
	w.f64(r.Voltage)
	w.f64(r.Current)
	w.boolean(r.Active)
	w.i32(r.CurrentFaults)
}

// EncodeSystemData writes s into the first SystemDataSize bytes of dst.
func EncodeSystemData(dst []byte, s *SystemData) error {
	w, err := newWriter(dst, "SystemData", SystemDataSize)
	if err != nil {
		return err
	}
	encodeSystemData(w, s)
	return w.err
}

func encodeSystemData(w *writer, s *SystemData) {
	w.align(8)
	w.i32(s.FPGAVersion)
	w.i32(s.FPGARevision)
	w.fixed("serial_number", s.SerialNumber, SerialNumberCapacity)
	w.u16(uint16(len(s.SerialNumber)))
	w.fixed("comments", s.Comments, CommentsCapacity)
	w.u16(uint16(len(s.Comments)))
	w.i32(s.TeamNumber)
	w.boolean(s.FPGAButton)
	w.boolean(s.SystemActive)
	w.boolean(s.BrownedOut)
	w.i32(s.CommsDisableCount)
	w.boolean(s.RSLState)
	w.boolean(s.SystemTimeValid)
	w.f64(s.VoltageVin)
	w.f64(s.CurrentVin)
	encodeRail(w, &s.Rail3V3)
	encodeRail(w, &s.Rail5V)
	encodeRail(w, &s.Rail6V)
	w.f64(s.BrownoutVoltage)
	w.f64(s.CPUTemp)
	encodeCANStatus(w, &s.CANStatus)
	w.u64(s.EpochTime)
}

// EncodeCoreInputs writes in into the first CoreInputsSize bytes of dst.
func EncodeCoreInputs(dst []byte, in *CoreInputs) error {
	w, err := newWriter(dst, "CoreInputs", CoreInputsSize)
	if err != nil {
		return err
	}
	w.u64(uint64(in.Timestamp))
	encodeDSData(w, &in.DS)
	encodePDPData(w, &in.PDP)
	encodeSystemData(w, &in.Sys)
	return w.err
}
