// Package testutil provides shared telemetry fixtures for tests.
package testutil

import (
	"testing"

	"conduit-capture/internal/schema"
)

// SampleJoystick returns a joystick with every field populated.
func SampleJoystick(port int) schema.Joystick {
	j := schema.Joystick{
		Name:        "Controller (Xbox One For Windows)",
		Type:        1,
		IsXbox:      port%2 == 0,
		AxisCount:   6,
		ButtonCount: 10,
		ButtonMask:  0b10_0000_0101,
		POVCount:    1,
	}
	for i := 0; i < int(j.AxisCount); i++ {
		j.AxisTypes[i] = uint8(i)
		j.AxisValues[i] = float32(i)*0.25 - 0.5 + float32(port)
	}
	j.POVValues[0] = 90
	return j
}

// SampleCoreInputs returns a snapshot with every scalar and sequence set to a
// distinctive value.
func SampleCoreInputs() schema.CoreInputs {
	in := schema.CoreInputs{
		Timestamp: 123_456_789,
		DS: schema.DSData{
			AllianceStation:     4,
			EventName:           "CAMA",
			GameSpecificMessage: []byte("A\x00B"),
			MatchNumber:         42,
			ReplayNumber:        1,
			MatchType:           2,
			ControlWord:         0b11_0001,
			MatchTime:           134.5,
		},
		PDP: schema.PDPData{
			Handle:       7,
			ChannelCount: 24,
			Type:         2,
			ModuleID:     1,
			Faults:       1<<3 | 1<<24,
			StickyFaults: 1 << 27,
			Temperature:  31.5,
			Voltage:      12.4,
			TotalCurrent: 55.25,
			TotalPower:   685.1,
			TotalEnergy:  9001.5,
		},
		Sys: schema.SystemData{
			FPGAVersion:       2024,
			FPGARevision:      0x1800_0000,
			SerialNumber:      []byte("0323A1B2"),
			Comments:          []byte("bench\x00rio"),
			TeamNumber:        6328,
			FPGAButton:        true,
			SystemActive:      true,
			CommsDisableCount: 3,
			RSLState:          true,
			SystemTimeValid:   true,
			VoltageVin:        12.3,
			CurrentVin:        1.9,
			Rail3V3:           schema.Rail{Voltage: 3.3, Current: 0.1, Active: true, CurrentFaults: 0},
			Rail5V:            schema.Rail{Voltage: 5.0, Current: 0.4, Active: true, CurrentFaults: 1},
			Rail6V:            schema.Rail{Voltage: 6.0, Current: 0.0, Active: false, CurrentFaults: 2},
			BrownoutVoltage:   6.75,
			CPUTemp:           48.5,
			CANStatus: schema.CANStatus{
				PercentBusUtilization: 0.375,
				BusOffCount:           1,
				TxFullCount:           2,
				ReceiveErrorCount:     3,
				TransmitErrorCount:    4,
			},
			EpochTime: 1_760_000_000_000_000,
		},
	}
	for i := range in.DS.Joysticks {
		in.DS.Joysticks[i] = SampleJoystick(i)
	}
	for i := range in.PDP.ChannelCurrent {
		in.PDP.ChannelCurrent[i] = float64(i) * 1.5
	}
	return in
}

// EncodedCoreInputs encodes SampleCoreInputs into a buffer of size bytes.
func EncodedCoreInputs(t testing.TB, size int) []byte {
	t.Helper()
	in := SampleCoreInputs()
	buf := make([]byte, size)
	if err := schema.EncodeCoreInputs(buf, &in); err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	return buf
}
