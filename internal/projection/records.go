package projection

import "conduit-capture/internal/schema"

// Joystick projects one controller.
func Joystick(j *schema.Joystick) Dict {
	d := make(Dict, 0, 7)
	d.Add("name", j.Name)
	d.Add("type", j.Type)
	d.Add("is_xbox", j.IsXbox)
	d.Add("axes", list(j.Axes()))
	d.Add("axis_types", list(j.AxisTypeTags()))
	d.Add("buttons", list(j.Buttons()))
	d.Add("povs", list(j.POVs()))
	return d
}

// DSData projects the driver station record. The game specific message is
// kept byte for byte, embedded NULs included.
func DSData(ds *schema.DSData) Dict {
	joysticks := make([]any, len(ds.Joysticks))
	for i := range ds.Joysticks {
		joysticks[i] = Joystick(&ds.Joysticks[i])
	}
	d := make(Dict, 0, 9)
	d.Add("alliance_station", ds.AllianceStation)
	d.Add("event_name", ds.EventName)
	d.Add("game_specific_message", string(ds.GameSpecificMessage))
	d.Add("match_number", ds.MatchNumber)
	d.Add("replay_number", ds.ReplayNumber)
	d.Add("match_type", ds.MatchType)
	d.Add("control_word", int32(ds.ControlWord))
	d.Add("match_time", ds.MatchTime)
	d.Add("joysticks", joysticks)
	return d
}

// PDPData projects the power distribution record. Fault masks stay raw
// integers and every channel slot is listed regardless of channel_count.
func PDPData(p *schema.PDPData) Dict {
	d := make(Dict, 0, 12)
	d.Add("handle", p.Handle)
	d.Add("channel_count", p.ChannelCount)
	d.Add("type", p.Type)
	d.Add("module_id", p.ModuleID)
	d.Add("faults", p.Faults)
	d.Add("sticky_faults", p.StickyFaults)
	d.Add("temperature", p.Temperature)
	d.Add("voltage", p.Voltage)
	d.Add("channel_currents", list(p.ChannelCurrent[:]))
	d.Add("total_current", p.TotalCurrent)
	d.Add("total_power", p.TotalPower)
	d.Add("total_energy", p.TotalEnergy)
	return d
}

// CANStatus projects the CAN bus summary.
func CANStatus(s *schema.CANStatus) Dict {
	d := make(Dict, 0, 5)
	d.Add("percent_bus_utilization", s.PercentBusUtilization)
	d.Add("bus_off_count", s.BusOffCount)
	d.Add("tx_full_count", s.TxFullCount)
	d.Add("receive_error_count", s.ReceiveErrorCount)
	d.Add("transmit_error_count", s.TransmitErrorCount)
	return d
}

func addRail(d *Dict, suffix string, r *schema.Rail) {
	d.Add("user_voltage_"+suffix, r.Voltage)
	d.Add("user_current_"+suffix, r.Current)
	d.Add("user_active_"+suffix, r.Active)
	d.Add("user_current_faults_"+suffix, r.CurrentFaults)
}

// SystemData projects the controller record.
func SystemData(s *schema.SystemData) Dict {
	d := make(Dict, 0, 29)
	d.Add("fpga_version", s.FPGAVersion)
	d.Add("fpga_revision", s.FPGARevision)
	d.Add("serial_number", string(s.SerialNumber))
	d.Add("comments", string(s.Comments))
	d.Add("team_number", s.TeamNumber)
	d.Add("fpga_button", s.FPGAButton)
	d.Add("system_active", s.SystemActive)
	d.Add("browned_out", s.BrownedOut)
	d.Add("comms_disable_count", s.CommsDisableCount)
	d.Add("rsl_state", s.RSLState)
	d.Add("system_time_valid", s.SystemTimeValid)
	d.Add("voltage_vin", s.VoltageVin)
	d.Add("current_vin", s.CurrentVin)
	addRail(&d, "3v3", &s.Rail3V3)
	addRail(&d, "5v", &s.Rail5V)
	addRail(&d, "6v", &s.Rail6V)
	d.Add("brownout_voltage", s.BrownoutVoltage)
	d.Add("cpu_temp", s.CPUTemp)
	d.Add("can_status", CANStatus(&s.CANStatus))
	d.Add("epoch_time", s.EpochTime)
	return d
}

// CoreInputs projects a full snapshot.
func CoreInputs(in *schema.CoreInputs) Dict {
	d := make(Dict, 0, 4)
	d.Add("timestamp", in.Timestamp)
	d.Add("ds", DSData(&in.DS))
	d.Add("pdp", PDPData(&in.PDP))
	d.Add("sys", SystemData(&in.Sys))
	return d
}

// Record projects any decoded record returned by schema.Decode.
func Record(v any) (Dict, bool) {
	switch r := v.(type) {
	case schema.CoreInputs:
		return CoreInputs(&r), true
	case schema.DSData:
		return DSData(&r), true
	case schema.PDPData:
		return PDPData(&r), true
	case schema.SystemData:
		return SystemData(&r), true
	case schema.Joystick:
		return Joystick(&r), true
	case schema.CANStatus:
		return CANStatus(&r), true
	}
	return nil, false
}

// list boxes a typed slice so nested values flatten and marshal uniformly.
func list[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
