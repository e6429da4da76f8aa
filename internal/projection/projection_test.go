package projection_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit-capture/internal/projection"
	"conduit-capture/internal/schema"
	"conduit-capture/internal/testutil"
)

func TestFieldNamesAndOrder(t *testing.T) {
	in := testutil.SampleCoreInputs()
	core := projection.CoreInputs(&in)

	tests := []struct {
		name string
		dict projection.Dict
		want []string
	}{
		{"core", core, []string{"timestamp", "ds", "pdp", "sys"}},
		{"joystick", projection.Joystick(&in.DS.Joysticks[0]),
			[]string{"name", "type", "is_xbox", "axes", "axis_types", "buttons", "povs"}},
		{"ds", projection.DSData(&in.DS), []string{
			"alliance_station", "event_name", "game_specific_message", "match_number",
			"replay_number", "match_type", "control_word", "match_time", "joysticks"}},
		{"pdp", projection.PDPData(&in.PDP), []string{
			"handle", "channel_count", "type", "module_id", "faults", "sticky_faults",
			"temperature", "voltage", "channel_currents", "total_current", "total_power",
			"total_energy"}},
		{"can", projection.CANStatus(&in.Sys.CANStatus), []string{
			"percent_bus_utilization", "bus_off_count", "tx_full_count",
			"receive_error_count", "transmit_error_count"}},
		{"sys", projection.SystemData(&in.Sys), []string{
			"fpga_version", "fpga_revision", "serial_number", "comments", "team_number",
			"fpga_button", "system_active", "browned_out", "comms_disable_count", "rsl_state",
			"system_time_valid", "voltage_vin", "current_vin",
			"user_voltage_3v3", "user_current_3v3", "user_active_3v3", "user_current_faults_3v3",
			"user_voltage_5v", "user_current_5v", "user_active_5v", "user_current_faults_5v",
			"user_voltage_6v", "user_current_6v", "user_active_6v", "user_current_faults_6v",
			"brownout_voltage", "cpu_temp", "can_status", "epoch_time"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dict.Keys())
			assert.Equal(t, len(tt.want), tt.dict.Len())
		})
	}
}

func TestProjectedValues(t *testing.T) {
	in := testutil.SampleCoreInputs()
	in.DS.Joysticks[1].ButtonMask = 0b0101
	in.DS.Joysticks[1].ButtonCount = 4
	core := projection.CoreInputs(&in)

	ds := mustDict(t, core, "ds")
	gsm, _ := ds.Get("game_specific_message")
	assert.Equal(t, "A\x00B", gsm)
	cw, _ := ds.Get("control_word")
	assert.Equal(t, int32(0b11_0001), cw)

	joysticks := mustGet(t, ds, "joysticks").([]any)
	require.Len(t, joysticks, schema.MaxJoysticks)
	buttons, _ := joysticks[1].(projection.Dict).Get("buttons")
	assert.Equal(t, []any{true, false, true, false}, buttons)

	pdp := mustDict(t, core, "pdp")
	currents := mustGet(t, pdp, "channel_currents").([]any)
	assert.Len(t, currents, schema.MaxPDPChannels)
	assert.Equal(t, 4.5, currents[3])
	faults, _ := pdp.Get("faults")
	assert.Equal(t, uint32(1<<3|1<<24), faults)

	sys := mustDict(t, core, "sys")
	comments, _ := sys.Get("comments")
	assert.Equal(t, "bench\x00rio", comments)
	can := mustDict(t, sys, "can_status")
	busOff, _ := can.Get("bus_off_count")
	assert.Equal(t, uint32(1), busOff)
}

func TestZeroRecordIsTotal(t *testing.T) {
	in, err := schema.DecodeCoreInputs(make([]byte, 100000))
	require.NoError(t, err)
	core := projection.CoreInputs(&in)
	assert.Equal(t, 4, core.Len())
	assert.Equal(t, 29, mustDict(t, core, "sys").Len())
	j := mustGet(t, mustDict(t, core, "ds"), "joysticks").([]any)[0].(projection.Dict)
	axes, _ := j.Get("axes")
	assert.Equal(t, []any{}, axes)
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	var d projection.Dict
	d.Add("zeta", 1)
	d.Add("alpha", []any{uint8(2), uint8(3)})
	inner := projection.Dict{{Key: "b", Value: true}, {Key: "a", Value: "x\x00y"}}
	d.Add("inner", inner)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":[2,3],"inner":{"b":true,"a":"x\u0000y"}}`, string(out))
}

func TestFlatten(t *testing.T) {
	in := testutil.SampleCoreInputs()
	flat := projection.Flatten(projection.CoreInputs(&in), ".")

	v, ok := flat.Get("sys.can_status.bus_off_count")
	require.True(t, ok)
	assert.Equal(t, uint32(1), v)
	v, ok = flat.Get("pdp.channel_currents.3")
	require.True(t, ok)
	assert.Equal(t, 4.5, v)
	v, ok = flat.Get("ds.joysticks.0.name")
	require.True(t, ok)
	assert.Equal(t, in.DS.Joysticks[0].Name, v)

	assert.Equal(t, "timestamp", flat.Keys()[0])
	for _, f := range flat {
		switch f.Value.(type) {
		case projection.Dict, []any:
			t.Fatalf("%s was not flattened", f.Key)
		}
	}
}

func TestRecord(t *testing.T) {
	in := testutil.SampleCoreInputs()
	d, ok := projection.Record(in.PDP)
	require.True(t, ok)
	assert.Equal(t, "handle", d.Keys()[0])
	_, ok = projection.Record(42)
	assert.False(t, ok)
}

func mustGet(t *testing.T, d projection.Dict, key string) any {
	t.Helper()
	v, ok := d.Get(key)
	require.True(t, ok, "missing %q", key)
	return v
}

func mustDict(t *testing.T, d projection.Dict, key string) projection.Dict {
	t.Helper()
	v, ok := mustGet(t, d, key).(projection.Dict)
	require.True(t, ok, "%q is not a Dict", key)
	return v
}
