package schema

// Joystick is one driver station controller.
type Joystick struct {
	Name        string
	Type        uint8
	IsXbox      bool
	AxisCount   uint8
	AxisTypes   [MaxJoystickAxes]uint8
	AxisValues  [MaxJoystickAxes]float32
	ButtonCount uint8
	ButtonMask  uint32
	POVCount    uint8
	POVValues   [MaxJoystickPOVs]int16
}

// Axes returns the populated axis values.
func (j *Joystick) Axes() []float32 {
	return j.AxisValues[:j.AxisCount]
}

// AxisTypeTags returns the populated axis type tags, parallel to Axes.
func (j *Joystick) AxisTypeTags() []uint8 {
	return j.AxisTypes[:j.AxisCount]
}

// Buttons expands the button mask up to ButtonCount.
func (j *Joystick) Buttons() []bool {
	return DecodeBits(j.ButtonMask, int(j.ButtonCount))
}

// POVs returns the populated point-of-view hat values.
func (j *Joystick) POVs() []int16 {
	return j.POVValues[:j.POVCount]
}

// DSData is the driver station slice of a snapshot.
type DSData struct {
	AllianceStation int32
	EventName       string
	// GameSpecificMessage is length-prefixed on the wire and may hold NULs.
	GameSpecificMessage []byte
	MatchNumber         uint16
	ReplayNumber        uint8
	MatchType           int32
	ControlWord         ControlWord
	MatchTime           float64
	Joysticks           [MaxJoysticks]Joystick
}

// PDPData is the power distribution slice of a snapshot.
type PDPData struct {
	Handle         int32
	ChannelCount   int32
	Type           int32
	ModuleID       int32
	Faults         uint32
	StickyFaults   uint32
	Temperature    float64
	Voltage        float64
	ChannelCurrent [MaxPDPChannels]float64
	TotalCurrent   float64
	TotalPower     float64
	TotalEnergy    float64
}

// ChannelFaults reports the breaker fault bit of each populated channel.
func (p *PDPData) ChannelFaults() []bool {
	n := int(p.ChannelCount)
	if n < 0 {
		n = 0
	}
	if n > MaxPDPChannels {
		n = MaxPDPChannels
	}
	return DecodeBits(p.Faults, n)
}

// ActiveFaults names the set bits of the live fault mask.
func (p *PDPData) ActiveFaults() []string {
	return PDPFaultFlags.Names(p.Faults)
}

// ActiveStickyFaults names the set bits of the sticky fault mask.
func (p *PDPData) ActiveStickyFaults() []string {
	return PDPStickyFaultFlags.Names(p.StickyFaults)
}

// CANStatus summarizes the robot CAN bus.
type CANStatus struct {
	PercentBusUtilization float32
	BusOffCount           uint32
	TxFullCount           uint32
	ReceiveErrorCount     uint32
	TransmitErrorCount    uint32
}

// Rail is one user power rail of the controller.
type Rail struct {
	Voltage       float64
	Current       float64
	Active        bool
	CurrentFaults int32
}

// SystemData is the controller slice of a snapshot.
type SystemData struct {
	FPGAVersion  int32
	FPGARevision int32
	// SerialNumber and Comments are length-prefixed and kept verbatim.
	SerialNumber      []byte
	Comments          []byte
	TeamNumber        int32
	FPGAButton        bool
	SystemActive      bool
	BrownedOut        bool
	CommsDisableCount int32
	RSLState          bool
	SystemTimeValid   bool
	VoltageVin        float64
	CurrentVin        float64
	Rail3V3           Rail
	Rail5V            Rail
	Rail6V            Rail
	BrownoutVoltage   float64
	CPUTemp           float64
	CANStatus         CANStatus
	EpochTime         uint64
}

// CoreInputs is one full snapshot. Timestamp is in microseconds.
type CoreInputs struct {
	Timestamp int64
	DS        DSData
	PDP       PDPData
	Sys       SystemData
}
