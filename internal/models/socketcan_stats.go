package models

import "time"

// SocketCANStats is one sample of a SocketCAN interface's counters, used to
// fill the CAN status of host captures.
type SocketCANStats struct {
	Interface string    `json:"interface"`
	Timestamp time.Time `json:"timestamp"`

	State       string `json:"state"`        // UP, DOWN
	MTU         int    `json:"mtu"`          // Maximum Transmission Unit
	QueueLength int    `json:"queue_length"` // TX queue length

	Bitrate        int    `json:"bitrate"`          // bps
	SamplePoint    string `json:"sample_point"`     // e.g. "87.5%"
	RestartMS      int    `json:"restart_ms"`       // auto-restart delay
	ControllerMode string `json:"controller_mode"`  // LOOPBACK, LISTEN-ONLY
	BusState       string `json:"bus_state"`        // ERROR-ACTIVE, ERROR-PASSIVE, BUS-OFF
	RXErrorCounter int    `json:"rx_error_counter"` // berr-counter rx
	TXErrorCounter int    `json:"tx_error_counter"` // berr-counter tx

	RXPackets    uint64 `json:"rx_packets"`
	RXBytes      uint64 `json:"rx_bytes"`
	RXErrors     uint64 `json:"rx_errors"`
	RXDropped    uint64 `json:"rx_dropped"`
	RXOverErrors uint64 `json:"rx_over_errors"`

	TXPackets       uint64 `json:"tx_packets"`
	TXBytes         uint64 `json:"tx_bytes"`
	TXErrors        uint64 `json:"tx_errors"`
	TXDropped       uint64 `json:"tx_dropped"`
	TXCarrierErrors uint64 `json:"tx_carrier_errors"`
	Collisions      uint64 `json:"collisions"`

	BusOffRestarts  uint64 `json:"bus_off_restarts"`
	ArbitrationLost uint64 `json:"arbitration_lost"`
	ErrorWarning    uint64 `json:"error_warning"`
	ErrorPassive    uint64 `json:"error_passive"`
	BusOff          uint64 `json:"bus_off"`
}
