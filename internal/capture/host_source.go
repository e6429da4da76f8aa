package capture

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"conduit-capture/internal/can"
	"conduit-capture/internal/models"
	"conduit-capture/internal/schema"
)

const (
	defaultThermalZone = "/sys/class/thermal/thermal_zone0/temp"
	// defaultBrownoutVoltage matches the controller's factory brownout threshold.
	defaultBrownoutVoltage = 6.75
)

// HostConfig configures a HostSource.
type HostConfig struct {
	// CANInterface is the SocketCAN interface sampled for the CAN status.
	// Empty leaves the CAN status zeroed.
	CANInterface string
	TeamNumber   int32
	// ThermalZone is a sysfs file reporting millidegrees Celsius.
	ThermalZone string
}

// HostSource synthesizes snapshots from the Linux host it runs on, for bench
// sessions without a robot controller. Driver station and power
// distribution slices are left zeroed.
type HostSource struct {
	cfg      HostConfig
	probe    *can.Probe
	now      func() time.Time
	readFile func(string) ([]byte, error)
	hostname func() (string, error)

	started   bool
	start     time.Time
	lastStats models.SocketCANStats
	scratch   []byte
}

// NewHostSource creates a host source.
func NewHostSource(cfg HostConfig) *HostSource {
	if cfg.ThermalZone == "" {
		cfg.ThermalZone = defaultThermalZone
	}
	s := &HostSource{
		cfg:      cfg,
		now:      time.Now,
		readFile: os.ReadFile,
		hostname: os.Hostname,
		scratch:  make([]byte, schema.CoreInputsSize),
	}
	if cfg.CANInterface != "" {
		s.probe = can.NewProbe(cfg.CANInterface)
	}
	return s
}

// WithProbe replaces the CAN probe, mainly so tests can script ip output.
func (s *HostSource) WithProbe(p *can.Probe) *HostSource {
	s.probe = p
	return s
}

// Start records the time base and takes a first CAN sample so the next
// capture can report bus utilization.
func (s *HostSource) Start() error {
	if s.started {
		return nil
	}
	if s.probe != nil {
		_, stats, err := s.probe.Status()
		if err != nil {
			return &CaptureError{Source: "host", Op: "start", Err: err}
		}
		s.lastStats = stats
	}
	s.start = s.now()
	s.started = true
	return nil
}

// LastInterfaceStats returns the CAN interface sample behind the most recent
// capture.
func (s *HostSource) LastInterfaceStats() (models.SocketCANStats, bool) {
	return s.lastStats, s.probe != nil && !s.lastStats.Timestamp.IsZero()
}

// Capture builds a snapshot from host state and writes the requested slice.
func (s *HostSource) Capture(dst []byte, slice schema.Slice) error {
	if !s.started {
		return &CaptureError{Source: "host", Op: "capture", Slice: slice, Err: ErrNotStarted}
	}
	if err := checkDst("host", dst, slice); err != nil {
		return err
	}
	in, err := s.snapshot()
	if err != nil {
		return &CaptureError{Source: "host", Op: "capture", Slice: slice, Err: err}
	}
	if err := schema.EncodeCoreInputs(s.scratch, &in); err != nil {
		return &CaptureError{Source: "host", Op: "encode", Slice: slice, Err: err}
	}
	off := slice.Offset()
	copy(dst, s.scratch[off:off+slice.Size()])
	return nil
}

func (s *HostSource) snapshot() (schema.CoreInputs, error) {
	now := s.now()
	in := schema.CoreInputs{Timestamp: now.Sub(s.start).Microseconds()}

	sys := &in.Sys
	sys.TeamNumber = s.cfg.TeamNumber
	sys.SystemActive = true
	sys.SystemTimeValid = true
	sys.BrownoutVoltage = defaultBrownoutVoltage
	sys.EpochTime = uint64(now.UnixMicro())
	if name, err := s.hostname(); err == nil {
		if len(name) > schema.CommentsCapacity {
			name = name[:schema.CommentsCapacity]
		}
		sys.Comments = []byte(name)
	}
	if temp, err := s.cpuTemp(); err == nil {
		sys.CPUTemp = temp
	}

	if s.probe != nil {
		status, stats, err := s.probe.Status()
		if err != nil {
			return in, err
		}
		sys.CANStatus = status
		s.lastStats = stats
	}
	return in, nil
}

func (s *HostSource) cpuTemp() (float64, error) {
	raw, err := s.readFile(s.cfg.ThermalZone)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", s.cfg.ThermalZone, err)
	}
	return milli / 1000, nil
}

// Close is a no-op; the host source holds no resources.
func (s *HostSource) Close() error {
	return nil
}
