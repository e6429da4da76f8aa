package can

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"conduit-capture/internal/models"
	"conduit-capture/internal/schema"
)

// frameOverheadBits approximates the non-data bits of a standard CAN 2.0A
// frame (SOF, arbitration, control, CRC, ACK, EOF, IFS).
const frameOverheadBits = 47

var (
	flagsPattern       = regexp.MustCompile(`<([^>]+)>`)
	mtuPattern         = regexp.MustCompile(`mtu (\d+)`)
	qlenPattern        = regexp.MustCompile(`qlen (\d+)`)
	busStatePattern    = regexp.MustCompile(`can (?:<[^>]*> )?state ([A-Z-]+)`)
	berrPattern        = regexp.MustCompile(`berr-counter tx (\d+) rx (\d+)`)
	restartPattern     = regexp.MustCompile(`restart-ms (\d+)`)
	bitratePattern     = regexp.MustCompile(`bitrate (\d+)`)
	samplePointPattern = regexp.MustCompile(`sample-point ([\d.]+)`)
)

// Runner executes a command and returns its combined output.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Probe samples a SocketCAN interface and turns successive samples into the
// CAN status block of a snapshot.
type Probe struct {
	iface string
	run   Runner
	now   func() time.Time
	last  *models.SocketCANStats
}

// NewProbe creates a probe for the named interface using the ip tool.
func NewProbe(iface string) *Probe {
	return &Probe{iface: iface, run: execRunner, now: time.Now}
}

// NewProbeWithRunner creates a probe that runs commands and reads time
// through the given functions.
func NewProbeWithRunner(iface string, run Runner, now func() time.Time) *Probe {
	return &Probe{iface: iface, run: run, now: now}
}

// Interface returns the probed interface name.
func (p *Probe) Interface() string {
	return p.iface
}

// Sample reads the current interface statistics.
func (p *Probe) Sample() (models.SocketCANStats, error) {
	output, err := p.run("ip", "-details", "-statistics", "link", "show", p.iface)
	if err != nil {
		return models.SocketCANStats{}, fmt.Errorf("failed to execute ip command: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	stats, err := parseIPOutput(string(output))
	if err != nil {
		return stats, fmt.Errorf("interface %s: %w", p.iface, err)
	}
	stats.Interface = p.iface
	stats.Timestamp = p.now()
	return stats, nil
}

// Status samples the interface and maps the counters onto a CANStatus. Bus
// utilization is derived from the traffic since the previous sample.
func (p *Probe) Status() (schema.CANStatus, models.SocketCANStats, error) {
	stats, err := p.Sample()
	if err != nil {
		return schema.CANStatus{}, stats, err
	}
	status := schema.CANStatus{
		BusOffCount:        uint32(stats.BusOff),
		TxFullCount:        uint32(stats.TXDropped),
		ReceiveErrorCount:  uint32(stats.RXErrorCounter),
		TransmitErrorCount: uint32(stats.TXErrorCounter),
	}
	if p.last != nil {
		status.PercentBusUtilization = BusUtilization(*p.last, stats)
	}
	p.last = &stats
	return status, stats, nil
}

// BusUtilization estimates the fraction of bus time used between two samples.
func BusUtilization(prev, cur models.SocketCANStats) float32 {
	dt := cur.Timestamp.Sub(prev.Timestamp).Seconds()
	if dt <= 0 || cur.Bitrate <= 0 {
		return 0
	}
	bytes := delta(prev.RXBytes, cur.RXBytes) + delta(prev.TXBytes, cur.TXBytes)
	frames := delta(prev.RXPackets, cur.RXPackets) + delta(prev.TXPackets, cur.TXPackets)
	bits := float64(bytes)*8 + float64(frames)*frameOverheadBits
	util := bits / (float64(cur.Bitrate) * dt)
	if util > 1 {
		util = 1
	}
	return float32(util)
}

// delta treats a counter that went backwards (interface restart) as no traffic.
func delta(prev, cur uint64) uint64 {
	if cur < prev {
		return 0
	}
	return cur - prev
}

// parseIPOutput parses the text output of 'ip -details -statistics link show'.
func parseIPOutput(output string) (models.SocketCANStats, error) {
	stats := models.SocketCANStats{}
	lines := strings.Split(output, "\n")
	if len(lines) == 0 || !flagsPattern.MatchString(lines[0]) {
		return stats, fmt.Errorf("unrecognized ip output")
	}

	for i, line := range lines {
		line = strings.TrimSpace(line)

		if i == 0 {
			// "3: can0: <NOARP,UP,LOWER_UP,ECHO> mtu 16 qdisc pfifo_fast state UP ... qlen 10"
			if m := flagsPattern.FindStringSubmatch(line); len(m) > 1 {
				stats.State = "DOWN"
				for _, flag := range strings.Split(m[1], ",") {
					if flag == "UP" {
						stats.State = "UP"
					}
				}
			}
			stats.MTU = atoi(mtuPattern, line)
			stats.QueueLength = atoi(qlenPattern, line)
			continue
		}

		if strings.HasPrefix(line, "can ") {
			// "can state ERROR-ACTIVE (berr-counter tx 0 rx 0) restart-ms 0"
			if m := busStatePattern.FindStringSubmatch(line); len(m) > 1 {
				stats.BusState = m[1]
			}
			if m := berrPattern.FindStringSubmatch(line); len(m) > 2 {
				stats.TXErrorCounter, _ = strconv.Atoi(m[1])
				stats.RXErrorCounter, _ = strconv.Atoi(m[2])
			}
			stats.RestartMS = atoi(restartPattern, line)
			if strings.Contains(line, "LOOPBACK") {
				stats.ControllerMode = "LOOPBACK"
			} else if strings.Contains(line, "LISTEN-ONLY") {
				stats.ControllerMode = "LISTEN-ONLY"
			}
		}

		if strings.HasPrefix(line, "bitrate ") {
			stats.Bitrate = atoi(bitratePattern, line)
			if m := samplePointPattern.FindStringSubmatch(line); len(m) > 1 {
				sp, _ := strconv.ParseFloat(m[1], 64)
				stats.SamplePoint = fmt.Sprintf("%.1f%%", sp*100)
			}
		}

		// Counter tables are a header line followed by a values line.
		if i+1 >= len(lines) {
			continue
		}
		values := strings.Fields(lines[i+1])
		switch {
		case strings.HasPrefix(line, "re-started"):
			// "re-started bus-errors arbit-lost error-warn error-pass bus-off"
			if len(values) >= 6 {
				stats.BusOffRestarts = parseUint(values[0])
				stats.ArbitrationLost = parseUint(values[2])
				stats.ErrorWarning = parseUint(values[3])
				stats.ErrorPassive = parseUint(values[4])
				stats.BusOff = parseUint(values[5])
			}
		case strings.HasPrefix(line, "RX:"):
			// "RX: bytes  packets  errors  dropped overrun mcast"
			if len(values) >= 5 {
				stats.RXBytes = parseUint(values[0])
				stats.RXPackets = parseUint(values[1])
				stats.RXErrors = parseUint(values[2])
				stats.RXDropped = parseUint(values[3])
				stats.RXOverErrors = parseUint(values[4])
			}
		case strings.HasPrefix(line, "TX:"):
			// "TX: bytes  packets  errors  dropped carrier collsns"
			if len(values) >= 6 {
				stats.TXBytes = parseUint(values[0])
				stats.TXPackets = parseUint(values[1])
				stats.TXErrors = parseUint(values[2])
				stats.TXDropped = parseUint(values[3])
				stats.TXCarrierErrors = parseUint(values[4])
				stats.Collisions = parseUint(values[5])
			}
		}
	}

	return stats, nil
}

func atoi(pattern *regexp.Regexp, line string) int {
	m := pattern.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0
	}
	v, _ := strconv.Atoi(m[1])
	return v
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
