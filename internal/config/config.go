package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"conduit-capture/internal/schema"
)

// Config holds all application configuration
type Config struct {
	// Capture
	CaptureSource string        `yaml:"capture_source"` // file or host
	SharedFile    string        `yaml:"shared_file"`
	CANInterface  string        `yaml:"can_interface"`
	TeamNumber    int           `yaml:"team_number"`
	ThermalZone   string        `yaml:"thermal_zone"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Slices        []string      `yaml:"slices"`
	StatsInterval int           `yaml:"stats_interval"`

	// ClickHouse
	ClickHouseEnabled    bool   `yaml:"clickhouse_enabled"`
	ClickHouseHost       string `yaml:"clickhouse_host"`
	ClickHousePort       int    `yaml:"clickhouse_port"`
	ClickHouseDatabase   string `yaml:"clickhouse_database"`
	ClickHouseUsername   string `yaml:"clickhouse_username"`
	ClickHousePassword   string `yaml:"clickhouse_password"`
	ClickHouseTable      string `yaml:"clickhouse_table"`
	ClickHouseStatsTable string `yaml:"clickhouse_stats_table"`

	// InfluxDB
	InfluxDBEnabled     bool   `yaml:"influxdb_enabled"`
	InfluxDBURL         string `yaml:"influxdb_url"`
	InfluxDBToken       string `yaml:"influxdb_token"`
	InfluxDBDatabase    string `yaml:"influxdb_database"`
	InfluxDBMeasurement string `yaml:"influxdb_measurement"`

	// MQTT
	MQTTEnabled     bool   `yaml:"mqtt_enabled"`
	MQTTBroker      string `yaml:"mqtt_broker"`
	MQTTClientID    string `yaml:"mqtt_client_id"`
	MQTTTopicPrefix string `yaml:"mqtt_topic_prefix"`
	MQTTQoS         int    `yaml:"mqtt_qos"`

	// SQLite
	SQLiteEnabled bool   `yaml:"sqlite_enabled"`
	SQLitePath    string `yaml:"sqlite_path"`

	// Logging
	LogDir        string `yaml:"log_dir"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb"`
	LogMaxBackups int    `yaml:"log_max_backups"`
	LogMaxAgeDays int    `yaml:"log_max_age_days"`

	// General
	BatchSize int `yaml:"batch_size"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		CaptureSource:        "file",
		SharedFile:           "/dev/shm/conduit",
		CANInterface:         "",
		TeamNumber:           0,
		ThermalZone:          "/sys/class/thermal/thermal_zone0/temp",
		PollInterval:         20 * time.Millisecond,
		Slices:               []string{"core"},
		StatsInterval:        10,
		ClickHouseHost:       "localhost",
		ClickHousePort:       9000,
		ClickHouseDatabase:   "default",
		ClickHouseUsername:   "default",
		ClickHouseTable:      "telemetry_snapshots",
		ClickHouseStatsTable: "can_interface_stats",
		InfluxDBURL:          "http://localhost:8181",
		InfluxDBDatabase:     "telemetry",
		InfluxDBMeasurement:  "telemetry",
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientID:         "conduit-capture",
		MQTTTopicPrefix:      "conduit",
		SQLitePath:           "conduit.db",
		LogDir:               "logs",
		LogMaxSizeMB:         25,
		LogMaxBackups:        5,
		LogMaxAgeDays:        7,
		BatchSize:            500,
	}
}

// LoadConfig loads configuration from a .env file, or from YAML when the
// path ends in .yaml or .yml. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path == "" {
		path = ".env"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("No config file found at %s, using default configuration\n", path)
			return config, nil
		}
		return nil, fmt.Errorf("error opening config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	default:
		if err := parseEnv(string(data), config); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func parseEnv(data string, config *Config) error {
	scanner := bufio.NewScanner(strings.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		value = strings.Trim(value, `"'`)

		var err error
		switch key {
		case "CAPTURE_SOURCE":
			config.CaptureSource = value
		case "SHARED_FILE":
			config.SharedFile = value
		case "CAN_INTERFACE":
			config.CANInterface = value
		case "TEAM_NUMBER":
			config.TeamNumber, err = strconv.Atoi(value)
		case "THERMAL_ZONE":
			config.ThermalZone = value
		case "POLL_INTERVAL":
			config.PollInterval, err = time.ParseDuration(value)
		case "SLICES":
			config.Slices = parseList(value)
		case "STATS_INTERVAL":
			config.StatsInterval, err = strconv.Atoi(value)
		case "CLICKHOUSE_ENABLED":
			config.ClickHouseEnabled, err = strconv.ParseBool(value)
		case "CLICKHOUSE_HOST":
			config.ClickHouseHost = value
		case "CLICKHOUSE_PORT":
			config.ClickHousePort, err = strconv.Atoi(value)
		case "CLICKHOUSE_DATABASE":
			config.ClickHouseDatabase = value
		case "CLICKHOUSE_USERNAME":
			config.ClickHouseUsername = value
		case "CLICKHOUSE_PASSWORD":
			config.ClickHousePassword = value
		case "CLICKHOUSE_TABLE":
			config.ClickHouseTable = value
		case "CLICKHOUSE_STATS_TABLE":
			config.ClickHouseStatsTable = value
		case "INFLUXDB_ENABLED":
			config.InfluxDBEnabled, err = strconv.ParseBool(value)
		case "INFLUXDB_URL":
			config.InfluxDBURL = value
		case "INFLUXDB_TOKEN":
			config.InfluxDBToken = value
		case "INFLUXDB_DATABASE":
			config.InfluxDBDatabase = value
		case "INFLUXDB_MEASUREMENT":
			config.InfluxDBMeasurement = value
		case "MQTT_ENABLED":
			config.MQTTEnabled, err = strconv.ParseBool(value)
		case "MQTT_BROKER":
			config.MQTTBroker = value
		case "MQTT_CLIENT_ID":
			config.MQTTClientID = value
		case "MQTT_TOPIC_PREFIX":
			config.MQTTTopicPrefix = value
		case "MQTT_QOS":
			config.MQTTQoS, err = strconv.Atoi(value)
		case "SQLITE_ENABLED":
			config.SQLiteEnabled, err = strconv.ParseBool(value)
		case "SQLITE_PATH":
			config.SQLitePath = value
		case "LOG_DIR":
			config.LogDir = value
		case "LOG_MAX_SIZE_MB":
			config.LogMaxSizeMB, err = strconv.Atoi(value)
		case "LOG_MAX_BACKUPS":
			config.LogMaxBackups, err = strconv.Atoi(value)
		case "LOG_MAX_AGE_DAYS":
			config.LogMaxAgeDays, err = strconv.Atoi(value)
		case "BATCH_SIZE":
			config.BatchSize, err = strconv.Atoi(value)
		}
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", lineNo, key, err)
		}
	}

	return scanner.Err()
}

// Validate rejects settings the capture daemon cannot run with.
func (c *Config) Validate() error {
	switch c.CaptureSource {
	case "file":
		if c.SharedFile == "" {
			return fmt.Errorf("shared_file is required for the file capture source")
		}
	case "host":
	default:
		return fmt.Errorf("unknown capture source %q", c.CaptureSource)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if len(c.Slices) == 0 {
		return fmt.Errorf("at least one slice must be polled")
	}
	for _, name := range c.Slices {
		if _, ok := schema.ParseSlice(name); !ok {
			return fmt.Errorf("unknown slice %q", name)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.MQTTQoS)
	}
	return nil
}

// parseList parses a comma-separated list, dropping empty entries
func parseList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
