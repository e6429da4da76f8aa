package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"conduit-capture/internal/capture"
	"conduit-capture/internal/conduit"
	"conduit-capture/internal/config"
	"conduit-capture/internal/database"
	"conduit-capture/internal/database/clickhouse"
	"conduit-capture/internal/database/influxdb"
	"conduit-capture/internal/database/sqlite"
	"conduit-capture/internal/mqtt"
	"conduit-capture/internal/schema"
)

func setupLogging(cfg *config.Config) error {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "conduit-capture.log"),
		MaxSize:    cfg.LogMaxSizeMB,
		MaxAge:     cfg.LogMaxAgeDays,
		MaxBackups: cfg.LogMaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return nil
}

func buildSource(cfg *config.Config) (capture.Source, *capture.HostSource) {
	if cfg.CaptureSource == "host" {
		host := capture.NewHostSource(capture.HostConfig{
			CANInterface: cfg.CANInterface,
			TeamNumber:   int32(cfg.TeamNumber),
			ThermalZone:  cfg.ThermalZone,
		})
		return host, host
	}
	return capture.NewFileSource(cfg.SharedFile), nil
}

// namedWriter pairs a sink with the table it writes to.
type namedWriter struct {
	name   string
	table  string
	writer database.Writer
}

func buildSinks(cfg *config.Config) ([]namedWriter, *clickhouse.Writer, error) {
	var sinks []namedWriter
	var chWriter *clickhouse.Writer

	if cfg.ClickHouseEnabled {
		w, err := clickhouse.New(clickhouse.Config{
			Host:       cfg.ClickHouseHost,
			Port:       cfg.ClickHousePort,
			Database:   cfg.ClickHouseDatabase,
			Username:   cfg.ClickHouseUsername,
			Password:   cfg.ClickHousePassword,
			Table:      cfg.ClickHouseTable,
			StatsTable: cfg.ClickHouseStatsTable,
		}, cfg.BatchSize)
		if err != nil {
			return sinks, nil, err
		}
		chWriter = w
		sinks = append(sinks, namedWriter{"ClickHouse", cfg.ClickHouseTable, w})
		log.Printf("ClickHouse: %s:%d/%s.%s", cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase, cfg.ClickHouseTable)
	}

	if cfg.InfluxDBEnabled {
		w, err := influxdb.New(influxdb.Config{
			URL:         cfg.InfluxDBURL,
			Token:       cfg.InfluxDBToken,
			Database:    cfg.InfluxDBDatabase,
			Measurement: cfg.InfluxDBMeasurement,
		}, cfg.BatchSize)
		if err != nil {
			return sinks, chWriter, err
		}
		sinks = append(sinks, namedWriter{"InfluxDB", cfg.InfluxDBMeasurement, w})
		log.Printf("InfluxDB: %s/%s", cfg.InfluxDBURL, cfg.InfluxDBDatabase)
	}

	if cfg.SQLiteEnabled {
		w, err := sqlite.New(cfg.SQLitePath, cfg.BatchSize)
		if err != nil {
			return sinks, chWriter, err
		}
		sinks = append(sinks, namedWriter{"SQLite", "snapshots", w})
		log.Printf("SQLite: %s", cfg.SQLitePath)
	}

	if cfg.MQTTEnabled {
		mqttCfg := mqtt.Config{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         byte(cfg.MQTTQoS),
		}
		client, err := mqtt.Connect(mqttCfg)
		if err != nil {
			return sinks, chWriter, err
		}
		sinks = append(sinks, namedWriter{"MQTT", cfg.MQTTTopicPrefix, mqtt.NewPublisher(client, mqttCfg, cfg.BatchSize)})
	}

	return sinks, chWriter, nil
}

func main() {
	// Command line flag for config file
	configFile := flag.String("config", ".env", "Path to .env or YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := setupLogging(cfg); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	runID := uuid.New()
	log.Printf("Starting telemetry capture run %s...", runID)
	log.Printf("Capture source: %s, slices: %v, poll interval: %s", cfg.CaptureSource, cfg.Slices, cfg.PollInterval)

	src, host := buildSource(cfg)
	reader, err := conduit.New(src)
	if err != nil {
		log.Fatalf("Failed to allocate shared buffer: %v", err)
	}
	defer reader.Close()

	if err := reader.Start(); err != nil {
		log.Fatalf("Failed to start capture source: %v", err)
	}

	sinks, chWriter, err := buildSinks(cfg)
	for _, s := range sinks {
		defer s.writer.Close()
	}
	if err != nil {
		log.Fatalf("Failed to create sink: %v", err)
	}

	writers := make([]database.Writer, 0, len(sinks))
	for _, s := range sinks {
		s.writer.Start(s.table)
		writers = append(writers, s.writer)
	}

	slices := make([]schema.Slice, 0, len(cfg.Slices))
	for _, name := range cfg.Slices {
		slice, _ := schema.ParseSlice(name)
		slices = append(slices, slice)
	}
	c := newCapturer(runID, reader, src, slices, writers)

	// CAN interface statistics are only known for host captures
	var statsTicker <-chan time.Time
	var statsWriter *clickhouse.StatsWriter
	if chWriter != nil && host != nil && cfg.CANInterface != "" {
		if err := clickhouse.CreateStatsTable(chWriter.Conn(), cfg.ClickHouseStatsTable); err != nil {
			log.Fatalf("Failed to create statistics table: %v", err)
		}
		statsWriter = clickhouse.NewStatsWriter(chWriter.Conn(), max(cfg.BatchSize/10, 1))
		statsWriter.Start(cfg.ClickHouseStatsTable)
		defer statsWriter.Close()

		t := time.NewTicker(time.Duration(cfg.StatsInterval) * time.Second)
		defer t.Stop()
		statsTicker = t.C
	}

	log.Println("Capture started successfully. Press Ctrl+C to stop.")

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			c.cycle(now)

		case <-statsTicker:
			if stat, ok := host.LastInterfaceStats(); ok {
				statsWriter.Write(stat)
				log.Printf("Collected statistics for %s: RX packets=%d, TX packets=%d, Bus state=%s",
					stat.Interface, stat.RXPackets, stat.TXPackets, stat.BusState)
			}

		case <-sigChan:
			log.Println("Shutting down...")
			log.Printf("Final statistics: %d snapshots captured, %d errors", c.captured, c.errors)
			return
		}
	}
}
