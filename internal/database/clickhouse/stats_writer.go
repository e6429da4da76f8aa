package clickhouse

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
)

// StatsWriter handles writing SocketCAN statistics to ClickHouse
type StatsWriter struct {
	conn    driver.Conn
	batcher *database.Batcher[models.SocketCANStats]
}

// NewStatsWriter creates a new ClickHouse statistics writer
func NewStatsWriter(conn driver.Conn, batchSize int) *StatsWriter {
	return &StatsWriter{
		conn:    conn,
		batcher: database.NewBatcher[models.SocketCANStats]("clickhouse-stats", batchSize, 5*time.Second),
	}
}

// statsColumns lists the statistics table columns, one per line
const statsColumns = `
			timestamp DateTime64(6),
			interface String,
			state String,
			mtu UInt32,
			queue_length UInt32,

			-- CAN-specific parameters
			bitrate UInt32,
			sample_point String,
			restart_ms UInt32,
			controller_mode String,
			bus_state String,
			rx_error_counter UInt32,
			tx_error_counter UInt32,

			-- RX statistics
			rx_packets UInt64,
			rx_bytes UInt64,
			rx_errors UInt64,
			rx_dropped UInt64,
			rx_over_errors UInt64,

			-- TX statistics
			tx_packets UInt64,
			tx_bytes UInt64,
			tx_errors UInt64,
			tx_dropped UInt64,
			tx_carrier_errors UInt64,

			-- Controller error events
			collisions UInt64,
			bus_off_restarts UInt64,
			arbitration_lost UInt64,
			error_warning UInt64,
			error_passive UInt64,
			bus_off UInt64`

// CreateStatsTable creates the SocketCAN statistics table in ClickHouse
func CreateStatsTable(conn driver.Conn, tableName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
%s
		) ENGINE = MergeTree()
		ORDER BY (timestamp, interface)
		PARTITION BY toYYYYMMDD(timestamp)
		SETTINGS index_granularity = 8192
	`, tableName, statsColumns)

	return conn.Exec(context.Background(), query)
}

// statsRow returns the column values of one sample in table order
func statsRow(stat models.SocketCANStats) []any {
	return []any{
		stat.Timestamp,
		stat.Interface,
		stat.State,
		uint32(stat.MTU),
		uint32(stat.QueueLength),
		uint32(stat.Bitrate),
		stat.SamplePoint,
		uint32(stat.RestartMS),
		stat.ControllerMode,
		stat.BusState,
		uint32(stat.RXErrorCounter),
		uint32(stat.TXErrorCounter),
		stat.RXPackets,
		stat.RXBytes,
		stat.RXErrors,
		stat.RXDropped,
		stat.RXOverErrors,
		stat.TXPackets,
		stat.TXBytes,
		stat.TXErrors,
		stat.TXDropped,
		stat.TXCarrierErrors,
		stat.Collisions,
		stat.BusOffRestarts,
		stat.ArbitrationLost,
		stat.ErrorWarning,
		stat.ErrorPassive,
		stat.BusOff,
	}
}

// Start begins processing and writing statistics
func (w *StatsWriter) Start(tableName string) {
	w.batcher.Start(func(ctx context.Context, stats []models.SocketCANStats) error {
		return w.flush(ctx, tableName, stats)
	})
}

// flush writes one batch to ClickHouse
func (w *StatsWriter) flush(ctx context.Context, tableName string, stats []models.SocketCANStats) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, stat := range stats {
		if err := batch.Append(statsRow(stat)...); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("[clickhouse] Flushed %d statistics records", len(stats))
	return nil
}

// Write queues statistics for writing
func (w *StatsWriter) Write(stat models.SocketCANStats) {
	w.batcher.Add(stat)
}

// Close flushes pending statistics. The connection belongs to the snapshot
// writer and stays open.
func (w *StatsWriter) Close() error {
	w.batcher.Close()
	return nil
}
