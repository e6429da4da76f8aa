package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
)

// Writer handles writing telemetry snapshots to ClickHouse
type Writer struct {
	conn    driver.Conn
	config  Config
	batcher *database.Batcher[models.Snapshot]
}

// Connect opens and pings a ClickHouse connection
func Connect(config Config) (driver.Conn, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", config.Host, config.Port)},
		Auth: clickhouse.Auth{
			Database: config.Database,
			Username: config.Username,
			Password: config.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test connection
	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	return conn, nil
}

// New creates a new ClickHouse writer and ensures the snapshot table exists
func New(config Config, batchSize int) (*Writer, error) {
	conn, err := Connect(config)
	if err != nil {
		return nil, err
	}

	if err := createTable(conn, config.Table); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Writer{
		conn:    conn,
		config:  config,
		batcher: database.NewBatcher[models.Snapshot]("clickhouse", batchSize, time.Second),
	}, nil
}

// createTable creates the snapshot table. The projected record is stored
// as JSON text so every slice shares one table.
func createTable(conn driver.Conn, tableName string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			captured_at DateTime64(6),
			run_id UUID,
			slice LowCardinality(String),
			timestamp Int64,
			payload String
		) ENGINE = MergeTree()
		ORDER BY (run_id, slice, captured_at)
		PARTITION BY toYYYYMMDD(captured_at)
		TTL toDateTime(captured_at) + INTERVAL 1 MONTH
		SETTINGS index_granularity = 8192
	`, tableName)

	return conn.Exec(context.Background(), query)
}

// snapshotRow returns the column values of one snapshot in table order
func snapshotRow(s models.Snapshot) ([]any, error) {
	payload, err := json.Marshal(s.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", s.Slice, err)
	}
	return []any{
		s.CapturedAt,
		s.RunID,
		s.Slice.String(),
		s.Timestamp,
		string(payload),
	}, nil
}

// Start begins processing and writing snapshots
func (w *Writer) Start(tableName string) {
	w.batcher.Start(func(ctx context.Context, batch []models.Snapshot) error {
		return w.flush(ctx, tableName, batch)
	})
}

// flush writes one batch to ClickHouse
func (w *Writer) flush(ctx context.Context, tableName string, snapshots []models.Snapshot) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s", tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, s := range snapshots {
		row, err := snapshotRow(s)
		if err != nil {
			batch.Abort()
			return err
		}
		if err := batch.Append(row...); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("[clickhouse] Flushed %d snapshots", len(snapshots))
	return nil
}

// Write queues a snapshot for writing
func (w *Writer) Write(s models.Snapshot) {
	w.batcher.Add(s)
}

// Close flushes pending snapshots and closes the ClickHouse connection
func (w *Writer) Close() error {
	w.batcher.Close()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Conn returns the underlying ClickHouse connection
func (w *Writer) Conn() driver.Conn {
	return w.conn
}
