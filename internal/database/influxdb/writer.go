package influxdb

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/InfluxCommunity/influxdb3-go/v2/influxdb3"

	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
	"conduit-capture/internal/projection"
)

// Writer handles writing telemetry snapshots to InfluxDB
type Writer struct {
	client      *influxdb3.Client
	measurement string
	batcher     *database.Batcher[models.Snapshot]
}

// New creates a new InfluxDB writer
func New(config Config, batchSize int) (*Writer, error) {
	client, err := influxdb3.New(influxdb3.ClientConfig{
		Host:     config.URL,
		Token:    config.Token,
		Database: config.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create InfluxDB client: %w", err)
	}

	return &Writer{
		client:      client,
		measurement: config.Measurement,
		batcher:     database.NewBatcher[models.Snapshot]("influxdb", batchSize, time.Second),
	}, nil
}

// Start begins processing and writing snapshots. Points go to the
// configured measurement; the table name is unused.
func (w *Writer) Start(string) {
	w.batcher.Start(w.flush)
}

// snapshotTags identifies the run and slice of a point
func snapshotTags(s models.Snapshot) map[string]string {
	return map[string]string{
		"run_id": s.RunID.String(),
		"slice":  s.Slice.String(),
	}
}

// snapshotFields flattens the projected record into point fields
func snapshotFields(s models.Snapshot) map[string]any {
	flat := projection.Flatten(s.Data, ".")
	fields := make(map[string]any, flat.Len())
	for _, f := range flat {
		if v, ok := fieldValue(f.Value); ok {
			fields[f.Key] = v
		}
	}
	return fields
}

// fieldValue widens projected scalars to the types line protocol carries
func fieldValue(v any) (any, bool) {
	switch v := v.(type) {
	case bool, string, int64, uint64, float64:
		return v, true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case float32:
		return float64(v), true
	}
	return nil, false
}

// flush writes one batch to InfluxDB
func (w *Writer) flush(ctx context.Context, snapshots []models.Snapshot) error {
	points := make([]*influxdb3.Point, 0, len(snapshots))
	for _, s := range snapshots {
		points = append(points, influxdb3.NewPoint(
			w.measurement,
			snapshotTags(s),
			snapshotFields(s),
			s.CapturedAt,
		))
	}

	if err := w.client.WritePoints(ctx, points); err != nil {
		return fmt.Errorf("failed to write points: %w", err)
	}

	log.Printf("[influxdb] Flushed %d snapshots", len(snapshots))
	return nil
}

// Write queues a snapshot for writing
func (w *Writer) Write(s models.Snapshot) {
	w.batcher.Add(s)
}

// Close flushes pending snapshots and closes the InfluxDB client
func (w *Writer) Close() error {
	w.batcher.Close()
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}
