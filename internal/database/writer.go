package database

import "conduit-capture/internal/models"

// Writer defines the interface for snapshot sinks
type Writer interface {
	// Start begins processing and writing snapshots
	Start(tableName string)

	// Write queues a snapshot for writing
	Write(s models.Snapshot)

	// Close flushes pending snapshots and releases the connection
	Close() error
}
