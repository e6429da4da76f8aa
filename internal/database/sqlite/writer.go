// Package sqlite records snapshots to a local database file for bench
// sessions without a telemetry server.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"

	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Writer handles writing telemetry snapshots to SQLite
type Writer struct {
	db      *sql.DB
	batcher *database.Batcher[models.Snapshot]
}

// New opens the database at path and creates it if needed
func New(path string, batchSize int) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer connection avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	return &Writer{
		db:      db,
		batcher: database.NewBatcher[models.Snapshot]("sqlite", batchSize, time.Second),
	}, nil
}

// EnsureTable creates the snapshot table
func (w *Writer) EnsureTable(tableName string) error {
	_, err := w.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			captured_at TEXT NOT NULL,
			run_id TEXT NOT NULL,
			slice TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run ON %s (run_id, slice, captured_at);
	`, tableName, tableName, tableName))
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Start creates the table and begins writing snapshots
func (w *Writer) Start(tableName string) {
	if err := w.EnsureTable(tableName); err != nil {
		log.Printf("[sqlite] %v", err)
	}
	w.batcher.Start(func(ctx context.Context, batch []models.Snapshot) error {
		return w.flush(ctx, tableName, batch)
	})
}

// flush inserts one batch in a single transaction
func (w *Writer) flush(ctx context.Context, tableName string, snapshots []models.Snapshot) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (captured_at, run_id, slice, timestamp, payload) VALUES (?, ?, ?, ?, ?)`, tableName))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range snapshots {
		payload, err := json.Marshal(s.Data)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", s.Slice, err)
		}
		_, err = stmt.ExecContext(ctx,
			s.CapturedAt.UTC().Format(time.RFC3339Nano),
			s.RunID.String(),
			s.Slice.String(),
			s.Timestamp,
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	log.Printf("[sqlite] Flushed %d snapshots", len(snapshots))
	return nil
}

// Write queues a snapshot for writing
func (w *Writer) Write(s models.Snapshot) {
	w.batcher.Add(s)
}

// Close flushes pending snapshots and closes the database
func (w *Writer) Close() error {
	w.batcher.Close()
	return w.db.Close()
}
