package main

import (
	"log"
	"time"

	"github.com/google/uuid"

	"conduit-capture/internal/buffer"
	"conduit-capture/internal/capture"
	"conduit-capture/internal/conduit"
	"conduit-capture/internal/database"
	"conduit-capture/internal/models"
	"conduit-capture/internal/schema"
)

// errorLogEvery limits how often repeated read errors are logged.
const errorLogEvery = 100

type readFunc func() (any, error)

// capturer runs one read per configured slice on every poll and fans the
// projected snapshots out to the sinks.
type capturer struct {
	runID   uuid.UUID
	slices  []schema.Slice
	reads   map[schema.Slice]readFunc
	writers []database.Writer

	lastTimestamp int64
	captured      uint64
	errors        uint64
}

func newCapturer(runID uuid.UUID, io *conduit.WPILibIO, src capture.Source, slices []schema.Slice, writers []database.Writer) *capturer {
	return &capturer{
		runID:         runID,
		slices:        slices,
		reads:         readers(io.Buffer(), io, src),
		writers:       writers,
		lastTimestamp: -1,
	}
}

func readers(buf *buffer.Shared, io *conduit.WPILibIO, src capture.Source) map[schema.Slice]readFunc {
	ds := conduit.NewDsReader(buf, src)
	pdp := conduit.NewPDPReader(buf, src)
	sys := conduit.NewSystemReader(buf, src)
	return map[schema.Slice]readFunc{
		schema.SliceCore:   func() (any, error) { return io.CaptureData() },
		schema.SliceDS:     func() (any, error) { return ds.Read() },
		schema.SlicePDP:    func() (any, error) { return pdp.Read() },
		schema.SliceSystem: func() (any, error) { return sys.Read() },
	}
}

func (c *capturer) cycle(now time.Time) {
	for _, slice := range c.slices {
		record, err := c.reads[slice]()
		if err != nil {
			c.errors++
			if c.errors%errorLogEvery == 1 {
				log.Printf("[%s] Read failed (%d errors so far): %v", slice, c.errors, err)
			}
			continue
		}

		snapshot, ok := models.NewSnapshot(c.runID, now, slice, record)
		if !ok {
			continue
		}
		if slice == schema.SliceCore {
			if snapshot.Timestamp < c.lastTimestamp {
				log.Printf("[core] Warning: timestamp went backwards: %d -> %d", c.lastTimestamp, snapshot.Timestamp)
			}
			c.lastTimestamp = snapshot.Timestamp
		}

		c.captured++
		for _, w := range c.writers {
			w.Write(snapshot)
		}

		// Log every 1000 snapshots
		if c.captured%1000 == 0 {
			log.Printf("Captured %d snapshots (errors: %d)", c.captured, c.errors)
		}
	}
}
