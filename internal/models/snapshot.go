package models

import (
	"time"

	"github.com/google/uuid"

	"conduit-capture/internal/projection"
	"conduit-capture/internal/schema"
)

// Snapshot is one projected capture as handed to the recording sinks.
type Snapshot struct {
	RunID      uuid.UUID       `json:"run_id"`
	CapturedAt time.Time       `json:"captured_at"`
	Slice      schema.Slice    `json:"slice"`
	Timestamp  int64           `json:"timestamp"` // microseconds, CoreInputs only
	Data       projection.Dict `json:"data"`
}

// NewSnapshot projects a decoded record. Timestamp is taken from the record
// when it is a full CoreInputs.
func NewSnapshot(runID uuid.UUID, at time.Time, slice schema.Slice, record any) (Snapshot, bool) {
	data, ok := projection.Record(record)
	if !ok {
		return Snapshot{}, false
	}
	s := Snapshot{RunID: runID, CapturedAt: at, Slice: slice, Data: data}
	if in, ok := record.(schema.CoreInputs); ok {
		s.Timestamp = in.Timestamp
	}
	return s, true
}
