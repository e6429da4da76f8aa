package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"conduit-capture/internal/projection"
	"conduit-capture/internal/schema"
)

// dump decodes one record from data and writes its projection as JSON.
// data is either a full CoreInputs buffer, in which case the slice's
// sub-record is taken at its offset, or a standalone record.
func dump(w io.Writer, data []byte, slice schema.Slice, flat bool) error {
	if slice != schema.SliceCore && len(data) >= schema.CoreInputsSize {
		data = data[slice.Offset():]
	}
	record, err := schema.Decode(slice, data)
	if err != nil {
		return err
	}
	d, ok := projection.Record(record)
	if !ok {
		return fmt.Errorf("no projection for %T", record)
	}
	if flat {
		d = projection.Flatten(d, ".")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

func main() {
	in := flag.String("in", "/dev/shm/conduit", "Path to a raw telemetry record file")
	sliceName := flag.String("slice", "core", "Record to decode: core, ds, pdp or sys")
	flat := flag.Bool("flat", false, "Flatten nested fields into dotted keys")
	flag.Parse()

	slice, ok := schema.ParseSlice(*sliceName)
	if !ok {
		log.Fatalf("Unknown slice %q", *sliceName)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *in, err)
	}

	if err := dump(os.Stdout, data, slice, *flat); err != nil {
		log.Fatalf("Failed to decode %s: %v", *in, err)
	}
}
