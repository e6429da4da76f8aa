// Package projection turns decoded telemetry records into ordered key/value
// dictionaries for callers outside the decoder.
package projection

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Field is one named value of a Dict.
type Field struct {
	Key   string
	Value any
}

// Dict is an ordered mapping. Keys keep the order the record declares them
// in, and JSON output follows that order.
type Dict []Field

// Add appends a field.
func (d *Dict) Add(key string, value any) {
	*d = append(*d, Field{Key: key, Value: value})
}

// Get returns the value stored under key.
func (d Dict) Get(key string) (any, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (d Dict) Keys() []string {
	keys := make([]string, len(d))
	for i, f := range d {
		keys[i] = f.Key
	}
	return keys
}

// Len returns the number of fields.
func (d Dict) Len() int {
	return len(d)
}

// MarshalJSON encodes the dict as a JSON object in field order.
func (d Dict) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Flatten collapses nested dicts and lists into a single level, joining
// keys with sep. List elements are keyed by index, so
// sys.can_status.bus_off_count and pdp.channel_currents.3 become top-level
// keys.
func Flatten(d Dict, sep string) Dict {
	out := make(Dict, 0, len(d))
	flattenInto(&out, "", sep, d)
	return out
}

func flattenInto(out *Dict, prefix, sep string, v any) {
	switch v := v.(type) {
	case Dict:
		for _, f := range v {
			flattenInto(out, join(prefix, sep, f.Key), sep, f.Value)
		}
	case []any:
		for i, e := range v {
			flattenInto(out, join(prefix, sep, strconv.Itoa(i)), sep, e)
		}
	default:
		out.Add(prefix, v)
	}
}

func join(prefix, sep, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + sep + key
}
