package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// Value is a float64 that serializes NaN as JSON null.
type Value float64

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*v = Value(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Value(f)
	return nil
}

// FrameData is the serialized form of a time-indexed table: one row per
// timestamp, one value per column.
type FrameData struct {
	Index   []time.Time `json:"index"`
	Columns []string    `json:"columns"`
	Rows    [][]Value   `json:"rows"`
}

// Empty reports whether the frame has no rows or no columns.
func (f FrameData) Empty() bool {
	return len(f.Index) == 0 || len(f.Columns) == 0
}
