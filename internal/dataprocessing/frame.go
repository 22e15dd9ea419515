package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Frame is a time-indexed table of float64 values: one row per timestamp and
// one named column per zone, AHU or bin. Missing values are NaN.
//
// Frames are treated as immutable by the transformation methods, which always
// return a new Frame.
type Frame struct {
	index   []time.Time
	columns []string
	// data is nil when the frame has no rows or no columns; mat.Dense cannot
	// represent zero-sized matrices.
	data *mat.Dense
}

// NewFrame creates a frame of the given shape filled with NaN.
func NewFrame(index []time.Time, columns []string) *Frame {
	f := &Frame{
		index:   append([]time.Time(nil), index...),
		columns: append([]string(nil), columns...),
	}
	if len(index) > 0 && len(columns) > 0 {
		f.data = mat.NewDense(len(index), len(columns), nil)
		for i := range index {
			row := f.data.RawRowView(i)
			for j := range row {
				row[j] = math.NaN()
			}
		}
	}
	return f
}

// NewFrameFromRows builds a frame from row-major values.
func NewFrameFromRows(index []time.Time, columns []string, rows [][]float64) (*Frame, error) {
	if len(rows) != len(index) {
		return nil, fmt.Errorf("frame has %d timestamps but %d rows", len(index), len(rows))
	}
	f := NewFrame(index, columns)
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(columns))
		}
		if f.data != nil {
			copy(f.data.RawRowView(i), row)
		}
	}
	return f, nil
}

// FromData converts the serialized form back into a frame.
func FromData(d domain.FrameData) *Frame {
	f := NewFrame(d.Index, d.Columns)
	for i, row := range d.Rows {
		if i >= len(d.Index) {
			break
		}
		for j, v := range row {
			if j < len(d.Columns) {
				f.Set(i, j, float64(v))
			}
		}
	}
	return f
}

// Data returns the serialized form of the frame.
func (f *Frame) Data() domain.FrameData {
	d := domain.FrameData{
		Index:   append([]time.Time{}, f.index...),
		Columns: append([]string{}, f.columns...),
		Rows:    make([][]domain.Value, len(f.index)),
	}
	for i := range f.index {
		row := make([]domain.Value, len(f.columns))
		for j := range f.columns {
			row[j] = domain.Value(f.At(i, j))
		}
		d.Rows[i] = row
	}
	return d
}

// Index returns the timestamps. The slice must not be modified.
func (f *Frame) Index() []time.Time { return f.index }

// Columns returns the column names. The slice must not be modified.
func (f *Frame) Columns() []string { return f.columns }

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.index) }

// Width returns the number of columns.
func (f *Frame) Width() int { return len(f.columns) }

// Empty reports whether the frame has no rows or no columns.
func (f *Frame) Empty() bool { return f == nil || f.data == nil }

// At returns the value at row i, column j.
func (f *Frame) At(i, j int) float64 {
	if f.data == nil {
		return math.NaN()
	}
	return f.data.At(i, j)
}

// Set stores v at row i, column j.
func (f *Frame) Set(i, j int, v float64) {
	if f.data != nil {
		f.data.Set(i, j, v)
	}
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []float64 {
	row := make([]float64, len(f.columns))
	if f.data != nil {
		copy(row, f.data.RawRowView(i))
	}
	return row
}

// ColumnIndex returns the position of a column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for j, c := range f.columns {
		if c == name {
			return j
		}
	}
	return -1
}

// HasColumn reports whether the column exists.
func (f *Frame) HasColumn(name string) bool {
	return f.ColumnIndex(name) >= 0
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	j := f.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	if f.data == nil {
		return []float64{}, true
	}
	return mat.Col(nil, j, f.data), true
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := &Frame{
		index:   append([]time.Time(nil), f.index...),
		columns: append([]string(nil), f.columns...),
	}
	if f.data != nil {
		c.data = mat.DenseCopyOf(f.data)
	}
	return c
}

// Select returns the given columns in the given order. Columns absent from f
// are filled with NaN.
func (f *Frame) Select(columns []string) *Frame {
	out := NewFrame(f.index, columns)
	for j, name := range columns {
		src := f.ColumnIndex(name)
		if src < 0 {
			continue
		}
		for i := range f.index {
			out.Set(i, j, f.At(i, src))
		}
	}
	return out
}

// Reindex conforms the frame to a new index. Rows are matched on exact
// timestamps; timestamps absent from f produce NaN rows. When f holds the same
// timestamp more than once the first occurrence wins.
func (f *Frame) Reindex(index []time.Time) *Frame {
	pos := make(map[int64]int, len(f.index))
	for i, ts := range f.index {
		key := ts.UnixNano()
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	out := NewFrame(index, f.columns)
	if out.data == nil || f.data == nil {
		return out
	}
	for i, ts := range index {
		src, ok := pos[ts.UnixNano()]
		if !ok {
			continue
		}
		copy(out.data.RawRowView(i), f.data.RawRowView(src))
	}
	return out
}

// FFill propagates the last valid value of each column forward.
func (f *Frame) FFill() *Frame {
	out := f.Clone()
	if out.data == nil {
		return out
	}
	for j := range out.columns {
		last := math.NaN()
		for i := range out.index {
			v := out.data.At(i, j)
			if math.IsNaN(v) {
				out.data.Set(i, j, last)
			} else {
				last = v
			}
		}
	}
	return out
}

// BFill propagates the next valid value of each column backward.
func (f *Frame) BFill() *Frame {
	out := f.Clone()
	if out.data == nil {
		return out
	}
	for j := range out.columns {
		next := math.NaN()
		for i := len(out.index) - 1; i >= 0; i-- {
			v := out.data.At(i, j)
			if math.IsNaN(v) {
				out.data.Set(i, j, next)
			} else {
				next = v
			}
		}
	}
	return out
}

// FillNaN replaces every missing value with v.
func (f *Frame) FillNaN(v float64) *Frame {
	out := f.Clone()
	if out.data == nil {
		return out
	}
	out.data.Apply(func(_, _ int, x float64) float64 {
		if math.IsNaN(x) {
			return v
		}
		return x
	}, out.data)
	return out
}

// FilterRows keeps the rows for which keep returns true.
func (f *Frame) FilterRows(keep func(ts time.Time, row []float64) bool) *Frame {
	var (
		index []time.Time
		rows  [][]float64
	)
	for i, ts := range f.index {
		row := f.Row(i)
		if keep(ts, row) {
			index = append(index, ts)
			rows = append(rows, row)
		}
	}
	out, _ := NewFrameFromRows(index, f.columns, rows)
	return out
}

// RowSums returns the sum of each row, ignoring missing values.
func (f *Frame) RowSums() []float64 {
	sums := make([]float64, len(f.index))
	for i := range f.index {
		sums[i] = NaNSum(f.Row(i))
	}
	return sums
}

// ColumnSums returns the sum of each column, ignoring missing values.
func (f *Frame) ColumnSums() []float64 {
	sums := make([]float64, len(f.columns))
	if f.data == nil {
		return sums
	}
	for j := range f.columns {
		sums[j] = NaNSum(mat.Col(nil, j, f.data))
	}
	return sums
}

// Total returns the sum of every value, ignoring missing values.
func (f *Frame) Total() float64 {
	return floats.Sum(f.ColumnSums())
}

// TimeRange returns the earliest and latest timestamps of the frame.
func (f *Frame) TimeRange() (start, end time.Time, ok bool) {
	for i, ts := range f.index {
		if i == 0 || ts.Before(start) {
			start = ts
		}
		if i == 0 || ts.After(end) {
			end = ts
		}
	}
	return start, end, len(f.index) > 0
}

// NaNSum sums xs, skipping NaN. A slice of only NaN sums to 0.
func NaNSum(xs []float64) float64 {
	valid := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			valid = append(valid, x)
		}
	}
	return floats.Sum(valid)
}

// HourlyIndex returns timestamps from start to end inclusive, one hour apart.
func HourlyIndex(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}
	n := int(end.Sub(start)/time.Hour) + 1
	index := make([]time.Time, 0, n)
	for ts := start; !ts.After(end); ts = ts.Add(time.Hour) {
		index = append(index, ts)
	}
	return index
}

// SpanOf returns the earliest and latest timestamps across frames.
func SpanOf(frames ...*Frame) (start, end time.Time, ok bool) {
	for _, f := range frames {
		if f == nil {
			continue
		}
		s, e, has := f.TimeRange()
		if !has {
			continue
		}
		if !ok || s.Before(start) {
			start = s
		}
		if !ok || e.After(end) {
			end = e
		}
		ok = true
	}
	return start, end, ok
}

// UnionIndex returns the sorted, de-duplicated timestamps of all frames.
func UnionIndex(frames ...*Frame) []time.Time {
	seen := make(map[int64]bool)
	var index []time.Time
	for _, f := range frames {
		if f == nil {
			continue
		}
		for _, ts := range f.index {
			if !seen[ts.UnixNano()] {
				seen[ts.UnixNano()] = true
				index = append(index, ts)
			}
		}
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Before(index[j]) })
	return index
}
