package analysis

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/AlexisBnnft/Building-Waste/internal/dataprocessing"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Frequency is a resampling period
type Frequency string

// Supported frequencies
const (
	Hourly  Frequency = "H"
	Daily   Frequency = "D"
	Weekly  Frequency = "W"
	Monthly Frequency = "M"
)

// Frequencies lists the supported frequencies from finest to coarsest
var Frequencies = []Frequency{Hourly, Daily, Weekly, Monthly}

// ParseFrequency accepts H, D, W or M in either case. An empty string
// selects Weekly.
func ParseFrequency(s string) (Frequency, error) {
	if s == "" {
		return Weekly, nil
	}
	f := Frequency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Frequencies {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected H, D, W or M)", domain.ErrUnknownFrequency, s)
}

// Name returns the human readable name of the frequency
func (f Frequency) Name() string {
	switch f {
	case Hourly:
		return "Hourly"
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	}
	return string(f)
}

// Label returns the timestamp of the period containing ts. Weeks end on
// Sunday and are labelled by it; months are labelled by their last day.
func (f Frequency) Label(ts time.Time) time.Time {
	y, m, d := ts.Date()
	loc := ts.Location()
	switch f {
	case Hourly:
		return ts.Truncate(time.Hour)
	case Daily:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case Weekly:
		offset := (7 - int(ts.Weekday())) % 7
		return time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
	case Monthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, loc)
	}
	return ts
}

// next returns the label following label
func (f Frequency) next(label time.Time) time.Time {
	y, m, d := label.Date()
	loc := label.Location()
	switch f {
	case Hourly:
		return label.Add(time.Hour)
	case Daily:
		return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case Weekly:
		return time.Date(y, m, d+7, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m+2, 0, 0, 0, 0, 0, loc)
	}
}

// Resample sums the rows of f into periods of the given frequency. Every
// period between the first and the last label is present; empty periods
// sum to 0.
func Resample(f *dataprocessing.Frame, freq Frequency) (*dataprocessing.Frame, error) {
	if _, err := ParseFrequency(string(freq)); err != nil {
		return nil, err
	}
	if f.Len() == 0 {
		return dataprocessing.NewFrame(nil, f.Columns()), nil
	}

	start, end, _ := f.TimeRange()
	first, last := freq.Label(start), freq.Label(end)

	var labels []time.Time
	pos := make(map[int64]int)
	for l := first; !l.After(last); l = freq.next(l) {
		pos[l.UnixNano()] = len(labels)
		labels = append(labels, l)
	}

	rows := make([][]float64, len(labels))
	for i := range rows {
		rows[i] = make([]float64, f.Width())
	}
	for i, ts := range f.Index() {
		row := rows[pos[freq.Label(ts).UnixNano()]]
		for j := 0; j < f.Width(); j++ {
			if v := f.At(i, j); !math.IsNaN(v) {
				row[j] += v
			}
		}
	}

	return dataprocessing.NewFrameFromRows(labels, f.Columns(), rows)
}
