package exporter

import (
	"math"
	"strconv"
	"time"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// TimestampLayout is the timestamp format of exported rows
const TimestampLayout = "2006-01-02 15:04:05"

// formatValue formats a value with the shortest exact representation.
// Missing values become an empty string.
func formatValue(v domain.Value) string {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}
