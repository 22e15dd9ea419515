package dataprocessing

import (
	"fmt"
	"io"
	"strings"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Zone map column names.
const (
	ZoneIDColumn = "ZoneID"
	AHUIDColumn  = "AHUID"
)

// ZoneMap is the zone-to-AHU table. It keeps every column of the file so the
// zone filter can work on the first column regardless of its name.
type ZoneMap struct {
	Columns []string
	Rows    [][]string
}

// ZoneAssignment links a zone to the AHU that serves it.
type ZoneAssignment struct {
	Zone string
	AHU  string
}

// ReadZoneMap parses the zone-to-AHU CSV.
func ReadZoneMap(r io.Reader) (*ZoneMap, error) {
	reader := newCSVReader(r)
	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read zone map: %w", err)
	}

	m := &ZoneMap{Columns: header}
	for _, record := range records {
		row := make([]string, len(header))
		blank := true
		for j := range header {
			if j < len(record) {
				row[j] = strings.TrimSpace(record[j])
			}
			if row[j] != "" {
				blank = false
			}
		}
		if !blank {
			m.Rows = append(m.Rows, row)
		}
	}
	return m, nil
}

// Len returns the number of rows.
func (m *ZoneMap) Len() int { return len(m.Rows) }

// Assignments returns the (zone, AHU) pairs in file order. The map must have
// the ZoneID and AHUID columns.
func (m *ZoneMap) Assignments() ([]ZoneAssignment, error) {
	zoneCol, ahuCol := -1, -1
	for j, c := range m.Columns {
		switch c {
		case ZoneIDColumn:
			zoneCol = j
		case AHUIDColumn:
			ahuCol = j
		}
	}
	if zoneCol < 0 || ahuCol < 0 {
		return nil, fmt.Errorf("%w: zone map must contain %s and %s columns, got %v",
			domain.ErrInvalidZoneMap, ZoneIDColumn, AHUIDColumn, m.Columns)
	}

	out := make([]ZoneAssignment, 0, len(m.Rows))
	for _, row := range m.Rows {
		out = append(out, ZoneAssignment{Zone: row[zoneCol], AHU: row[ahuCol]})
	}
	return out, nil
}

// FilterFirstColumn keeps the rows whose first column satisfies keep.
func (m *ZoneMap) FilterFirstColumn(keep func(string) bool) *ZoneMap {
	out := &ZoneMap{Columns: append([]string(nil), m.Columns...)}
	for _, row := range m.Rows {
		if len(row) > 0 && keep(row[0]) {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}
