package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Input keys of a building, also used as upload form fields.
const (
	InputIAT     = "iat"
	InputHSP     = "hsp"
	InputCSP     = "csp"
	InputAirflow = "airflow"
	InputAHUDat  = "ahu_dat"
	InputMap     = "map"
	InputCooling = "cooling"
)

// Input ties an input key to the file it is read from.
type Input struct {
	Key  string
	File string
}

// RequiredInputs lists the seven files every building directory must hold.
var RequiredInputs = []Input{
	{Key: InputIAT, File: "zone_temps.csv"},
	{Key: InputHSP, File: "zone_heating_setpoints.csv"},
	{Key: InputCSP, File: "zone_cooling_setpoints.csv"},
	{Key: InputAirflow, File: "zone_airflow.csv"},
	{Key: InputAHUDat, File: "ahu_discharge_temps.csv"},
	{Key: InputMap, File: "zone_to_ahu_map.csv"},
	{Key: InputCooling, File: "building_total_cooling.csv"},
}

// CoolingColumn names the single column of a loaded cooling series.
const CoolingColumn = "cooling"

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseTimestamp parses a timestamp in any of the accepted layouts. Values
// without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseValue reads a numeric cell; blanks and garbage are missing values.
func parseValue(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

func readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, domain.ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, nil
}

// ReadFrame parses a time-series CSV whose first column is the timestamp.
func ReadFrame(r io.Reader) (*Frame, error) {
	reader := newCSVReader(r)
	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("expected a timestamp column and at least one value column, got %d columns", len(header))
	}
	columns := header[1:]

	var (
		index []time.Time
		rows  [][]float64
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}

		ts, err := ParseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		row := make([]float64, len(columns))
		for j := range columns {
			if j+1 < len(record) {
				row[j] = parseValue(record[j+1])
			} else {
				row[j] = math.NaN()
			}
		}
		index = append(index, ts)
		rows = append(rows, row)
	}

	return NewFrameFromRows(index, columns, rows)
}

// ReadSeries parses a time-series CSV and keeps its first value column,
// renamed to CoolingColumn.
func ReadSeries(r io.Reader) (*Frame, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	series := f.Select(f.Columns()[:1])
	series.columns[0] = CoolingColumn
	return series, nil
}

// LoadFrame reads a time-series CSV file.
func LoadFrame(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	f, err := ReadFrame(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// BuildingInputs holds the loaded inputs of one building.
type BuildingInputs struct {
	IAT     *Frame
	HSP     *Frame
	CSP     *Frame
	Airflow *Frame
	AHUDat  *Frame
	Map     *ZoneMap
	Cooling *Frame
}

// InputError reports which input could not be read.
type InputError struct {
	Key string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Key, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// ReadBuilding parses the seven inputs from readers keyed by input key.
func ReadBuilding(readers map[string]io.Reader) (*BuildingInputs, error) {
	in := &BuildingInputs{}
	for _, input := range RequiredInputs {
		r, ok := readers[input.Key]
		if !ok || r == nil {
			return nil, &InputError{Key: input.Key, Err: domain.ErrMissingFile}
		}
		if err := in.read(input.Key, r); err != nil {
			return nil, &InputError{Key: input.Key, Err: err}
		}
	}
	return in, nil
}

// LoadBuilding reads the seven input files from dir.
func LoadBuilding(dir string) (*BuildingInputs, error) {
	readers := make(map[string]io.Reader, len(RequiredInputs))
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	for _, input := range RequiredInputs {
		file, err := os.Open(filepath.Join(dir, input.File))
		if errors.Is(err, os.ErrNotExist) {
			return nil, &InputError{Key: input.Key, Err: fmt.Errorf("%w: %s", domain.ErrMissingFile, input.File)}
		}
		if err != nil {
			return nil, &InputError{Key: input.Key, Err: fmt.Errorf("failed to open file: %w", err)}
		}
		closers = append(closers, file)
		readers[input.Key] = file
	}
	return ReadBuilding(readers)
}

func (in *BuildingInputs) read(key string, r io.Reader) error {
	var err error
	switch key {
	case InputIAT:
		in.IAT, err = ReadFrame(r)
	case InputHSP:
		in.HSP, err = ReadFrame(r)
	case InputCSP:
		in.CSP, err = ReadFrame(r)
	case InputAirflow:
		in.Airflow, err = ReadFrame(r)
	case InputAHUDat:
		in.AHUDat, err = ReadFrame(r)
	case InputMap:
		in.Map, err = ReadZoneMap(r)
	case InputCooling:
		in.Cooling, err = ReadSeries(r)
	default:
		err = fmt.Errorf("unknown input %q", key)
	}
	return err
}
