package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TimestampColumn is the header of the first CSV column
const TimestampColumn = "timestamp"

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteFrameCSV writes one row per timestamp, preceded by a header.
func WriteFrameCSV(w io.Writer, frame domain.FrameData, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	header := append([]string{TimestampColumn}, frame.Columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	record := make([]string, len(header))
	for i, ts := range frame.Index {
		record[0] = formatTimestamp(ts)
		for j := range frame.Columns {
			record[j+1] = ""
			if i < len(frame.Rows) && j < len(frame.Rows[i]) {
				record[j+1] = formatValue(frame.Rows[i][j])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteViewCSV writes the binned series of a view followed by its
// regrouped categories, one row per period.
func WriteViewCSV(w io.Writer, view *domain.AnalysisView) error {
	return WriteFrameCSV(w, joinColumns(view.Binned, view.Regrouped), WriteOptions{BOMPrefix: true})
}

// joinColumns places the columns of b after those of a. Both frames must
// share the same index.
func joinColumns(a, b domain.FrameData) domain.FrameData {
	out := domain.FrameData{
		Index:   a.Index,
		Columns: append(append([]string{}, a.Columns...), b.Columns...),
		Rows:    make([][]domain.Value, len(a.Index)),
	}
	for i := range a.Index {
		row := make([]domain.Value, 0, len(out.Columns))
		if i < len(a.Rows) {
			row = append(row, a.Rows[i]...)
		}
		if i < len(b.Rows) {
			row = append(row, b.Rows[i]...)
		}
		out.Rows[i] = row
	}
	return out
}

// CSVWriter writes CSV files under the output directory
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteFile writes frame to filePath, relative to the output directory
// unless absolute.
func (w *CSVWriter) WriteFile(filePath string, frame domain.FrameData) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(frame.Index)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := WriteFrameCSV(file, frame, WriteOptions{BOMPrefix: true}); err != nil {
		file.Close()
		return "", err
	}
	return fullPath, file.Close()
}

// resolvePath resolves a path to the output directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil {
		return filePath
	}
	return filepath.Join(w.paths.OutputDir, filePath)
}
