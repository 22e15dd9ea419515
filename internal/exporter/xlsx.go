package exporter

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetSummary      = "Summary"
	SheetBinned       = "Binned"
	SheetRegrouped    = "Regrouped"
	SheetZonalCooling = "Zonal Cooling"
	SheetWasteful     = "Top Wasteful"
	SheetDemanding    = "Top Demanding"
)

// WriteWorkbook writes an XLSX workbook with the summary, the binned and
// regrouped series of view, the hourly zonal cooling and both rankings.
func WriteWorkbook(w io.Writer, a *domain.BuildingAnalysis, view *domain.AnalysisView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename first sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	s := view.Summary
	summary := [][]interface{}{
		{"Building", view.Building},
		{"Frequency", view.Frequency},
		{"Total cooling", s.Total},
		{"Useful", s.Useful},
		{"Excess", s.Excess},
		{"Wasted", s.Wasted},
		{"Useful %", s.UsefulPct},
		{"Excess %", s.ExcessPct},
		{"Wasted %", s.WastedPct},
	}
	if err := writeRows(f, SheetSummary, []string{"Metric", "Value"}, summary, bold); err != nil {
		return err
	}

	sheets := []struct {
		name  string
		frame domain.FrameData
	}{
		{SheetBinned, view.Binned},
		{SheetRegrouped, view.Regrouped},
		{SheetZonalCooling, a.ZonalCooling},
	}
	for _, sh := range sheets {
		if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.name, err)
		}
		if err := writeFrame(f, sh.name, sh.frame, bold); err != nil {
			return err
		}
	}

	for _, r := range []struct {
		name    string
		ranking domain.Ranking
	}{
		{SheetWasteful, view.TopWasteful},
		{SheetDemanding, view.TopDemanding},
	} {
		if _, err := f.NewSheet(r.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", r.name, err)
		}
		rows := make([][]interface{}, len(r.ranking.Rows))
		for i, zr := range r.ranking.Rows {
			rows[i] = []interface{}{zr.Zone, zr.Value, zr.Percent}
		}
		header := []string{"Zone", r.ranking.ValueLabel, r.ranking.PercentLabel}
		if err := writeRows(f, r.name, header, rows, bold); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeFrame(f *excelize.File, sheet string, frame domain.FrameData, style int) error {
	header := append([]string{TimestampColumn}, frame.Columns...)
	rows := make([][]interface{}, len(frame.Index))
	for i, ts := range frame.Index {
		row := make([]interface{}, len(header))
		row[0] = formatTimestamp(ts)
		for j := range frame.Columns {
			if i < len(frame.Rows) && j < len(frame.Rows[i]) {
				if v := float64(frame.Rows[i][j]); !math.IsNaN(v) && !math.IsInf(v, 0) {
					row[j+1] = v
				}
			}
		}
		rows[i] = row
	}
	if err := writeRows(f, sheet, header, rows, style); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 20)
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]interface{}, style int) error {
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
