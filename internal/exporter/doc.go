// Package exporter writes building analyses as CSV and XLSX files.
//
// CSV output carries a UTF-8 BOM so Excel detects the encoding. Missing
// values are written as empty cells in both formats.
//
// Example usage:
//
//	view, _ := analysis.View(building, analysis.Weekly)
//	err := exporter.WriteViewCSV(w, view)
//
//	err = exporter.WriteWorkbook(w, building, view)
package exporter
