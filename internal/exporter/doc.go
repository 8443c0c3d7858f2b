// Package exporter writes analysis results as reports.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing with headers and an optional UTF-8 BOM for Excel.
//
// ReportExporter: Renders a pipeline result as report tables and writes them
// as one CSV file per table or as one xlsx workbook with a sheet per table.
// Money is written with 2 decimal places and ratios with 4, so identical
// results produce byte-identical files.
//
// WriteSummary: Prints a console overview with tablewriter.
//
// Example usage:
//
//	reports := exporter.NewReportExporter("reports", logger)
//	paths, err := reports.ExportCSV(ctx, result)
//	workbook, err := reports.ExportXLSX(ctx, result)
//	err = exporter.WriteSummary(os.Stdout, result)
package exporter
