package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "salespulse/internal/errors"
	"salespulse/internal/pipeline"
	"salespulse/pkg/contracts/domain"
)

// WorkbookName is the file name of the combined xlsx report.
const WorkbookName = "salespulse_report.xlsx"

// maxSheetName is Excel's worksheet name limit.
const maxSheetName = 31

// ReportExporter writes a run result as CSV files and an xlsx workbook
type ReportExporter struct {
	csvWriter *CSVWriter
	dir       string
	logger    *slog.Logger
}

// NewReportExporter creates an exporter that writes into dir
func NewReportExporter(dir string, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportExporter{
		csvWriter: NewCSVWriter(dir, logger),
		dir:       dir,
		logger:    logger.With(slog.String("component", "report_exporter")),
	}
}

// ExportCSV writes one CSV file per report table and returns their paths.
// Identical results produce byte-identical files.
func (e *ReportExporter) ExportCSV(ctx context.Context, result *pipeline.Result) ([]string, error) {
	start := time.Now()
	tables := BuildTables(result)
	paths := make([]string, 0, len(tables))

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			return paths, fmt.Errorf("export csv: %w", err)
		}
		path, err := e.csvWriter.WriteCSV(table.FileName(), WriteOptions{
			Headers: table.Headers,
			Records: table.Rows,
		})
		if err != nil {
			return paths, apperrors.NewStorageError("failed to write table "+table.Name, err).
				WithContext("path", table.FileName())
		}
		paths = append(paths, path)
	}

	e.logger.InfoContext(ctx, "CSV reports written",
		slog.String("dir", e.dir),
		slog.Int("files", len(paths)),
		slog.Duration("duration", time.Since(start)))
	return paths, nil
}

// ExportQuarantine writes only the quarantine table. It serves runs that
// ended without a snapshot.
func (e *ReportExporter) ExportQuarantine(ctx context.Context, quarantine []domain.QuarantinedRow) (string, error) {
	table := QuarantineTable(quarantine)
	path, err := e.csvWriter.WriteCSV(table.FileName(), WriteOptions{
		Headers: table.Headers,
		Records: table.Rows,
	})
	if err != nil {
		return "", apperrors.NewStorageError("failed to write table "+table.Name, err).
			WithContext("path", table.FileName())
	}

	e.logger.InfoContext(ctx, "Quarantine report written",
		slog.String("path", path),
		slog.Int("rows", len(quarantine)))
	return path, nil
}

// ExportXLSX writes every report table to its own worksheet of one workbook
func (e *ReportExporter) ExportXLSX(ctx context.Context, result *pipeline.Result) (string, error) {
	tables := BuildTables(result)

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool, len(tables))
	for i, table := range tables {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("export xlsx: %w", err)
		}
		sheet := sheetName(table.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return "", fmt.Errorf("failed to rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return "", fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, table, headerStyle); err != nil {
			return "", fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	path := filepath.Join(e.dir, WorkbookName)
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create report directory", err).WithContext("path", e.dir)
	}
	if err := f.SaveAs(path); err != nil {
		return "", apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}

	e.logger.InfoContext(ctx, "Workbook written",
		slog.String("path", path),
		slog.Int("sheets", len(tables)))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, table Table, headerStyle int) error {
	header := make([]interface{}, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(table.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(table.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// sheetName shortens a table name to a unique valid worksheet name
func sheetName(name string, used map[string]bool) string {
	base := unsafeName.ReplaceAllString(name, "_")
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	candidate := base
	for n := 2; used[candidate]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > maxSheetName {
			trimmed = trimmed[:maxSheetName-len(suffix)]
		}
		candidate = trimmed + suffix
	}
	used[candidate] = true
	return candidate
}
