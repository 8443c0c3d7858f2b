package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

// headerAliases maps folded header spellings to canonical fields. A folded
// header is lower case with everything but letters and digits removed.
var headerAliases = map[string]domain.Field{
	"orderid":       domain.FieldOrderID,
	"orderdate":     domain.FieldOrderDate,
	"shipdate":      domain.FieldShipDate,
	"shipmode":      domain.FieldShipMode,
	"customerid":    domain.FieldCustomerID,
	"customername":  domain.FieldCustomerName,
	"segment":       domain.FieldSegment,
	"country":       domain.FieldCountry,
	"countryregion": domain.FieldCountry,
	"city":          domain.FieldCity,
	"state":         domain.FieldState,
	"stateprovince": domain.FieldState,
	"postalcode":    domain.FieldPostalCode,
	"zipcode":       domain.FieldPostalCode,
	"region":        domain.FieldRegion,
	"productid":     domain.FieldProductID,
	"category":      domain.FieldCategory,
	"subcategory":   domain.FieldSubCategory,
	"productname":   domain.FieldProductName,
	"sales":         domain.FieldSale,
	"sale":          domain.FieldSale,
	"quantity":      domain.FieldQuantity,
	"qty":           domain.FieldQuantity,
	"discount":      domain.FieldDiscount,
	"profit":        domain.FieldProfit,
}

// headerScanRows bounds the search for the header row in a sheet.
const headerScanRows = 10

func foldHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// columnMap maps column positions to canonical fields. It reports false when
// the row does not look like an order header.
func columnMap(header []string) (map[int]domain.Field, bool) {
	cols := make(map[int]domain.Field)
	seen := make(map[domain.Field]bool)
	for i, h := range header {
		f, ok := headerAliases[foldHeader(h)]
		if !ok || seen[f] {
			continue
		}
		cols[i] = f
		seen[f] = true
	}
	return cols, seen[domain.FieldOrderID] && seen[domain.FieldSale]
}

// rowsToRaw converts data rows to RawRows. Short rows leave trailing fields
// absent and fully blank rows are skipped.
func rowsToRaw(cols map[int]domain.Field, rows [][]string) []domain.RawRow {
	out := make([]domain.RawRow, 0, len(rows))
	for _, row := range rows {
		if isBlankRow(row) {
			continue
		}
		raw := make(domain.RawRow, len(cols))
		for i, f := range cols {
			if i < len(row) {
				raw[f] = row[i]
			}
		}
		out = append(out, raw)
	}
	return out
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseFile reads raw order rows from an .xlsx or .csv file.
func ParseFile(filePath string, sheet string) ([]domain.RawRow, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".csv":
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()
		return ParseCSV(f)
	case ".xlsx", ".xlsm":
		return ParseWorkbook(filePath, sheet)
	default:
		return nil, apperrors.NewParsingError(fmt.Sprintf("unsupported input format %q", filepath.Ext(filePath)), nil)
	}
}

// ParseWorkbook reads order rows from a workbook. With an empty sheet name the
// first sheet carrying an order header is used.
func ParseWorkbook(filePath string, sheet string) ([]domain.RawRow, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	candidates := f.GetSheetList()
	if sheet != "" {
		candidates = []string{sheet}
	}

	for _, name := range candidates {
		rows, err := f.GetRows(name)
		if err != nil {
			if sheet != "" {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("sheet %q", name)).
					WithContext("file", filepath.Base(filePath))
			}
			continue
		}
		for i := 0; i < len(rows) && i < headerScanRows; i++ {
			cols, ok := columnMap(rows[i])
			if !ok {
				continue
			}
			slog.Debug("found order header",
				slog.String("file", filePath),
				slog.String("sheet", name),
				slog.Int("header_row", i),
				slog.Int("columns", len(cols)))
			return rowsToRaw(cols, rows[i+1:]), nil
		}
	}

	return nil, apperrors.NewParsingError(
		fmt.Sprintf("could not find order data sheet in %s", filepath.Base(filePath)), nil)
}

// ParseCSV reads order rows from CSV with a header line.
func ParseCSV(r io.Reader) ([]domain.RawRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, apperrors.NewParsingError("csv input is empty", nil)
		}
		return nil, apperrors.NewParsingError("failed to read csv header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols, ok := columnMap(header)
	if !ok {
		return nil, apperrors.NewParsingError("csv header has no order id and sales columns", nil)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read csv rows", err)
	}
	return rowsToRaw(cols, rows), nil
}
