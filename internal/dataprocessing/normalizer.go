package dataprocessing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

// dateLayouts are tried in order when a date arrives as a string.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1-2-2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Normalizer validates raw rows against the OrderRecord schema.
type Normalizer struct {
	logger *slog.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{logger: logger.With(slog.String("component", "normalizer"))}
}

// NormalizeResult is the normalizer output: the immutable snapshot and the
// rows that were quarantined.
type NormalizeResult struct {
	Snapshot   *Snapshot
	Quarantine []domain.QuarantinedRow
	InputRows  int
}

// Normalize validates every row. Rows failing validation are quarantined with the
// first failure found; valid rows form the snapshot in input order. Missing values
// are never imputed.
func (n *Normalizer) Normalize(ctx context.Context, rows []domain.RawRow) (*NormalizeResult, error) {
	records := make([]domain.OrderRecord, 0, len(rows))
	var quarantine []domain.QuarantinedRow

	for i, row := range rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("normalize rows: %w", err)
			}
		}

		rec, schemaErr := normalizeRow(i, row)
		if schemaErr != nil {
			n.logger.DebugContext(ctx, "row quarantined",
				slog.Int("row_index", i),
				slog.String("reason", string(schemaErr.Reason)),
				slog.String("field", string(schemaErr.Field)),
				slog.String("detail", schemaErr.Detail))
			quarantine = append(quarantine, schemaErr.Quarantine())
			continue
		}
		records = append(records, rec)
	}

	n.logger.InfoContext(ctx, "normalization complete",
		slog.Int("input_rows", len(rows)),
		slog.Int("valid_records", len(records)),
		slog.Int("quarantined", len(quarantine)))

	return &NormalizeResult{
		Snapshot:   NewSnapshot(records),
		Quarantine: quarantine,
		InputRows:  len(rows),
	}, nil
}

// normalizeRow runs presence, type and range checks in that order.
func normalizeRow(idx int, row domain.RawRow) (domain.OrderRecord, *apperrors.SchemaError) {
	for _, spec := range domain.Schema {
		if spec.Required && isMissing(row[spec.Name]) {
			return domain.OrderRecord{}, apperrors.NewSchemaError(idx, spec.Name, domain.ReasonMissingField,
				"required field %s is missing", spec.Name)
		}
	}

	rec := domain.OrderRecord{RowIndex: idx}

	strs := map[domain.Field]*string{
		domain.FieldOrderID:      &rec.OrderID,
		domain.FieldProductID:    &rec.ProductID,
		domain.FieldCustomerID:   &rec.CustomerID,
		domain.FieldShipMode:     &rec.ShipMode,
		domain.FieldSegment:      &rec.Segment,
		domain.FieldCountry:      &rec.Country,
		domain.FieldCity:         &rec.City,
		domain.FieldState:        &rec.State,
		domain.FieldPostalCode:   &rec.PostalCode,
		domain.FieldRegion:       &rec.Region,
		domain.FieldCategory:     &rec.Category,
		domain.FieldSubCategory:  &rec.SubCategory,
		domain.FieldProductName:  &rec.ProductName,
		domain.FieldCustomerName: &rec.CustomerName,
	}
	dates := map[domain.Field]*time.Time{
		domain.FieldOrderDate: &rec.OrderDate,
		domain.FieldShipDate:  &rec.ShipDate,
	}
	floats := map[domain.Field]*float64{
		domain.FieldSale:     &rec.Sale,
		domain.FieldDiscount: &rec.Discount,
		domain.FieldProfit:   &rec.Profit,
	}

	// Walk the schema rather than the maps so the first failure is deterministic.
	for _, spec := range domain.Schema {
		v := row[spec.Name]
		var err error
		switch spec.Kind {
		case domain.KindString:
			if isMissing(v) {
				continue
			}
			*strs[spec.Name], err = coerceString(v)
		case domain.KindDate:
			*dates[spec.Name], err = coerceDate(v)
		case domain.KindFloat:
			*floats[spec.Name], err = coerceFloat(v)
		case domain.KindInteger:
			rec.Quantity, err = coerceInteger(v)
		}
		if err != nil {
			return domain.OrderRecord{}, apperrors.NewSchemaError(idx, spec.Name, domain.ReasonTypeMismatch,
				"%v", err)
		}
	}

	if schemaErr := checkRanges(idx, rec); schemaErr != nil {
		return domain.OrderRecord{}, schemaErr
	}
	return rec, nil
}

func checkRanges(idx int, rec domain.OrderRecord) *apperrors.SchemaError {
	switch {
	case rec.Sale < 0:
		return apperrors.NewSchemaError(idx, domain.FieldSale, domain.ReasonRangeViolation,
			"sale %v is negative", rec.Sale)
	case rec.Discount < 0 || rec.Discount > 1:
		return apperrors.NewSchemaError(idx, domain.FieldDiscount, domain.ReasonRangeViolation,
			"discount %v outside [0,1]", rec.Discount)
	case rec.Quantity < 1:
		return apperrors.NewSchemaError(idx, domain.FieldQuantity, domain.ReasonRangeViolation,
			"quantity %d below 1", rec.Quantity)
	case rec.ShipDate.Before(rec.OrderDate):
		return apperrors.NewSchemaError(idx, domain.FieldShipDate, domain.ReasonRangeViolation,
			"ship date %s before order date %s",
			rec.ShipDate.Format(time.DateOnly), rec.OrderDate.Format(time.DateOnly))
	}
	return nil
}

func isMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case json.Number:
		return strings.TrimSpace(string(val)) == ""
	}
	return false
}

func coerceString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case json.Number:
		return string(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return wholeNumberString(float64(val))
	case float64:
		return wholeNumberString(val)
	}
	return "", fmt.Errorf("expected text, got %T", v)
}

// wholeNumberString renders a float cell as text. Spreadsheets hand postal
// codes and ids over as floats; only whole numbers convert without loss.
func wholeNumberString(f float64) (string, error) {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return "", fmt.Errorf("expected text, got fractional number %v", f)
}

func coerceDate(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return truncateDate(val), nil
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateDate(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	}
	return time.Time{}, fmt.Errorf("expected date, got %T", v)
}

// truncateDate keeps the UTC calendar date of t as a UTC midnight.
func truncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func coerceFloat(v any) (float64, error) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint64:
		f = float64(val)
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, fmt.Errorf("unparseable number %q", string(val))
		}
		f = parsed
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable number %q", val)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %v", f)
	}
	return f, nil
}

func coerceInteger(v any) (int64, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	case int32:
		return int64(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows", val)
		}
		return int64(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return 0, fmt.Errorf("integer %d overflows", val)
		}
		return int64(val), nil
	}
	f, err := coerceFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("expected integer, got %v", f)
	}
	return int64(f), nil
}
