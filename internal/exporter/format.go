package exporter

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// formatMoney formats a currency amount with exactly 2 decimal places
func formatMoney(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

// formatRatio formats margins, correlations and discounts with 4 decimal places
func formatRatio(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(4)
}

// formatOptional formats a value that may be undefined; nil renders empty
func formatOptional(f *float64, format func(float64) string) string {
	if f == nil {
		return ""
	}
	return format(*f)
}

// formatInt formats an integer value
func formatInt[T ~int | ~int64](i T) string {
	return strconv.FormatInt(int64(i), 10)
}

// formatBool formats a boolean value
func formatBool(b bool) string {
	return strconv.FormatBool(b)
}

// formatDate formats a calendar date as YYYY-MM-DD
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
