package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

const componentTrends = "trends"

// ValidGranularity reports whether g is a supported period granularity.
func ValidGranularity(g domain.Granularity) bool {
	switch g {
	case domain.GranularityDay, domain.GranularityWeek, domain.GranularityMonth,
		domain.GranularityQuarter, domain.GranularityYear:
		return true
	}
	return false
}

// PeriodStart returns the first day of the period containing t. Weeks are ISO
// weeks starting on Monday.
func PeriodStart(t time.Time, g domain.Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case domain.GranularityWeek:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case domain.GranularityMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityQuarter:
		return time.Date(y, ((m-1)/3)*3+1, 1, 0, 0, 0, 0, time.UTC)
	case domain.GranularityYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

// NextPeriod returns the start of the period after the one starting at start.
func NextPeriod(start time.Time, g domain.Granularity) time.Time {
	switch g {
	case domain.GranularityWeek:
		return start.AddDate(0, 0, 7)
	case domain.GranularityMonth:
		return start.AddDate(0, 1, 0)
	case domain.GranularityQuarter:
		return start.AddDate(0, 3, 0)
	case domain.GranularityYear:
		return start.AddDate(1, 0, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// PeriodLabel formats the period containing t. Labels sort chronologically
// within a granularity.
func PeriodLabel(t time.Time, g domain.Granularity) string {
	switch g {
	case domain.GranularityWeek:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case domain.GranularityMonth:
		return t.Format("2006-01")
	case domain.GranularityQuarter:
		return fmt.Sprintf("%04d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	case domain.GranularityYear:
		return t.Format("2006")
	default:
		return t.Format(time.DateOnly)
	}
}

// PeakPolicy picks the peak period from a per-period sale series. It returns
// -1 when no period qualifies.
type PeakPolicy func(sales []float64) int

// EarliestMaxPeak picks the period with the highest sale, the earliest on ties.
func EarliestMaxPeak(sales []float64) int {
	best := -1
	for i, v := range sales {
		if best < 0 || v > sales[best] {
			best = i
		}
	}
	return best
}

// TrendExtractor builds zero-filled calendar series.
type TrendExtractor struct {
	logger *slog.Logger
	peak   PeakPolicy
}

// NewTrendExtractor creates a trend extractor. A nil policy uses EarliestMaxPeak.
func NewTrendExtractor(logger *slog.Logger, peak PeakPolicy) *TrendExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if peak == nil {
		peak = EarliestMaxPeak
	}
	return &TrendExtractor{
		logger: logger.With(slog.String("component", componentTrends)),
		peak:   peak,
	}
}

// ExtractTrends returns one bucket per period from the period holding the
// earliest order through the period holding the latest, including empty ones,
// plus each category's seasonal peak.
func (e *TrendExtractor) ExtractTrends(ctx context.Context, snap *dataprocessing.Snapshot, g domain.Granularity) (*domain.TrendResult, error) {
	if !ValidGranularity(g) {
		return nil, apperrors.NewConfigError("periodGranularity", "unsupported granularity %q", g)
	}

	result := &domain.TrendResult{
		Granularity: g,
		Buckets:     []domain.PeriodBucket{},
		Peaks:       []domain.CategoryPeak{},
	}
	if snap.Len() == 0 {
		return result, nil
	}

	minDate, maxDate := snap.DateRange()
	last := PeriodStart(maxDate, g)
	index := make(map[time.Time]int)
	for start := PeriodStart(minDate, g); !start.After(last); start = NextPeriod(start, g) {
		index[start] = len(result.Buckets)
		result.Buckets = append(result.Buckets, domain.PeriodBucket{
			Label: PeriodLabel(start, g),
			Start: start,
			End:   NextPeriod(start, g),
		})
	}

	categorySales := make(map[string][]float64)
	var cancelled error
	snap.Each(func(i int, r domain.OrderRecord) bool {
		if i%ctxCheckInterval == 0 {
			if cancelled = ctx.Err(); cancelled != nil {
				return false
			}
		}
		idx := index[PeriodStart(r.OrderDate, g)]
		b := &result.Buckets[idx]
		b.TotalSale += r.Sale
		b.TotalProfit += r.Profit
		b.TotalQuantity += r.Quantity
		b.OrderCount++

		category := r.Category
		if category == "" {
			category = domain.UnknownDimensionValue
		}
		series, ok := categorySales[category]
		if !ok {
			series = make([]float64, len(result.Buckets))
			categorySales[category] = series
		}
		series[idx] += r.Sale
		return true
	})
	if cancelled != nil {
		return nil, fmt.Errorf("extract trends: %w", cancelled)
	}

	for i := 1; i < len(result.Buckets); i++ {
		prev, cur := result.Buckets[i-1], &result.Buckets[i]
		cur.SaleDelta = cur.TotalSale - prev.TotalSale
		cur.ProfitDelta = cur.TotalProfit - prev.TotalProfit
		cur.QuantityDelta = cur.TotalQuantity - prev.TotalQuantity
		if prev.TotalSale == 0 {
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:      domain.WarnZeroPreviousSale,
				Component: componentTrends,
				Subject:   cur.Label,
				Message:   fmt.Sprintf("previous period %s has zero sale; percent change undefined", prev.Label),
			})
			continue
		}
		cur.SaleChangePct = floatPtr(cur.SaleDelta / prev.TotalSale * 100)
	}

	categories := make([]string, 0, len(categorySales))
	for c := range categorySales {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, c := range categories {
		series := categorySales[c]
		if len(series) > 1 && isFlat(series) {
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:      domain.WarnFlatCategorySeries,
				Component: componentTrends,
				Subject:   c,
				Message:   "sale is equal in every period",
			})
		}
		idx := e.peak(series)
		if idx < 0 || idx >= len(series) {
			continue
		}
		result.Peaks = append(result.Peaks, domain.CategoryPeak{
			Category:  c,
			Period:    result.Buckets[idx].Label,
			PeakStart: result.Buckets[idx].Start,
			PeakSale:  series[idx],
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("extract trends: %w", err)
	}

	e.logger.DebugContext(ctx, "trend extraction complete",
		slog.String("granularity", string(g)),
		slog.Int("buckets", len(result.Buckets)),
		slog.Int("categories", len(result.Peaks)))
	return result, nil
}

func isFlat(series []float64) bool {
	for _, v := range series[1:] {
		if v != series[0] {
			return false
		}
	}
	return true
}
