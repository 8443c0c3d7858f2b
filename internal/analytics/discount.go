package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

const componentDiscount = "discount"

// DefaultBinEdges are the default discount bin boundaries.
func DefaultBinEdges() []float64 {
	return []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 1}
}

// ValidateBinEdges checks that edges are strictly increasing from 0 to 1.
func ValidateBinEdges(edges []float64) error {
	cfgErr := &apperrors.ConfigurationError{}
	switch {
	case len(edges) < 2:
		cfgErr.Add("discountBinEdges", "at least two edges are required, got %d", len(edges))
	case edges[0] != 0:
		cfgErr.Add("discountBinEdges", "first edge must be 0, got %v", edges[0])
	case edges[len(edges)-1] != 1:
		cfgErr.Add("discountBinEdges", "last edge must be 1, got %v", edges[len(edges)-1])
	default:
		for i := 1; i < len(edges); i++ {
			if edges[i] <= edges[i-1] {
				cfgErr.Add("discountBinEdges", "edges must be strictly increasing: %v then %v", edges[i-1], edges[i])
				break
			}
		}
	}
	return cfgErr.ErrOrNil()
}

// OptimalBinPolicy picks the optimal bin index, or -1 when none qualifies.
type OptimalBinPolicy func(bins []domain.DiscountBin, minSupport float64) int

// HighestMarginAboveSupport picks the bin with the highest average profit
// margin among bins whose total sale exceeds minSupport. The lowest bin wins ties.
func HighestMarginAboveSupport(bins []domain.DiscountBin, minSupport float64) int {
	best := -1
	for i, b := range bins {
		if b.AvgProfitMargin == nil || !(b.TotalSale > minSupport) {
			continue
		}
		if best < 0 || *b.AvgProfitMargin > *bins[best].AvgProfitMargin {
			best = i
		}
	}
	return best
}

// binIndex returns the bin holding d. The last bin is closed on the right.
func binIndex(edges []float64, d float64) int {
	i := sort.Search(len(edges), func(i int) bool { return edges[i] > d }) - 1
	if i >= len(edges)-1 {
		i = len(edges) - 2
	}
	if i < 0 {
		i = 0
	}
	return i
}

// DiscountAnalyzer relates discount rates to profit margins.
type DiscountAnalyzer struct {
	logger  *slog.Logger
	optimal OptimalBinPolicy
}

// NewDiscountAnalyzer creates an analyzer. A nil policy uses HighestMarginAboveSupport.
func NewDiscountAnalyzer(logger *slog.Logger, optimal OptimalBinPolicy) *DiscountAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if optimal == nil {
		optimal = HighestMarginAboveSupport
	}
	return &DiscountAnalyzer{
		logger:  logger.With(slog.String("component", componentDiscount)),
		optimal: optimal,
	}
}

// AnalyzeDiscountProfit bins records by discount, averages per-record profit
// margins per bin, correlates discount with margin and picks the optimal bin.
// Records with zero sale have no margin and are counted as degenerate.
func (a *DiscountAnalyzer) AnalyzeDiscountProfit(ctx context.Context, snap *dataprocessing.Snapshot, edges []float64, minSupport float64) (*domain.DiscountResult, error) {
	if err := ValidateBinEdges(edges); err != nil {
		return nil, err
	}
	if minSupport < 0 {
		return nil, apperrors.NewConfigError("minSupportThreshold", "must be >= 0, got %v", minSupport)
	}

	result := &domain.DiscountResult{
		Bins:       make([]domain.DiscountBin, len(edges)-1),
		MinSupport: minSupport,
	}
	for i := range result.Bins {
		result.Bins[i] = domain.DiscountBin{
			Lower:          edges[i],
			Upper:          edges[i+1],
			UpperInclusive: i == len(result.Bins)-1,
		}
	}

	marginSums := make([]float64, len(result.Bins))
	var discounts, margins []float64
	var cancelled error
	snap.Each(func(i int, r domain.OrderRecord) bool {
		if i%ctxCheckInterval == 0 {
			if cancelled = ctx.Err(); cancelled != nil {
				return false
			}
		}
		idx := binIndex(edges, r.Discount)
		b := &result.Bins[idx]
		b.OrderCount++
		b.TotalSale += r.Sale
		b.TotalProfit += r.Profit

		margin, ok := r.ProfitMargin()
		if !ok {
			b.DegenerateCount++
			result.DegenerateCount++
			return true
		}
		b.MarginCount++
		marginSums[idx] += margin
		discounts = append(discounts, r.Discount)
		margins = append(margins, margin)
		return true
	})
	if cancelled != nil {
		return nil, fmt.Errorf("analyze discount profit: %w", cancelled)
	}

	for i := range result.Bins {
		b := &result.Bins[i]
		subject := fmt.Sprintf("%s-%s", trimFloat(b.Lower), trimFloat(b.Upper))
		switch {
		case b.OrderCount == 0:
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:      domain.WarnEmptyDiscountBin,
				Component: componentDiscount,
				Subject:   subject,
				Message:   "no records in bin",
			})
		case b.MarginCount == 0:
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:      domain.WarnUndefinedProfitMargin,
				Component: componentDiscount,
				Subject:   subject,
				Message:   "every record in bin has zero sale; average margin undefined",
			})
		default:
			b.AvgProfitMargin = floatPtr(marginSums[i] / float64(b.MarginCount))
		}
	}

	if result.DegenerateCount > 0 {
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:      domain.WarnZeroSale,
			Component: componentDiscount,
			Message:   fmt.Sprintf("%d records with zero sale excluded from margins", result.DegenerateCount),
		})
	}

	if r, ok := pearson(discounts, margins); ok {
		result.Correlation = floatPtr(r)
	} else {
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:      domain.WarnUndefinedCorrelation,
			Component: componentDiscount,
			Message:   fmt.Sprintf("correlation undefined over %d margin points (too few or zero variance)", len(margins)),
		})
	}

	if idx := a.optimal(result.Bins, minSupport); idx >= 0 && idx < len(result.Bins) {
		result.OptimalBin = &idx
	} else {
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:      domain.WarnNoSupportedBin,
			Component: componentDiscount,
			Message:   fmt.Sprintf("no bin has total sale above %v with a defined margin", minSupport),
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analyze discount profit: %w", err)
	}

	a.logger.DebugContext(ctx, "discount analysis complete",
		slog.Int("bins", len(result.Bins)),
		slog.Int("degenerate", result.DegenerateCount),
		slog.Bool("has_optimal", result.OptimalBin != nil))
	return result, nil
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
