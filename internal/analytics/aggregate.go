package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

const componentAggregation = "aggregation"

// AggregationRequest names one roll-up: the ordered grouping dimensions and the
// metrics, the first of which orders the output.
type AggregationRequest struct {
	Name       string             `yaml:"name" json:"name"`
	Dimensions []domain.Dimension `yaml:"dimensions" json:"dimensions" validate:"required,min=1,dive,dimension"`
	Metrics    []domain.Metric    `yaml:"metrics" json:"metrics" validate:"dive,metric"`
}

// DefaultAggregations are the roll-ups run when none are configured.
func DefaultAggregations() []AggregationRequest {
	return []AggregationRequest{
		{Name: "by_category", Dimensions: []domain.Dimension{domain.DimensionCategory}},
		{Name: "by_subcategory", Dimensions: []domain.Dimension{domain.DimensionCategory, domain.DimensionSubCategory}},
		{Name: "by_region", Dimensions: []domain.Dimension{domain.DimensionRegion}},
		{Name: "by_category_region", Dimensions: []domain.Dimension{domain.DimensionCategory, domain.DimensionRegion}},
		{Name: "by_month", Dimensions: []domain.Dimension{domain.DimensionOrderMonth}},
	}
}

// KnownDimension reports whether d can be grouped on.
func KnownDimension(d domain.Dimension) bool {
	_, ok := dimensionSelectors[d]
	return ok
}

// KnownMetric reports whether m can order aggregates.
func KnownMetric(m domain.Metric) bool {
	_, ok := metricValues[m]
	return ok
}

// DisplayName returns Name, or the dimensions joined by "_" when unnamed.
func (r AggregationRequest) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	parts := make([]string, len(r.Dimensions))
	for i, d := range r.Dimensions {
		parts[i] = string(d)
	}
	return strings.Join(parts, "_")
}

// PrimaryMetric returns the metric that orders the output, sale by default.
func (r AggregationRequest) PrimaryMetric() domain.Metric {
	if len(r.Metrics) == 0 {
		return domain.MetricSale
	}
	return r.Metrics[0]
}

// Validate reports unknown dimensions and metrics.
func (r AggregationRequest) Validate() error {
	cfgErr := &apperrors.ConfigurationError{}
	field := "aggregations." + r.DisplayName()
	if len(r.Dimensions) == 0 {
		cfgErr.Add(field, "at least one dimension is required")
	}
	for _, d := range r.Dimensions {
		if !KnownDimension(d) {
			cfgErr.Add(field, "unknown dimension %q", d)
		}
	}
	for _, m := range r.Metrics {
		if !KnownMetric(m) {
			cfgErr.Add(field, "unknown metric %q", m)
		}
	}
	return cfgErr.ErrOrNil()
}

type dimensionSelector func(r domain.OrderRecord) string

func stringDimension(f domain.Field) dimensionSelector {
	return func(r domain.OrderRecord) string { return r.StringField(f) }
}

var dimensionSelectors = map[domain.Dimension]dimensionSelector{
	domain.DimensionCategory:    stringDimension(domain.FieldCategory),
	domain.DimensionSubCategory: stringDimension(domain.FieldSubCategory),
	domain.DimensionRegion:      stringDimension(domain.FieldRegion),
	domain.DimensionSegment:     stringDimension(domain.FieldSegment),
	domain.DimensionShipMode:    stringDimension(domain.FieldShipMode),
	domain.DimensionCountry:     stringDimension(domain.FieldCountry),
	domain.DimensionState:       stringDimension(domain.FieldState),
	domain.DimensionCity:        stringDimension(domain.FieldCity),
	domain.DimensionCustomer:    stringDimension(domain.FieldCustomerID),
	domain.DimensionProduct:     stringDimension(domain.FieldProductID),

	domain.DimensionOrderYear:    func(r domain.OrderRecord) string { return PeriodLabel(r.OrderDate, domain.GranularityYear) },
	domain.DimensionOrderQuarter: func(r domain.OrderRecord) string { return PeriodLabel(r.OrderDate, domain.GranularityQuarter) },
	domain.DimensionOrderMonth:   func(r domain.OrderRecord) string { return PeriodLabel(r.OrderDate, domain.GranularityMonth) },
	domain.DimensionOrderWeek:    func(r domain.OrderRecord) string { return PeriodLabel(r.OrderDate, domain.GranularityWeek) },
	domain.DimensionOrderDay:     func(r domain.OrderRecord) string { return PeriodLabel(r.OrderDate, domain.GranularityDay) },
}

var metricValues = map[domain.Metric]func(a domain.DimensionAggregate) float64{
	domain.MetricSale:     func(a domain.DimensionAggregate) float64 { return a.TotalSale },
	domain.MetricProfit:   func(a domain.DimensionAggregate) float64 { return a.TotalProfit },
	domain.MetricQuantity: func(a domain.DimensionAggregate) float64 { return float64(a.TotalQuantity) },
	domain.MetricCount:    func(a domain.DimensionAggregate) float64 { return float64(a.OrderCount) },
}

// Aggregator rolls records up by dimension tuples.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{logger: logger.With(slog.String("component", componentAggregation))}
}

// Aggregate returns one aggregate per distinct key tuple present in the snapshot,
// sorted descending by the primary metric with ties in lexical key order. Empty
// dimension values group under domain.UnknownDimensionValue. A cancelled context
// yields its error and no aggregates.
func (a *Aggregator) Aggregate(ctx context.Context, snap *dataprocessing.Snapshot, req AggregationRequest) (*domain.AggregationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	selectors := make([]dimensionSelector, len(req.Dimensions))
	for i, d := range req.Dimensions {
		selectors[i] = dimensionSelectors[d]
	}

	groups := make(map[string]*domain.DimensionAggregate)
	var cancelled error
	snap.Each(func(i int, r domain.OrderRecord) bool {
		if i%ctxCheckInterval == 0 {
			if cancelled = ctx.Err(); cancelled != nil {
				return false
			}
		}
		key := make([]string, len(selectors))
		for j, sel := range selectors {
			v := sel(r)
			if v == "" {
				v = domain.UnknownDimensionValue
			}
			key[j] = v
		}
		flat := strings.Join(key, "\x1f")
		g, ok := groups[flat]
		if !ok {
			g = &domain.DimensionAggregate{Key: key}
			groups[flat] = g
		}
		g.TotalSale += r.Sale
		g.TotalProfit += r.Profit
		g.TotalQuantity += r.Quantity
		g.OrderCount++
		return true
	})
	if cancelled != nil {
		return nil, fmt.Errorf("aggregate %s: %w", req.DisplayName(), cancelled)
	}

	result := &domain.AggregationResult{
		Name:       req.DisplayName(),
		Dimensions: append([]domain.Dimension(nil), req.Dimensions...),
		Metrics:    []domain.Metric{req.PrimaryMetric()},
		Aggregates: make([]domain.DimensionAggregate, 0, len(groups)),
	}
	if len(req.Metrics) > 0 {
		result.Metrics = append([]domain.Metric(nil), req.Metrics...)
	}

	for _, g := range groups {
		g.MeanSale = g.TotalSale / float64(g.OrderCount)
		g.MeanProfit = g.TotalProfit / float64(g.OrderCount)
		if g.TotalSale != 0 {
			g.ProfitMargin = floatPtr(g.TotalProfit / g.TotalSale)
		}
		result.Aggregates = append(result.Aggregates, *g)
	}

	metric := metricValues[req.PrimaryMetric()]
	sort.Slice(result.Aggregates, func(i, j int) bool {
		vi, vj := metric(result.Aggregates[i]), metric(result.Aggregates[j])
		if vi != vj {
			return vi > vj
		}
		return compareKeys(result.Aggregates[i].Key, result.Aggregates[j].Key) < 0
	})

	for _, g := range result.Aggregates {
		if g.ProfitMargin == nil {
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:      domain.WarnZeroSale,
				Component: componentAggregation,
				Subject:   strings.Join(g.Key, " / "),
				Message:   "total sale is zero; profit margin undefined",
			})
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", req.DisplayName(), err)
	}

	a.logger.DebugContext(ctx, "aggregation complete",
		slog.String("name", result.Name),
		slog.Int("groups", len(result.Aggregates)))
	return result, nil
}

func compareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
