package domain

import (
	"sort"
	"time"
)

// UnknownDimensionValue groups records whose dimension value is empty so that
// totals stay conserved.
const UnknownDimensionValue = "(unknown)"

// Dimension is a grouping selector for the aggregation engine.
type Dimension string

const (
	DimensionCategory    Dimension = "category"
	DimensionSubCategory Dimension = "subCategory"
	DimensionRegion      Dimension = "region"
	DimensionSegment     Dimension = "segment"
	DimensionShipMode    Dimension = "shipMode"
	DimensionCountry     Dimension = "country"
	DimensionState       Dimension = "state"
	DimensionCity        Dimension = "city"
	DimensionCustomer    Dimension = "customerId"
	DimensionProduct     Dimension = "productId"

	// Time-bucket dimensions derived from the order date.
	DimensionOrderYear    Dimension = "orderYear"
	DimensionOrderQuarter Dimension = "orderQuarter"
	DimensionOrderMonth   Dimension = "orderMonth"
	DimensionOrderWeek    Dimension = "orderWeek"
	DimensionOrderDay     Dimension = "orderDay"
)

// Metric is an aggregate measure. The first requested metric orders the output.
type Metric string

const (
	MetricSale     Metric = "sale"
	MetricProfit   Metric = "profit"
	MetricQuantity Metric = "quantity"
	MetricCount    Metric = "count"
)

// Granularity is the calendar period used by the trend extractor.
type Granularity string

const (
	GranularityDay     Granularity = "day"
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// WarningCode identifies a degenerate numeric condition.
type WarningCode string

const (
	WarnZeroSale              WarningCode = "ZERO_SALE"
	WarnEmptyBand             WarningCode = "EMPTY_QUANTILE_BAND"
	WarnReferenceBeforeOrder  WarningCode = "REFERENCE_BEFORE_LAST_ORDER"
	WarnZeroPreviousSale      WarningCode = "ZERO_PREVIOUS_PERIOD_SALE"
	WarnUndefinedCorrelation  WarningCode = "UNDEFINED_CORRELATION"
	WarnEmptyDiscountBin      WarningCode = "EMPTY_DISCOUNT_BIN"
	WarnNoSupportedBin        WarningCode = "NO_SUPPORTED_BIN"
	WarnZeroVariance          WarningCode = "ZERO_VARIANCE"
	WarnFlatCategorySeries    WarningCode = "FLAT_CATEGORY_SERIES"
	WarnUndefinedProfitMargin WarningCode = "UNDEFINED_PROFIT_MARGIN"
)

// Warning is a DegenerateComputationWarning reported inline with a result.
type Warning struct {
	Code      WarningCode `json:"code"`
	Component string      `json:"component"`
	Subject   string      `json:"subject,omitempty"`
	Message   string      `json:"message"`
}

// DimensionAggregate is one group of the aggregation engine output.
type DimensionAggregate struct {
	Key           []string `json:"key"`
	TotalSale     float64  `json:"total_sale"`
	TotalProfit   float64  `json:"total_profit"`
	TotalQuantity int64    `json:"total_quantity"`
	OrderCount    int      `json:"order_count"`
	MeanSale      float64  `json:"mean_sale"`
	MeanProfit    float64  `json:"mean_profit"`
	// ProfitMargin is nil when TotalSale is zero.
	ProfitMargin *float64 `json:"profit_margin"`
}

// AggregationResult holds one aggregation request's output.
type AggregationResult struct {
	Name       string               `json:"name"`
	Dimensions []Dimension          `json:"dimensions"`
	Metrics    []Metric             `json:"metrics"`
	Aggregates []DimensionAggregate `json:"aggregates"`
	Warnings   []Warning            `json:"warnings,omitempty"`
}

// CustomerValueProfile is the recency/frequency/monetary profile of a customer.
type CustomerValueProfile struct {
	CustomerID    string    `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	LastOrderDate time.Time `json:"last_order_date"`
	RecencyDays   int       `json:"recency_days"`
	Frequency     int       `json:"frequency"`
	MonetaryTotal float64   `json:"monetary_total"`
	RecencyBand   int       `json:"recency_band"`
	FrequencyBand int       `json:"frequency_band"`
	MonetaryBand  int       `json:"monetary_band"`
	SegmentLabel  string    `json:"segment_label"`
}

// SegmentSize counts the customers assigned to a label.
type SegmentSize struct {
	Label     string `json:"label"`
	Customers int    `json:"customers"`
}

// SegmentationResult holds every customer profile ordered by customer id.
type SegmentationResult struct {
	ReferenceDate time.Time              `json:"reference_date"`
	BandCount     int                    `json:"band_count"`
	Profiles      []CustomerValueProfile `json:"profiles"`
	Segments      []SegmentSize          `json:"segments"`
	Warnings      []Warning              `json:"warnings,omitempty"`
}

// Lookup returns the profile of a customer.
func (r *SegmentationResult) Lookup(customerID string) (CustomerValueProfile, bool) {
	i := sort.Search(len(r.Profiles), func(i int) bool {
		return r.Profiles[i].CustomerID >= customerID
	})
	if i < len(r.Profiles) && r.Profiles[i].CustomerID == customerID {
		return r.Profiles[i], true
	}
	return CustomerValueProfile{}, false
}

// ByCustomer returns the profiles keyed by customer id.
func (r *SegmentationResult) ByCustomer() map[string]CustomerValueProfile {
	m := make(map[string]CustomerValueProfile, len(r.Profiles))
	for _, p := range r.Profiles {
		m[p.CustomerID] = p
	}
	return m
}

// PeriodBucket aggregates one calendar period. Start is inclusive, End exclusive.
type PeriodBucket struct {
	Label         string    `json:"label"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	TotalSale     float64   `json:"total_sale"`
	TotalProfit   float64   `json:"total_profit"`
	TotalQuantity int64     `json:"total_quantity"`
	OrderCount    int       `json:"order_count"`

	// Period-over-period changes against the preceding bucket; zero for the first.
	SaleDelta     float64 `json:"sale_delta"`
	ProfitDelta   float64 `json:"profit_delta"`
	QuantityDelta int64   `json:"quantity_delta"`
	// SaleChangePct is nil for the first bucket and when the previous sale is zero.
	SaleChangePct *float64 `json:"sale_change_pct"`
}

// CategoryPeak is the seasonal peak period of a category.
type CategoryPeak struct {
	Category  string    `json:"category"`
	Period    string    `json:"period"`
	PeakStart time.Time `json:"peak_start"`
	PeakSale  float64   `json:"peak_sale"`
}

// TrendResult is the trend extractor output.
type TrendResult struct {
	Granularity Granularity    `json:"granularity"`
	Buckets     []PeriodBucket `json:"buckets"`
	Peaks       []CategoryPeak `json:"peaks"`
	Warnings    []Warning      `json:"warnings,omitempty"`
}

// DiscountBin covers [Lower, Upper), or [Lower, Upper] when UpperInclusive.
type DiscountBin struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	UpperInclusive  bool    `json:"upper_inclusive"`
	OrderCount      int     `json:"order_count"`
	MarginCount     int     `json:"margin_count"`
	DegenerateCount int     `json:"degenerate_count"`
	TotalSale       float64 `json:"total_sale"`
	TotalProfit     float64 `json:"total_profit"`
	// AvgProfitMargin is nil when no record in the bin has a defined margin.
	AvgProfitMargin *float64 `json:"avg_profit_margin"`
}

// Contains reports whether a discount falls into the bin.
func (b DiscountBin) Contains(discount float64) bool {
	if discount < b.Lower {
		return false
	}
	if b.UpperInclusive {
		return discount <= b.Upper
	}
	return discount < b.Upper
}

// DiscountResult is the discount-profit analyzer output.
type DiscountResult struct {
	Bins []DiscountBin `json:"bins"`
	// Correlation is the Pearson coefficient between discount and profit margin.
	Correlation     *float64 `json:"correlation"`
	DegenerateCount int      `json:"degenerate_count"`
	MinSupport      float64  `json:"min_support"`
	// OptimalBin indexes Bins; nil when no bin meets the support threshold.
	OptimalBin *int      `json:"optimal_bin"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Optimal returns the optimal bin, if any.
func (r *DiscountResult) Optimal() (DiscountBin, bool) {
	if r.OptimalBin == nil {
		return DiscountBin{}, false
	}
	return r.Bins[*r.OptimalBin], true
}
