package analytics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"salespulse/internal/dataprocessing"
	"salespulse/internal/shared/testutil"
	"salespulse/pkg/contracts/domain"
)

var (
	propCategories = []string{"Furniture", "Technology", "Office Supplies", ""}
	propRegions    = []string{"East", "West", "Central", "South"}
	propEpoch      = testutil.Date(2022, time.March, 1)
)

// zipSnapshot builds one record per index present in every slice.
func zipSnapshot(sales, profits, discounts []float64, days, picks []int) *dataprocessing.Snapshot {
	n := min(len(sales), len(profits), len(discounts), len(days), len(picks))
	builders := make([]*testutil.OrderBuilder, n)
	for i := 0; i < n; i++ {
		builders[i] = testutil.NewOrder(fmt.Sprintf("O-%d", i%7), "P-1", fmt.Sprintf("C-%d", picks[i]%5)).
			On(propEpoch.AddDate(0, 0, days[i])).
			Category(propCategories[picks[i]%len(propCategories)], "Sub").
			Region(propRegions[(picks[i]/4)%len(propRegions)]).
			Sale(sales[i]).
			Profit(profits[i]).
			Discount(discounts[i]).
			Quantity(int64(picks[i]%9 + 1))
	}
	return dataprocessing.NewSnapshot(testutil.Records(builders...))
}

func propParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return parameters
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestAggregationConservesTotals(t *testing.T) {
	properties := gopter.NewProperties(propParameters())
	aggregator := NewAggregator(nil)

	properties.Property("group totals sum to snapshot totals", prop.ForAll(
		func(sales, profits, discounts []float64, days, picks []int) bool {
			snap := zipSnapshot(sales, profits, discounts, days, picks)
			sale, profit, qty := snap.Totals()

			for _, dims := range [][]domain.Dimension{
				{domain.DimensionCategory},
				{domain.DimensionRegion, domain.DimensionCategory},
				{domain.DimensionOrderMonth},
			} {
				result, err := aggregator.Aggregate(context.Background(), snap, AggregationRequest{Dimensions: dims})
				if err != nil {
					return false
				}
				var gotSale, gotProfit float64
				var gotQty int64
				var gotCount int
				for _, a := range result.Aggregates {
					gotSale += a.TotalSale
					gotProfit += a.TotalProfit
					gotQty += a.TotalQuantity
					gotCount += a.OrderCount
				}
				if !closeTo(gotSale, sale) || !closeTo(gotProfit, profit) || gotQty != qty || gotCount != snap.Len() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 5000)),
		gen.SliceOf(gen.Float64Range(-2000, 2000)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.SliceOf(gen.IntRange(0, 900)),
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.TestingRun(t)
}

func TestSegmentationPartitionsCustomers(t *testing.T) {
	properties := gopter.NewProperties(propParameters())

	properties.Property("every customer has exactly one label and bands in range", prop.ForAll(
		func(sales, profits, discounts []float64, days, picks []int, k int) bool {
			snap := zipSnapshot(sales, profits, discounts, days, picks)
			rules, err := CompileRules(domain.SegmentRuleTable{Rules: []domain.SegmentRule{
				{Label: "Best", Recency: "top", Frequency: "top", Monetary: "top"},
				{Label: "Worst", Recency: "bottom", Frequency: "*", Monetary: "bottom"},
				{Label: "Other", Recency: "*", Frequency: "*", Monetary: "*"},
			}}, k)
			if err != nil {
				return false
			}
			result, err := NewSegmenter(nil, rules).Segment(context.Background(), snap, time.Time{})
			if err != nil {
				return false
			}

			customers := make(map[string]bool)
			snap.Each(func(_ int, r domain.OrderRecord) bool {
				customers[r.CustomerID] = true
				return true
			})
			if len(result.Profiles) != len(customers) {
				return false
			}

			total := 0
			for _, s := range result.Segments {
				total += s.Customers
			}
			if total != len(customers) {
				return false
			}

			for _, p := range result.Profiles {
				if !customers[p.CustomerID] || p.SegmentLabel == "" || p.RecencyDays < 0 {
					return false
				}
				for _, b := range []int{p.RecencyBand, p.FrequencyBand, p.MonetaryBand} {
					if b < 1 || b > k {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 5000)),
		gen.SliceOf(gen.Float64Range(-2000, 2000)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.SliceOf(gen.IntRange(0, 900)),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(2, 8),
	))

	properties.TestingRun(t)
}

func TestTrendBucketsAreContiguous(t *testing.T) {
	properties := gopter.NewProperties(propParameters())
	extractor := NewTrendExtractor(nil, nil)
	granularities := []domain.Granularity{
		domain.GranularityDay, domain.GranularityWeek, domain.GranularityMonth,
		domain.GranularityQuarter, domain.GranularityYear,
	}

	properties.Property("buckets cover the date range without gaps and conserve sale", prop.ForAll(
		func(sales, profits, discounts []float64, days, picks []int, gi int) bool {
			snap := zipSnapshot(sales, profits, discounts, days, picks)
			g := granularities[gi]
			result, err := extractor.ExtractTrends(context.Background(), snap, g)
			if err != nil {
				return false
			}
			if snap.Len() == 0 {
				return len(result.Buckets) == 0
			}

			minDate, maxDate := snap.DateRange()
			first, last := result.Buckets[0], result.Buckets[len(result.Buckets)-1]
			if !first.Start.Equal(PeriodStart(minDate, g)) || !last.Start.Equal(PeriodStart(maxDate, g)) {
				return false
			}

			var sale float64
			count := 0
			for i, b := range result.Buckets {
				if i > 0 && !result.Buckets[i-1].End.Equal(b.Start) {
					return false
				}
				sale += b.TotalSale
				count += b.OrderCount
			}
			total, _, _ := snap.Totals()
			return closeTo(sale, total) && count == snap.Len()
		},
		gen.SliceOf(gen.Float64Range(0, 5000)),
		gen.SliceOf(gen.Float64Range(-2000, 2000)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.SliceOf(gen.IntRange(0, 900)),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func TestDiscountBinsPartitionRecords(t *testing.T) {
	properties := gopter.NewProperties(propParameters())
	analyzer := NewDiscountAnalyzer(nil, nil)

	properties.Property("every record lands in exactly one bin", prop.ForAll(
		func(sales, profits, discounts []float64, days, picks []int, minSupport float64) bool {
			snap := zipSnapshot(sales, profits, discounts, days, picks)
			result, err := analyzer.AnalyzeDiscountProfit(context.Background(), snap, DefaultBinEdges(), minSupport)
			if err != nil {
				return false
			}

			count, degenerate := 0, 0
			for _, b := range result.Bins {
				count += b.OrderCount
				degenerate += b.DegenerateCount
				if b.MarginCount+b.DegenerateCount != b.OrderCount {
					return false
				}
			}
			if count != snap.Len() || degenerate != result.DegenerateCount {
				return false
			}

			ok := true
			snap.Each(func(_ int, r domain.OrderRecord) bool {
				hits := 0
				for _, b := range result.Bins {
					if b.Contains(r.Discount) {
						hits++
					}
				}
				ok = hits == 1
				return ok
			})
			if !ok {
				return false
			}

			if result.Correlation != nil && (*result.Correlation < -1 || *result.Correlation > 1) {
				return false
			}
			if bin, found := result.Optimal(); found && !(bin.TotalSale > minSupport) {
				return false
			}
			return true
		},
		gen.SliceOf(gen.Float64Range(0, 5000)),
		gen.SliceOf(gen.Float64Range(-2000, 2000)),
		gen.SliceOf(gen.Float64Range(0, 1)),
		gen.SliceOf(gen.IntRange(0, 900)),
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.Float64Range(0, 3000),
	))

	properties.TestingRun(t)
}
