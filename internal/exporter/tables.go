package exporter

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"salespulse/internal/pipeline"
	"salespulse/pkg/contracts"
	"salespulse/pkg/contracts/domain"
)

// Table is one rectangular report, written as a CSV file or a worksheet.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// FileName returns the table's CSV file name.
func (t Table) FileName() string {
	return unsafeName.ReplaceAllString(t.Name, "_") + ".csv"
}

// BuildTables renders a run result as report tables in a fixed order. The
// output depends only on the snapshot, quarantine and analysis, never on the
// run id or timing.
func BuildTables(result *pipeline.Result) []Table {
	a := result.Analysis
	tables := []Table{summaryTable(result), QuarantineTable(result.Quarantine)}
	if a.Profile != nil {
		tables = append(tables, profileFieldTable(a.Profile), profileNumericTable(a.Profile))
	}
	for _, agg := range a.Aggregations {
		tables = append(tables, aggregationTable(agg))
	}
	if a.Segmentation != nil {
		tables = append(tables, customerTable(a.Segmentation), segmentTable(a.Segmentation))
	}
	if a.Trends != nil {
		tables = append(tables, trendTable(a.Trends), peakTable(a.Trends))
	}
	if a.Discount != nil {
		tables = append(tables, discountTable(a.Discount))
	}
	tables = append(tables, warningTable(a.Warnings()))
	return tables
}

func summaryTable(result *pipeline.Result) Table {
	snap := result.Snapshot
	sale, profit, quantity := snap.Totals()
	from, to := snap.DateRange()

	rows := [][]string{
		{"data_format_version", contracts.DataFormatVersion},
		{"input_rows", formatInt(result.InputRows)},
		{"records", formatInt(snap.Len())},
		{"quarantined", formatInt(len(result.Quarantine))},
		{"first_order_date", formatDate(from)},
		{"last_order_date", formatDate(to)},
		{"total_sale", formatMoney(sale)},
		{"total_profit", formatMoney(profit)},
		{"total_quantity", formatInt(quantity)},
	}
	if d := result.Analysis.Discount; d != nil {
		rows = append(rows, []string{"discount_margin_correlation", formatOptional(d.Correlation, formatRatio)})
		optimal := ""
		if bin, ok := d.Optimal(); ok {
			optimal = binLabel(bin)
		}
		rows = append(rows, []string{"optimal_discount_bin", optimal})
	}
	return Table{Name: "summary", Headers: []string{"metric", "value"}, Rows: rows}
}

// QuarantineTable lists quarantined rows with their reason and field.
func QuarantineTable(quarantine []domain.QuarantinedRow) Table {
	t := Table{Name: "quarantine", Headers: []string{"row_index", "reason", "field", "detail"}}
	for _, q := range quarantine {
		t.Rows = append(t.Rows, []string{formatInt(q.RowIndex), string(q.Reason), string(q.Field), q.Detail})
	}
	return t
}

func profileFieldTable(p *domain.ProfileReport) Table {
	t := Table{Name: "profile_fields", Headers: []string{"field", "kind", "missing", "missing_rate", "cardinality"}}
	for _, f := range p.Fields {
		t.Rows = append(t.Rows, []string{
			string(f.Field), string(f.Kind), formatInt(f.Missing), formatRatio(f.MissingRate), formatInt(f.Cardinality),
		})
	}
	return t
}

func profileNumericTable(p *domain.ProfileReport) Table {
	t := Table{Name: "profile_numeric", Headers: []string{
		"field", "count", "mean", "std_dev", "min", "q1", "median", "q3", "max",
		"zscore_outliers", "iqr_outliers",
	}}
	for _, n := range p.Numeric {
		zscore := ""
		if n.ZScoreComputed {
			zscore = formatInt(len(n.ZScoreOutliers))
		}
		t.Rows = append(t.Rows, []string{
			string(n.Field), formatInt(n.Count),
			formatRatio(n.Mean), formatRatio(n.StdDev), formatRatio(n.Min), formatRatio(n.Q1),
			formatRatio(n.Median), formatRatio(n.Q3), formatRatio(n.Max),
			zscore, formatInt(len(n.IQROutliers)),
		})
	}
	return t
}

func aggregationTable(agg *domain.AggregationResult) Table {
	headers := make([]string, 0, len(agg.Dimensions)+7)
	for _, d := range agg.Dimensions {
		headers = append(headers, string(d))
	}
	headers = append(headers, "total_sale", "total_profit", "total_quantity", "order_count",
		"mean_sale", "mean_profit", "profit_margin")

	t := Table{Name: "aggregation_" + agg.Name, Headers: headers}
	for _, g := range agg.Aggregates {
		row := append([]string(nil), g.Key...)
		row = append(row,
			formatMoney(g.TotalSale), formatMoney(g.TotalProfit), formatInt(g.TotalQuantity),
			formatInt(g.OrderCount), formatMoney(g.MeanSale), formatMoney(g.MeanProfit),
			formatOptional(g.ProfitMargin, formatRatio),
		)
		t.Rows = append(t.Rows, row)
	}
	return t
}

func customerTable(s *domain.SegmentationResult) Table {
	t := Table{Name: "customers", Headers: []string{
		"customer_id", "customer_name", "last_order_date", "recency_days", "frequency",
		"monetary_total", "recency_band", "frequency_band", "monetary_band", "segment",
	}}
	for _, p := range s.Profiles {
		t.Rows = append(t.Rows, []string{
			p.CustomerID, p.CustomerName, formatDate(p.LastOrderDate), formatInt(p.RecencyDays),
			formatInt(p.Frequency), formatMoney(p.MonetaryTotal), formatInt(p.RecencyBand),
			formatInt(p.FrequencyBand), formatInt(p.MonetaryBand), p.SegmentLabel,
		})
	}
	return t
}

func segmentTable(s *domain.SegmentationResult) Table {
	t := Table{Name: "segments", Headers: []string{"segment", "customers"}}
	for _, size := range s.Segments {
		t.Rows = append(t.Rows, []string{size.Label, formatInt(size.Customers)})
	}
	return t
}

func trendTable(tr *domain.TrendResult) Table {
	t := Table{Name: "trends_" + string(tr.Granularity), Headers: []string{
		"period", "start", "end", "total_sale", "total_profit", "total_quantity", "order_count",
		"sale_delta", "profit_delta", "quantity_delta", "sale_change_pct",
	}}
	for _, b := range tr.Buckets {
		t.Rows = append(t.Rows, []string{
			b.Label, formatDate(b.Start), formatDate(b.End),
			formatMoney(b.TotalSale), formatMoney(b.TotalProfit), formatInt(b.TotalQuantity), formatInt(b.OrderCount),
			formatMoney(b.SaleDelta), formatMoney(b.ProfitDelta), formatInt(b.QuantityDelta),
			formatOptional(b.SaleChangePct, formatMoney),
		})
	}
	return t
}

func peakTable(tr *domain.TrendResult) Table {
	t := Table{Name: "category_peaks", Headers: []string{"category", "period", "peak_start", "peak_sale"}}
	for _, p := range tr.Peaks {
		t.Rows = append(t.Rows, []string{p.Category, p.Period, formatDate(p.PeakStart), formatMoney(p.PeakSale)})
	}
	return t
}

func discountTable(d *domain.DiscountResult) Table {
	t := Table{Name: "discount_bins", Headers: []string{
		"bin", "order_count", "margin_count", "degenerate_count", "total_sale", "total_profit",
		"avg_profit_margin", "optimal",
	}}
	for i, b := range d.Bins {
		optimal := d.OptimalBin != nil && *d.OptimalBin == i
		t.Rows = append(t.Rows, []string{
			binLabel(b), formatInt(b.OrderCount), formatInt(b.MarginCount), formatInt(b.DegenerateCount),
			formatMoney(b.TotalSale), formatMoney(b.TotalProfit),
			formatOptional(b.AvgProfitMargin, formatRatio), formatBool(optimal),
		})
	}
	return t
}

func warningTable(warnings []domain.Warning) Table {
	t := Table{Name: "warnings", Headers: []string{"component", "code", "subject", "message"}}
	for _, w := range warnings {
		t.Rows = append(t.Rows, []string{w.Component, string(w.Code), w.Subject, w.Message})
	}
	return t
}

// binLabel renders a bin as an interval, such as "[0.1, 0.2)".
func binLabel(b domain.DiscountBin) string {
	closing := ")"
	if b.UpperInclusive {
		closing = "]"
	}
	return fmt.Sprintf("[%s, %s%s", trimRatio(b.Lower), trimRatio(b.Upper), closing)
}

func trimRatio(f float64) string {
	return decimal.NewFromFloat(f).String()
}
