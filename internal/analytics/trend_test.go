package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/shared/testutil"
	"salespulse/pkg/contracts/domain"
)

func TestPeriodStartAndLabel(t *testing.T) {
	// Thursday
	d := time.Date(2024, time.August, 15, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		g         domain.Granularity
		wantStart time.Time
		wantNext  time.Time
		wantLabel string
	}{
		{domain.GranularityDay, testutil.Date(2024, time.August, 15), testutil.Date(2024, time.August, 16), "2024-08-15"},
		{domain.GranularityWeek, testutil.Date(2024, time.August, 12), testutil.Date(2024, time.August, 19), "2024-W33"},
		{domain.GranularityMonth, testutil.Date(2024, time.August, 1), testutil.Date(2024, time.September, 1), "2024-08"},
		{domain.GranularityQuarter, testutil.Date(2024, time.July, 1), testutil.Date(2024, time.October, 1), "2024-Q3"},
		{domain.GranularityYear, testutil.Date(2024, time.January, 1), testutil.Date(2025, time.January, 1), "2024"},
	}

	for _, tt := range tests {
		t.Run(string(tt.g), func(t *testing.T) {
			start := PeriodStart(d, tt.g)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantNext, NextPeriod(start, tt.g))
			assert.Equal(t, tt.wantLabel, PeriodLabel(d, tt.g))
		})
	}
}

func TestPeriodStart_SundayBelongsToPreviousWeek(t *testing.T) {
	sunday := testutil.Date(2024, time.September, 1)
	assert.Equal(t, testutil.Date(2024, time.August, 26), PeriodStart(sunday, domain.GranularityWeek))
	assert.Equal(t, "2024-W35", PeriodLabel(sunday, domain.GranularityWeek))
}

func TestExtractTrends_TwoMonthsOneEmpty(t *testing.T) {
	// The range spans January and February but only January has sales in
	// Furniture; February is reached through a zero-sale record.
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").On(testutil.Date(2024, time.January, 5)).Sale(100),
		testutil.NewOrder("O-2", "P-1", "C-1").On(testutil.Date(2024, time.January, 20)).Sale(50),
		testutil.NewOrder("O-3", "P-1", "C-1").On(testutil.Date(2024, time.February, 29)).Sale(0).Profit(0),
	)

	result, err := NewTrendExtractor(nil, nil).ExtractTrends(context.Background(), snap, domain.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, result.Buckets, 2)

	jan, feb := result.Buckets[0], result.Buckets[1]
	assert.Equal(t, "2024-01", jan.Label)
	assert.Equal(t, 150.0, jan.TotalSale)
	assert.Equal(t, 2, jan.OrderCount)
	assert.Nil(t, jan.SaleChangePct)

	assert.Equal(t, "2024-02", feb.Label)
	assert.Equal(t, 0.0, feb.TotalSale)
	assert.Equal(t, -150.0, feb.SaleDelta)
	require.NotNil(t, feb.SaleChangePct)
	assert.InDelta(t, -100.0, *feb.SaleChangePct, 1e-9)

	require.Len(t, result.Peaks, 1)
	assert.Equal(t, "Furniture", result.Peaks[0].Category)
	assert.Equal(t, "2024-01", result.Peaks[0].Period)
	assert.Equal(t, 150.0, result.Peaks[0].PeakSale)
}

func TestExtractTrends_GapsAreZeroFilled(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").On(testutil.Date(2023, time.November, 2)).Sale(40),
		testutil.NewOrder("O-2", "P-1", "C-1").On(testutil.Date(2024, time.February, 9)).Sale(80),
	)

	result, err := NewTrendExtractor(nil, nil).ExtractTrends(context.Background(), snap, domain.GranularityMonth)
	require.NoError(t, err)

	labels := make([]string, len(result.Buckets))
	for i, b := range result.Buckets {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"2023-11", "2023-12", "2024-01", "2024-02"}, labels)
	assert.Equal(t, 0, result.Buckets[1].OrderCount)
	assert.Nil(t, result.Buckets[2].SaleChangePct, "previous period has zero sale")
	assert.Nil(t, result.Buckets[3].SaleChangePct)

	var zeroPrev []string
	for _, w := range result.Warnings {
		if w.Code == domain.WarnZeroPreviousSale {
			zeroPrev = append(zeroPrev, w.Subject)
		}
	}
	assert.Equal(t, []string{"2024-01", "2024-02"}, zeroPrev)
}

func TestExtractTrends_PeaksPerCategory(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").Category("Technology", "Phones").On(testutil.Date(2024, time.January, 5)).Sale(30),
		testutil.NewOrder("O-2", "P-2", "C-1").Category("Technology", "Phones").On(testutil.Date(2024, time.March, 5)).Sale(90),
		testutil.NewOrder("O-3", "P-3", "C-2").Category("Furniture", "Chairs").On(testutil.Date(2024, time.February, 5)).Sale(60),
		testutil.NewOrder("O-4", "P-3", "C-2").Category("Furniture", "Chairs").On(testutil.Date(2024, time.March, 9)).Sale(60),
		testutil.NewOrder("O-5", "P-3", "C-3").Category("Office Supplies", "Paper").On(testutil.Date(2024, time.January, 9)).Sale(10),
		testutil.NewOrder("O-6", "P-3", "C-3").Category("Office Supplies", "Paper").On(testutil.Date(2024, time.February, 9)).Sale(10),
		testutil.NewOrder("O-7", "P-3", "C-3").Category("Office Supplies", "Paper").On(testutil.Date(2024, time.March, 9)).Sale(10),
	)

	result, err := NewTrendExtractor(nil, nil).ExtractTrends(context.Background(), snap, domain.GranularityMonth)
	require.NoError(t, err)

	assert.Equal(t, []domain.CategoryPeak{
		{Category: "Furniture", Period: "2024-02", PeakStart: testutil.Date(2024, time.February, 1), PeakSale: 60},
		{Category: "Office Supplies", Period: "2024-01", PeakStart: testutil.Date(2024, time.January, 1), PeakSale: 10},
		{Category: "Technology", Period: "2024-03", PeakStart: testutil.Date(2024, time.March, 1), PeakSale: 90},
	}, result.Peaks)

	var flat []string
	for _, w := range result.Warnings {
		if w.Code == domain.WarnFlatCategorySeries {
			flat = append(flat, w.Subject)
		}
	}
	assert.Equal(t, []string{"Office Supplies"}, flat)
}

func TestExtractTrends_CustomPeakPolicy(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").On(testutil.Date(2024, time.January, 5)).Sale(30),
		testutil.NewOrder("O-2", "P-1", "C-1").On(testutil.Date(2024, time.February, 5)).Sale(30),
	)
	latestMax := func(sales []float64) int {
		best := -1
		for i, v := range sales {
			if best < 0 || v >= sales[best] {
				best = i
			}
		}
		return best
	}

	result, err := NewTrendExtractor(nil, latestMax).ExtractTrends(context.Background(), snap, domain.GranularityMonth)
	require.NoError(t, err)
	require.Len(t, result.Peaks, 1)
	assert.Equal(t, "2024-02", result.Peaks[0].Period)
}

func TestExtractTrends_EmptyAndInvalid(t *testing.T) {
	extractor := NewTrendExtractor(nil, nil)

	result, err := extractor.ExtractTrends(context.Background(), dataprocessing.NewSnapshot(nil), domain.GranularityWeek)
	require.NoError(t, err)
	assert.Empty(t, result.Buckets)
	assert.Empty(t, result.Peaks)

	result, err = extractor.ExtractTrends(context.Background(), dataprocessing.NewSnapshot(nil), "fortnight")
	assert.Nil(t, result)
	var cfgErr *apperrors.ConfigurationError
	require.True(t, apperrors.As(err, &cfgErr))
	assert.Equal(t, "periodGranularity", cfgErr.Problems[0].Field)
}

func TestExtractTrends_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewTrendExtractor(nil, nil).ExtractTrends(ctx,
		snapshotOf(testutil.NewOrder("O-1", "P-1", "C-1")), domain.GranularityMonth)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}
