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

func snapshotOf(builders ...*testutil.OrderBuilder) *dataprocessing.Snapshot {
	return dataprocessing.NewSnapshot(testutil.Records(builders...))
}

func TestAggregate_SingleSubCategory(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").Sale(100),
		testutil.NewOrder("O-2", "P-2", "C-2").Sale(200),
		testutil.NewOrder("O-3", "P-3", "C-3").Sale(50),
	)

	result, err := NewAggregator(nil).Aggregate(context.Background(), snap, AggregationRequest{
		Dimensions: []domain.Dimension{domain.DimensionSubCategory},
	})
	require.NoError(t, err)
	require.Len(t, result.Aggregates, 1)

	agg := result.Aggregates[0]
	assert.Equal(t, []string{"Chairs"}, agg.Key)
	assert.Equal(t, 350.0, agg.TotalSale)
	assert.Equal(t, 3, agg.OrderCount)
	assert.Equal(t, int64(3), agg.TotalQuantity)
	assert.InDelta(t, 350.0/3, agg.MeanSale, 1e-9)
	require.NotNil(t, agg.ProfitMargin)
	assert.InDelta(t, 30.0/350, *agg.ProfitMargin, 1e-9)
	assert.Equal(t, "subCategory", result.Name)
	assert.Equal(t, []domain.Metric{domain.MetricSale}, result.Metrics)
	assert.Empty(t, result.Warnings)
}

func TestAggregate_Ordering(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").Category("Technology", "Phones").Region("East").Sale(500).Quantity(1),
		testutil.NewOrder("O-2", "P-2", "C-1").Category("Furniture", "Chairs").Region("East").Sale(300).Quantity(9),
		testutil.NewOrder("O-3", "P-3", "C-2").Category("Furniture", "Tables").Region("West").Sale(100).Quantity(2),
		testutil.NewOrder("O-4", "P-4", "C-3").Category("Office Supplies", "Paper").Region("West").Sale(500).Quantity(4),
	)

	tests := []struct {
		name string
		req  AggregationRequest
		want [][]string
	}{
		{
			name: "sale descending with lexical ties",
			req:  AggregationRequest{Dimensions: []domain.Dimension{domain.DimensionCategory}},
			want: [][]string{{"Office Supplies"}, {"Technology"}, {"Furniture"}},
		},
		{
			name: "quantity as primary metric",
			req: AggregationRequest{
				Dimensions: []domain.Dimension{domain.DimensionCategory},
				Metrics:    []domain.Metric{domain.MetricQuantity, domain.MetricSale},
			},
			want: [][]string{{"Furniture"}, {"Office Supplies"}, {"Technology"}},
		},
		{
			name: "two dimensions keep tuple order",
			req:  AggregationRequest{Dimensions: []domain.Dimension{domain.DimensionRegion, domain.DimensionCategory}},
			want: [][]string{
				{"East", "Technology"},
				{"West", "Office Supplies"},
				{"East", "Furniture"},
				{"West", "Furniture"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewAggregator(nil).Aggregate(context.Background(), snap, tt.req)
			require.NoError(t, err)

			keys := make([][]string, len(result.Aggregates))
			for i, a := range result.Aggregates {
				keys[i] = a.Key
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestAggregate_UnknownAndZeroSale(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").Region("").Sale(0).Profit(-5),
		testutil.NewOrder("O-2", "P-2", "C-2").Region("South").Sale(40),
	)

	result, err := NewAggregator(nil).Aggregate(context.Background(), snap, AggregationRequest{
		Name:       "by_region",
		Dimensions: []domain.Dimension{domain.DimensionRegion},
	})
	require.NoError(t, err)
	require.Len(t, result.Aggregates, 2)

	unknown := result.Aggregates[1]
	assert.Equal(t, []string{domain.UnknownDimensionValue}, unknown.Key)
	assert.Nil(t, unknown.ProfitMargin)
	assert.Equal(t, -5.0, unknown.TotalProfit)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, domain.WarnZeroSale, result.Warnings[0].Code)
	assert.Equal(t, domain.UnknownDimensionValue, result.Warnings[0].Subject)
	assert.Equal(t, "by_region", result.Name)
}

func TestAggregate_TimeDimension(t *testing.T) {
	snap := snapshotOf(
		testutil.NewOrder("O-1", "P-1", "C-1").On(testutil.Date(2024, time.January, 3)).Sale(10),
		testutil.NewOrder("O-2", "P-1", "C-1").On(testutil.Date(2024, time.January, 30)).Sale(15),
		testutil.NewOrder("O-3", "P-1", "C-1").On(testutil.Date(2024, time.March, 1)).Sale(40),
	)

	result, err := NewAggregator(nil).Aggregate(context.Background(), snap, AggregationRequest{
		Dimensions: []domain.Dimension{domain.DimensionOrderMonth},
	})
	require.NoError(t, err)
	require.Len(t, result.Aggregates, 2)
	assert.Equal(t, []string{"2024-03"}, result.Aggregates[0].Key)
	assert.Equal(t, []string{"2024-01"}, result.Aggregates[1].Key)
	assert.Equal(t, 25.0, result.Aggregates[1].TotalSale)
}

func TestAggregate_InvalidRequest(t *testing.T) {
	snap := snapshotOf(testutil.NewOrder("O-1", "P-1", "C-1"))

	tests := []struct {
		name string
		req  AggregationRequest
	}{
		{"no dimensions", AggregationRequest{Name: "empty"}},
		{"unknown dimension", AggregationRequest{Dimensions: []domain.Dimension{"colour"}}},
		{"unknown metric", AggregationRequest{
			Dimensions: []domain.Dimension{domain.DimensionRegion},
			Metrics:    []domain.Metric{"margin"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewAggregator(nil).Aggregate(context.Background(), snap, tt.req)
			assert.Nil(t, result)
			var cfgErr *apperrors.ConfigurationError
			require.True(t, apperrors.As(err, &cfgErr), "got %v", err)
			assert.NotEmpty(t, cfgErr.Problems)
		})
	}
}

func TestAggregate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := NewAggregator(nil).Aggregate(ctx, snapshotOf(testutil.NewOrder("O-1", "P-1", "C-1")),
		AggregationRequest{Dimensions: []domain.Dimension{domain.DimensionCategory}})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAggregate_EmptySnapshot(t *testing.T) {
	result, err := NewAggregator(nil).Aggregate(context.Background(), dataprocessing.NewSnapshot(nil),
		AggregationRequest{Dimensions: []domain.Dimension{domain.DimensionCategory}})
	require.NoError(t, err)
	assert.Empty(t, result.Aggregates)
}
