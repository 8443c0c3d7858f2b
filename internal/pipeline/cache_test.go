package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/analytics"
	apperrors "salespulse/internal/errors"
	"salespulse/pkg/contracts/domain"
)

func TestCacheKey(t *testing.T) {
	q := []domain.QuarantinedRow{{RowIndex: 3, Reason: domain.ReasonRangeViolation, Field: domain.FieldDiscount, Detail: "x"}}

	base := CacheKey("snap", "cfg", DefaultPolicyName, nil)
	assert.Len(t, base, 64)
	assert.Equal(t, base, CacheKey("snap", "cfg", DefaultPolicyName, nil))
	assert.NotEqual(t, base, CacheKey("snap2", "cfg", DefaultPolicyName, nil))
	assert.NotEqual(t, base, CacheKey("snap", "cfg2", DefaultPolicyName, nil))
	assert.NotEqual(t, base, CacheKey("snap", "cfg", "latest-max", nil))
	assert.NotEqual(t, base, CacheKey("snap", "cfg", DefaultPolicyName, q))
}

func TestAnalysisCache_SharesConcurrentComputation(t *testing.T) {
	cache := NewAnalysisCache(time.Minute, nil, discardLogger())
	defer cache.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	want := &Analysis{}

	const callers = 8
	results := make([]*Analysis, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := cache.GetOrCompute(context.Background(), "key", func(context.Context) (*Analysis, error) {
				calls.Add(1)
				<-release
				return want, nil
			})
			assert.NoError(t, err)
			results[i] = got
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, got := range results {
		assert.Same(t, want, got)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestAnalysisCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	cache := NewAnalysisCache(time.Minute, nil, discardLogger())
	defer cache.Close()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	want := &Analysis{}
	compute := func(ctx context.Context) (*Analysis, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return want, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrCompute(ctxA, "key", compute)
		errA <- err
	}()
	<-started

	type outcome struct {
		analysis *Analysis
		err      error
	}
	resB := make(chan outcome, 1)
	go func() {
		got, _, err := cache.GetOrCompute(context.Background(), "key", compute)
		resB <- outcome{got, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case got := <-resB:
		require.NoError(t, got.err)
		assert.Same(t, want, got.analysis)
	case <-time.After(time.Second):
		t.Fatal("live caller never received the analysis")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestAnalysisCache_HitAndExpiry(t *testing.T) {
	cache := NewAnalysisCache(50*time.Millisecond, nil, discardLogger())
	defer cache.Close()

	var calls int
	compute := func(context.Context) (*Analysis, error) {
		calls++
		return &Analysis{}, nil
	}

	_, hit, err := cache.GetOrCompute(context.Background(), "key", compute)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = cache.GetOrCompute(context.Background(), "key", compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	time.Sleep(120 * time.Millisecond)
	_, hit, err = cache.GetOrCompute(context.Background(), "key", compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)
}

func TestAnalysisCache_ErrorsAreNotCached(t *testing.T) {
	cache := NewAnalysisCache(time.Minute, nil, discardLogger())
	defer cache.Close()

	boom := errors.New("boom")
	_, _, err := cache.GetOrCompute(context.Background(), "key", func(context.Context) (*Analysis, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, cache.Len())

	got, hit, err := cache.GetOrCompute(context.Background(), "key", func(context.Context) (*Analysis, error) {
		return &Analysis{}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NotNil(t, got)
}

func TestRun_CachedAnalysis(t *testing.T) {
	cache := NewAnalysisCache(time.Minute, nil, discardLogger())
	defer cache.Close()

	p := newPipeline(t, Options{Cache: cache})
	first, err := p.Run(context.Background(), sampleRows())
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.Run(context.Background(), sampleRows())
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Same(t, first.Analysis, second.Analysis)

	cfg := defaultConfig(t)
	cfg.PeriodGranularity = domain.GranularityWeek
	weekly, err := New(cfg, discardLogger(), Options{Cache: cache})
	require.NoError(t, err)

	third, err := weekly.Run(context.Background(), sampleRows())
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, domain.GranularityWeek, third.Analysis.Trends.Granularity)
	assert.Equal(t, 2, cache.Len())
}

func TestRun_CacheSeparatesPolicies(t *testing.T) {
	cache := NewAnalysisCache(time.Minute, nil, discardLogger())
	defer cache.Close()

	latestMax := func(sales []float64) int {
		best := -1
		for i, s := range sales {
			if best < 0 || s >= sales[best] {
				best = i
			}
		}
		return best
	}

	base := newPipeline(t, Options{Cache: cache})
	custom, err := New(defaultConfig(t), discardLogger(), Options{
		Cache:      cache,
		PeakPolicy: latestMax,
		PolicyName: "latest-max",
	})
	require.NoError(t, err)

	first, err := base.Run(context.Background(), sampleRows())
	require.NoError(t, err)
	second, err := custom.Run(context.Background(), sampleRows())
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.NotSame(t, first.Analysis, second.Analysis)
	assert.Equal(t, 2, cache.Len())
}

func TestNew_CustomPolicyWithCacheNeedsName(t *testing.T) {
	cache := NewAnalysisCache(time.Minute, nil, discardLogger())
	defer cache.Close()

	_, err := New(defaultConfig(t), discardLogger(), Options{
		Cache:      cache,
		OptimalBin: analytics.HighestMarginAboveSupport,
	})
	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "policyName", cfgErr.Problems[0].Field)

	_, err = New(defaultConfig(t), discardLogger(), Options{OptimalBin: analytics.HighestMarginAboveSupport})
	assert.NoError(t, err)
}
