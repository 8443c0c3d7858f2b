package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"salespulse/internal/infrastructure"
	"salespulse/pkg/contracts/domain"
)

// AnalysisCache memoizes analysis results per snapshot and configuration.
// Concurrent requests for the same key share one computation. Cached
// analyses are shared between callers and must be treated as read-only.
type AnalysisCache struct {
	cache   *ttlcache.Cache[string, *Analysis]
	group   singleflight.Group
	ttl     time.Duration
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewAnalysisCache creates a cache whose entries expire after ttl. Call
// Close to stop the expiry loop.
func NewAnalysisCache(ttl time.Duration, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *AnalysisCache {
	if logger == nil {
		logger = slog.Default()
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *Analysis](ttl),
		ttlcache.WithDisableTouchOnHit[string, *Analysis](),
	)
	go cache.Start()

	return &AnalysisCache{
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "analysis_cache")),
	}
}

// CacheKey combines the snapshot fingerprint, the configuration fingerprint,
// the analysis policy name and the quarantine list, which feeds the profile
// report.
func CacheKey(snapshotFingerprint, configFingerprint, policy string, quarantine []domain.QuarantinedRow) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s\n", snapshotFingerprint, configFingerprint, policy)
	for _, q := range quarantine {
		fmt.Fprintf(h, "%d|%s|%s|%s\n", q.RowIndex, q.Reason, q.Field, q.Detail)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCompute returns the cached analysis for key or runs compute once for
// all concurrent callers. The shared computation runs detached from any one
// caller's cancellation; each caller stops waiting when its own ctx is done.
// Failed computations are not cached. The boolean reports a cache hit.
func (c *AnalysisCache) GetOrCompute(ctx context.Context, key string, compute func(context.Context) (*Analysis, error)) (*Analysis, bool, error) {
	if item := c.cache.Get(key); item != nil {
		c.record(ctx, true)
		c.logger.DebugContext(ctx, "analysis cache hit", slog.String("key", shortKey(key)))
		return item.Value(), true, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if item := c.cache.Get(key); item != nil {
			return item.Value(), nil
		}
		c.record(shared, false)
		analysis, err := compute(shared)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, analysis, ttlcache.DefaultTTL)
		return analysis, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("analysis cache: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "analysis shared with concurrent run", slog.String("key", shortKey(key)))
		}
		return res.Val.(*Analysis), false, nil
	}
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *AnalysisCache) Len() int {
	return c.cache.Len()
}

// Close stops the expiry loop and drops every entry.
func (c *AnalysisCache) Close() {
	c.cache.Stop()
	c.cache.DeleteAll()
}

func (c *AnalysisCache) record(ctx context.Context, hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.Add(ctx, 1)
	} else {
		c.metrics.CacheMisses.Add(ctx, 1)
	}
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
