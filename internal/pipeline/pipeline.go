package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"salespulse/internal/analytics"
	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
	"salespulse/pkg/contracts/domain"
)

// TracerName names the pipeline's tracer.
const TracerName = "salespulse.pipeline"

// Stage names used for spans and the stage duration metric.
const (
	StageNormalize = "normalize"
	StageProfile   = "profile"
	StageAggregate = "aggregate"
	StageSegment   = "segment"
	StageTrends    = "trends"
	StageDiscount  = "discount"
)

// Options carries optional collaborators. The zero value runs without a
// cache, records no metrics and uses the global tracer.
type Options struct {
	Tracer     trace.Tracer
	Metrics    *infrastructure.PipelineMetrics
	Cache      *AnalysisCache
	PeakPolicy analytics.PeakPolicy
	OptimalBin analytics.OptimalBinPolicy
	// PolicyName identifies custom policies in cache keys. It is required
	// when a custom policy is combined with a cache.
	PolicyName string
}

// DefaultPolicyName names the built-in peak and optimal bin policies.
const DefaultPolicyName = "earliest-max-peak/highest-margin-above-support"

// Analysis holds the outputs of every analytical component.
type Analysis struct {
	Profile      *domain.ProfileReport       `json:"profile"`
	Aggregations []*domain.AggregationResult `json:"aggregations"`
	Segmentation *domain.SegmentationResult  `json:"segmentation"`
	Trends       *domain.TrendResult         `json:"trends"`
	Discount     *domain.DiscountResult      `json:"discount"`
}

// Warnings returns every degenerate computation warning in component order.
func (a *Analysis) Warnings() []domain.Warning {
	var out []domain.Warning
	if a.Profile != nil {
		out = append(out, a.Profile.Warnings...)
	}
	for _, agg := range a.Aggregations {
		out = append(out, agg.Warnings...)
	}
	if a.Segmentation != nil {
		out = append(out, a.Segmentation.Warnings...)
	}
	if a.Trends != nil {
		out = append(out, a.Trends.Warnings...)
	}
	if a.Discount != nil {
		out = append(out, a.Discount.Warnings...)
	}
	return out
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	InputRows  int
	Quarantine []domain.QuarantinedRow
	Snapshot   *dataprocessing.Snapshot
	Analysis   *Analysis
	// Cached reports that Analysis came from the cache.
	Cached   bool
	Duration time.Duration
}

// Pipeline normalizes raw rows into a snapshot and runs every analytical
// component over it. A Pipeline holds no per-run state and may run
// concurrently.
type Pipeline struct {
	cfg     PipelineConfig
	policy  string
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
	cache   *AnalysisCache

	normalizer *dataprocessing.Normalizer
	profiler   *dataprocessing.Profiler
	aggregator *analytics.Aggregator
	segmenter  *analytics.Segmenter
	trends     *analytics.TrendExtractor
	discount   *analytics.DiscountAnalyzer
}

// New validates cfg and builds a pipeline. An invalid configuration is
// reported as a ConfigurationError before any data is touched.
func New(cfg PipelineConfig, logger *slog.Logger, opts Options) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.clone()

	rules, err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	policy := opts.PolicyName
	if policy == "" {
		if opts.Cache != nil && (opts.PeakPolicy != nil || opts.OptimalBin != nil) {
			return nil, apperrors.NewConfigError("policyName", "is required when custom policies share an analysis cache")
		}
		policy = DefaultPolicyName
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}

	return &Pipeline{
		cfg:        cfg,
		policy:     policy,
		logger:     logger.With(slog.String("component", "pipeline")),
		tracer:     tracer,
		metrics:    opts.Metrics,
		cache:      opts.Cache,
		normalizer: dataprocessing.NewNormalizer(logger),
		profiler: dataprocessing.NewProfiler(logger, dataprocessing.ProfileOptions{
			ZScoreThreshold: cfg.OutlierZScoreThreshold,
			IQRMultiplier:   cfg.OutlierIQRMultiplier,
		}),
		aggregator: analytics.NewAggregator(logger),
		segmenter:  analytics.NewSegmenter(logger, rules),
		trends:     analytics.NewTrendExtractor(logger, opts.PeakPolicy),
		discount:   analytics.NewDiscountAnalyzer(logger, opts.OptimalBin),
	}, nil
}

// Config returns a copy of the pipeline's configuration.
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg.clone()
}

// Run normalizes rows and analyzes the resulting snapshot. It fails with an
// EmptySnapshotError when no row survives normalization. A cancelled run
// returns the context error and no partial result.
func (p *Pipeline) Run(ctx context.Context, rows []domain.RawRow) (*Result, error) {
	return p.execute(ctx, rows, false)
}

// Profile normalizes rows and runs only the profiler. The result's Analysis
// carries a profile and nothing else. Profile runs bypass the cache.
func (p *Pipeline) Profile(ctx context.Context, rows []domain.RawRow) (*Result, error) {
	return p.execute(ctx, rows, true)
}

func (p *Pipeline) execute(ctx context.Context, rows []domain.RawRow, profileOnly bool) (*Result, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.input_rows", len(rows)),
			attribute.Bool("run.profile_only", profileOnly),
		))
	defer span.End()

	infrastructure.RecordActiveRunChange(ctx, p.metrics, 1)
	defer infrastructure.RecordActiveRunChange(ctx, p.metrics, -1)

	p.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.Int("input_rows", len(rows)),
		slog.Bool("profile_only", profileOnly))

	result, err := p.run(ctx, rows, profileOnly)
	duration := time.Since(start)
	infrastructure.RecordRunMetrics(ctx, p.metrics, duration, err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(p.logger, err).ErrorContext(ctx, "run_error",
			slog.String("run_id", runID),
			slog.Duration("duration", duration))
		return nil, err
	}

	result.RunID = runID
	result.Duration = duration
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(
		attribute.Int("run.records", result.Snapshot.Len()),
		attribute.Int("run.quarantined", len(result.Quarantine)),
		attribute.Bool("run.cached", result.Cached),
	)
	p.logger.InfoContext(ctx, "run_complete",
		slog.String("run_id", runID),
		slog.Int("records", result.Snapshot.Len()),
		slog.Int("quarantined", len(result.Quarantine)),
		slog.Bool("cached", result.Cached),
		slog.Duration("duration", duration))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, rows []domain.RawRow, profileOnly bool) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline run: %w", err)
	}

	norm, err := runStage(ctx, p, StageNormalize, func(ctx context.Context) (*dataprocessing.NormalizeResult, error) {
		return p.normalizer.Normalize(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	p.recordNormalization(ctx, norm)

	if norm.Snapshot.Len() == 0 {
		return nil, &apperrors.EmptySnapshotError{
			InputRows:  norm.InputRows,
			Quarantine: norm.Quarantine,
		}
	}

	result := &Result{
		InputRows:  norm.InputRows,
		Quarantine: norm.Quarantine,
		Snapshot:   norm.Snapshot,
	}

	compute := func(ctx context.Context) (*Analysis, error) {
		return p.analyze(ctx, norm.Snapshot, norm.Quarantine)
	}
	switch {
	case profileOnly:
		result.Analysis, err = p.profileOnly(ctx, norm.Snapshot, norm.Quarantine)
	case p.cache != nil:
		key := CacheKey(norm.Snapshot.Fingerprint(), p.cfg.Fingerprint(), p.policy, norm.Quarantine)
		result.Analysis, result.Cached, err = p.cache.GetOrCompute(ctx, key, compute)
	default:
		result.Analysis, err = compute(ctx)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline run: %w", err)
	}
	return result, nil
}

// analyze runs every analytical component concurrently over the snapshot.
func (p *Pipeline) analyze(ctx context.Context, snap *dataprocessing.Snapshot, quarantine []domain.QuarantinedRow) (*Analysis, error) {
	analysis := &Analysis{
		Aggregations: make([]*domain.AggregationResult, len(p.cfg.Aggregations)),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		analysis.Profile, err = runStage(gctx, p, StageProfile, func(ctx context.Context) (*domain.ProfileReport, error) {
			return p.profiler.Profile(ctx, snap, quarantine)
		})
		return err
	})

	for i, req := range p.cfg.Aggregations {
		g.Go(func() error {
			var err error
			analysis.Aggregations[i], err = runStage(gctx, p, StageAggregate, func(ctx context.Context) (*domain.AggregationResult, error) {
				trace.SpanFromContext(ctx).SetAttributes(attribute.String("aggregation.name", req.DisplayName()))
				return p.aggregator.Aggregate(ctx, snap, req)
			})
			return err
		})
	}

	g.Go(func() error {
		var err error
		analysis.Segmentation, err = runStage(gctx, p, StageSegment, func(ctx context.Context) (*domain.SegmentationResult, error) {
			return p.segmenter.Segment(ctx, snap, p.cfg.ReferenceDate)
		})
		return err
	})

	g.Go(func() error {
		var err error
		analysis.Trends, err = runStage(gctx, p, StageTrends, func(ctx context.Context) (*domain.TrendResult, error) {
			return p.trends.ExtractTrends(ctx, snap, p.cfg.PeriodGranularity)
		})
		return err
	})

	g.Go(func() error {
		var err error
		analysis.Discount, err = runStage(gctx, p, StageDiscount, func(ctx context.Context) (*domain.DiscountResult, error) {
			return p.discount.AnalyzeDiscountProfit(ctx, snap, p.cfg.DiscountBinEdges, p.cfg.MinSupportThreshold)
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze snapshot: %w", err)
	}

	p.recordWarnings(ctx, analysis.Warnings())
	return analysis, nil
}

func (p *Pipeline) profileOnly(ctx context.Context, snap *dataprocessing.Snapshot, quarantine []domain.QuarantinedRow) (*Analysis, error) {
	report, err := runStage(ctx, p, StageProfile, func(ctx context.Context) (*domain.ProfileReport, error) {
		return p.profiler.Profile(ctx, snap, quarantine)
	})
	if err != nil {
		return nil, fmt.Errorf("profile snapshot: %w", err)
	}
	analysis := &Analysis{Profile: report}
	p.recordWarnings(ctx, analysis.Warnings())
	return analysis, nil
}

// runStage wraps one component call in a span and records its duration.
func runStage[T any](ctx context.Context, p *Pipeline, stage string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+stage,
		trace.WithAttributes(attribute.String("stage", stage)))
	defer span.End()

	start := time.Now()
	out, err := fn(ctx)
	duration := time.Since(start)
	infrastructure.RecordStageMetrics(ctx, p.metrics, stage, duration, err)

	if err != nil {
		infrastructure.RecordError(ctx, err)
		infrastructure.WithError(p.logger, err).DebugContext(ctx, "stage_error",
			slog.String("stage", stage))
		return out, err
	}
	p.logger.DebugContext(ctx, "stage_complete",
		slog.String("stage", stage),
		slog.Duration("duration", duration))
	return out, nil
}

func (p *Pipeline) recordNormalization(ctx context.Context, norm *dataprocessing.NormalizeResult) {
	if p.metrics == nil {
		return
	}
	p.metrics.RecordsNormalized.Add(ctx, int64(norm.Snapshot.Len()))

	byReason := make(map[domain.QuarantineReason]int64)
	for _, q := range norm.Quarantine {
		byReason[q.Reason]++
	}
	for reason, n := range byReason {
		p.metrics.RecordsQuarantined.Add(ctx, n, metric.WithAttributes(
			attribute.String("reason", string(reason)),
		))
	}
}

func (p *Pipeline) recordWarnings(ctx context.Context, warnings []domain.Warning) {
	if p.metrics == nil {
		return
	}
	for _, w := range warnings {
		p.metrics.DegenerateWarnings.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", w.Component),
			attribute.String("code", string(w.Code)),
		))
	}
}
