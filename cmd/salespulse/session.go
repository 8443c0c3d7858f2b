package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"salespulse/internal/config"
	"salespulse/internal/dataprocessing"
	apperrors "salespulse/internal/errors"
	"salespulse/internal/exporter"
	"salespulse/internal/infrastructure"
	"salespulse/internal/middleware"
	"salespulse/internal/pipeline"
	transport "salespulse/internal/transport/http"
	"salespulse/internal/validation"
	"salespulse/pkg/contracts/domain"
)

// session owns the collaborators of one command invocation: telemetry, the
// optional ops endpoint and the analysis cache.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	providers *infrastructure.OTelProviders
	metrics   *infrastructure.PipelineMetrics
	health    *transport.HealthHandler
	ops       *transport.Server
	cache     *pipeline.AnalysisCache
}

func startSession(ctx context.Context, rt *runtime) (*session, error) {
	s := &session{cfg: rt.cfg, logger: rt.logger}

	if rt.cfg.Telemetry.Enabled || rt.cfg.Ops.Enabled {
		otelCfg := infrastructure.OTelConfigFrom(rt.cfg.Telemetry)
		otelCfg.EnableTracing = rt.cfg.Telemetry.Enabled
		providers, err := infrastructure.InitializeOTel(otelCfg, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		s.providers = providers

		metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
		if err != nil {
			s.close(ctx)
			return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
		}
		s.metrics = metrics
	}

	if rt.cfg.Ops.Enabled {
		s.health = transport.NewHealthHandler(rt.logger)
		var limiter *middleware.RateLimiter
		if rt.cfg.Ops.RateLimit > 0 {
			limiter = middleware.NewRateLimiter(rt.cfg.Ops.RateLimit, rt.cfg.Ops.RateBurst, rt.logger)
		}
		router := transport.NewOpsRouter(transport.RouterOptions{
			Health:  s.health,
			Metrics: s.providers.PrometheusHTTP,
			Limiter: limiter,
		}, rt.logger)

		s.ops = transport.NewServer(rt.cfg.Ops.Addr, router, rt.cfg.Ops.ShutdownTimeout, rt.logger)
		if err := s.ops.Start(ctx); err != nil {
			s.ops = nil
			s.close(ctx)
			return nil, err
		}
	}

	if rt.cfg.Cache.Enabled {
		s.cache = pipeline.NewAnalysisCache(rt.cfg.Cache.TTL, s.metrics, rt.logger)
	}
	return s, nil
}

// close releases everything startSession acquired. Errors are logged since
// the command's own error takes precedence.
func (s *session) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if s.ops != nil {
		if err := s.ops.Shutdown(ctx); err != nil {
			infrastructure.WithError(s.logger, err).ErrorContext(ctx, "ops server shutdown failed")
		}
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.providers != nil {
		if err := s.providers.Shutdown(ctx); err != nil {
			infrastructure.WithError(s.logger, err).ErrorContext(ctx, "telemetry shutdown failed")
		}
	}
}

// load resolves the input arguments and parses every file.
func (s *session) load(ctx context.Context, args []string) ([]domain.RawRow, error) {
	paths, err := validation.NewFileValidator(s.logger).ResolveInputs(args)
	if err != nil {
		return nil, err
	}

	loader := dataprocessing.NewLoader(s.logger, s.cfg.Input.Workers, s.cfg.Input.Sheet)
	defer loader.Close()

	rows, err := loader.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RowsLoaded.Add(ctx, int64(len(rows)))
	}
	s.logger.InfoContext(ctx, "input_loaded",
		slog.Int("files", len(paths)),
		slog.Int("rows", len(rows)))
	return rows, nil
}

// newPipeline builds a pipeline from the resolved settings.
func (s *session) newPipeline() (*pipeline.Pipeline, error) {
	rules, err := config.LoadSegmentRules(s.cfg.Pipeline.SegmentRulesFile)
	if err != nil {
		return nil, apperrors.NewConfigError("segmentRules", "%v", err)
	}
	cfg, err := pipeline.FromSettings(s.cfg.Pipeline, rules)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{Metrics: s.metrics, Cache: s.cache}
	if s.providers != nil && s.providers.Tracer != nil {
		opts.Tracer = s.providers.Tracer
	}
	return pipeline.New(cfg, s.logger, opts)
}

// recordRun publishes a run outcome on the health endpoint.
func (s *session) recordRun(ctx context.Context, result *pipeline.Result, err error) {
	if s.health == nil {
		return
	}
	status := transport.RunStatus{
		RunID:  infrastructure.GetTraceID(ctx),
		Status: "success",
	}
	if result != nil {
		status.RunID = result.RunID
		status.Records = result.Snapshot.Len()
		status.Quarantined = len(result.Quarantine)
		status.Cached = result.Cached
	}
	if err != nil {
		status.Status = "failure"
		status.Error = err.Error()
		var emptyErr *apperrors.EmptySnapshotError
		if errors.As(err, &emptyErr) {
			status.Quarantined = len(emptyErr.Quarantine)
		}
	}
	s.health.RecordRun(status)
}

// reportEmpty prints and writes the quarantine of a run that kept no rows.
// The quarantine CSV is written whenever any file output is enabled.
func (s *session) reportEmpty(ctx context.Context, out io.Writer, empty *apperrors.EmptySnapshotError) error {
	if s.cfg.Output.Console {
		if err := exporter.WriteTables(out, []exporter.Table{exporter.QuarantineTable(empty.Quarantine)}); err != nil {
			return fmt.Errorf("write quarantine: %w", err)
		}
	}
	if !s.cfg.Output.CSV && !s.cfg.Output.XLSX {
		return nil
	}
	if err := validation.NewFileValidator(s.logger).ValidateOutputDirectory(s.cfg.Output.Dir); err != nil {
		return err
	}
	path, err := exporter.NewReportExporter(s.cfg.Output.Dir, s.logger).ExportQuarantine(ctx, empty.Quarantine)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nquarantine report written to %s\n", path)
	return nil
}

// export writes the configured report files and returns their paths.
func (s *session) export(ctx context.Context, result *pipeline.Result) ([]string, error) {
	if !s.cfg.Output.CSV && !s.cfg.Output.XLSX {
		return nil, nil
	}
	if err := validation.NewFileValidator(s.logger).ValidateOutputDirectory(s.cfg.Output.Dir); err != nil {
		return nil, err
	}

	exp := exporter.NewReportExporter(s.cfg.Output.Dir, s.logger)
	var written []string
	if s.cfg.Output.CSV {
		paths, err := exp.ExportCSV(ctx, result)
		if err != nil {
			return nil, err
		}
		written = append(written, paths...)
	}
	if s.cfg.Output.XLSX {
		path, err := exp.ExportXLSX(ctx, result)
		if err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}
