package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespulse/internal/config"
	"salespulse/internal/shared/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		ServiceName:    "salespulse-nightly",
		Environment:    "production",
		TracesToStdout: true,
	})
	assert.Equal(t, "salespulse-nightly", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "stdout", cfg.TraceExporter)

	cfg = OTelConfigFrom(config.TelemetryConfig{})
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, "none", cfg.TraceExporter)
}

func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*OTelConfig)
		wantErr bool
	}{
		{"stdout traces", func(c *OTelConfig) { c.TraceExporter = "stdout"; c.TraceWriter = io.Discard }, false},
		{"tracing disabled", func(c *OTelConfig) { c.EnableTracing = false }, false},
		{"metrics disabled", func(c *OTelConfig) { c.MetricExporter = "none" }, false},
		{"unknown trace exporter", func(c *OTelConfig) { c.TraceExporter = "jaeger" }, true},
		{"unknown metric exporter", func(c *OTelConfig) { c.MetricExporter = "statsd" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultOTelConfig()
			tt.modify(cfg)

			providers, err := InitializeOTel(cfg, discardLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Empty(t, TraceIDFromContext(context.Background()))

	AddSpanEvent(ctx, "stage.done", map[string]interface{}{
		"records": 12,
		"stage":   "normalize",
		"ok":      true,
		"ratio":   0.5,
		"other":   time.Second,
	})
	RecordError(ctx, errors.New("boom"))
	assert.True(t, span.IsRecording())
}

func TestPipelineMetricsExport(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreatePipelineMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordStageMetrics(ctx, metrics, "normalize", 20*time.Millisecond, nil)
	RecordRunMetrics(ctx, metrics, time.Second, nil)
	RecordActiveRunChange(ctx, metrics, 1)
	metrics.RecordsNormalized.Add(ctx, 42)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	text := body.String()
	assert.Contains(t, text, "salespulse_records_normalized_total")
	assert.Contains(t, text, "salespulse_runs_total")
	assert.Contains(t, text, `stage="normalize"`)
	assert.Contains(t, text, "go_goroutines")
}

func TestMetricHelpersTolerateNil(t *testing.T) {
	ctx := context.Background()
	RecordStageMetrics(ctx, nil, "profile", time.Millisecond, errors.New("x"))
	RecordRunMetrics(ctx, nil, time.Millisecond, nil)
	RecordActiveRunChange(ctx, nil, -1)
}

func TestInitializeOTelLogs(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	providers, err := InitializeOTel(DefaultOTelConfig(), logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	assert.True(t, handler.ContainsMessage("Initializing OpenTelemetry"))
	assert.True(t, handler.ContainsAttr("service", ServiceName))
}
