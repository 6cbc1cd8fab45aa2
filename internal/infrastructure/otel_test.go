package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"xlsxsplit/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOTelConfig() *OTelConfig {
	cfg := NewOTelConfig(config.Default().Telemetry)
	cfg.EnableTracing = true
	cfg.TraceExporter = "none"
	return cfg
}

// TestOTelInitialization tests OpenTelemetry initialization
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	// Default config: tracing off, metrics on
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitialization_Disabled(t *testing.T) {
	cfg := testOTelConfig()
	cfg.EnableTracing = false
	cfg.EnableMetrics = false

	providers, err := InitializeOTel(cfg, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)

	// no-op meter still yields usable instruments
	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	RecordSplitMetrics(context.Background(), metrics, SplitRecord{Source: "json", Files: 1})
}

func TestOTelInitialization_UnsupportedExporter(t *testing.T) {
	cfg := testOTelConfig()
	cfg.TraceExporter = "zipkin"

	_, err := InitializeOTel(cfg, quietLogger())
	assert.Error(t, err)
}

func TestNewOTelConfig(t *testing.T) {
	cfg := NewOTelConfig(config.TelemetryConfig{
		ServiceName:    "svc",
		TracingEnabled: true,
		MetricsEnabled: false,
		SampleRate:     0.5,
	})
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.True(t, cfg.EnableTracing)
	assert.False(t, cfg.EnableMetrics)
	assert.Equal(t, 0.5, cfg.SampleRatio)
}

// TestSplitMetricsExport records a split and reads it back from /metrics
func TestSplitMetricsExport(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordActiveSplitChange(ctx, metrics, 1, "upload")
	RecordSplitMetrics(ctx, metrics, SplitRecord{
		Source:       "upload",
		InputBytes:   2048,
		ArchiveBytes: 1024,
		Files:        3,
		RowsGrouped:  40,
		RowsSkipped:  2,
		Duration:     150 * time.Millisecond,
	})
	RecordSplitMetrics(ctx, metrics, SplitRecord{Source: "json", ErrorKind: "decode"})
	RecordActiveSplitChange(ctx, metrics, -1, "upload")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "split_requests_total")
	assert.Contains(t, body, "split_files_written_total")
	assert.Contains(t, body, "split_rows_skipped_total")
	assert.Contains(t, body, `kind="decode"`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRecordSplitMetrics_NilMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordSplitMetrics(context.Background(), nil, SplitRecord{})
		RecordActiveSplitChange(context.Background(), nil, 1, "cli")
	})
}

func TestSpanHelpers(t *testing.T) {
	providers, err := InitializeOTel(testOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	// No recording span: helpers are no-ops
	assert.NotPanics(t, func() {
		RecordError(context.Background(), io.EOF)
		AddSpanEvent(context.Background(), "noop")
	})

	ctx, span := providers.Tracer.Start(context.Background(), "split")
	defer span.End()
	assert.Equal(t, trace.SpanFromContext(ctx), span)
	assert.NotPanics(t, func() {
		AddSpanEvent(ctx, "stage")
		RecordError(ctx, io.EOF)
	})
}
