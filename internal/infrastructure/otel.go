package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"xlsxsplit/internal/config"
)

// InstrumentationName is the tracer and meter name used across the service
const InstrumentationName = "xlsxsplit"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers. Tracer and Meter are
// never nil; they are no-ops when the matching signal is disabled.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// NewOTelConfig maps the telemetry section of the application config
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	exporter := cfg.TraceExporter
	if exporter == "" {
		exporter = "stdout"
	}

	return &OTelConfig{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    env,
		TraceExporter:  exporter,
		EnableMetrics:  cfg.MetricsEnabled,
		EnableTracing:  cfg.TracingEnabled,
		SampleRatio:    cfg.SampleRate,
	}
}

// InitializeOTel sets up tracing and a Prometheus-backed meter provider
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = NewOTelConfig(config.Default().Telemetry)
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(InstrumentationName),
		Meter:  noop.NewMeterProvider().Meter(InstrumentationName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter

	switch cfg.TraceExporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics registers an OTel Prometheus exporter on a private
// registry together with the Go runtime and process collectors.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("failed to register go collector: %w", err)
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return fmt.Errorf("failed to register process collector: %w", err)
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Split metrics
	SplitsTotal       metric.Int64Counter
	SplitDuration     metric.Float64Histogram
	SplitErrors       metric.Int64Counter
	SplitActive       metric.Int64UpDownCounter
	SplitFilesWritten metric.Int64Counter
	SplitRowsGrouped  metric.Int64Counter
	SplitRowsSkipped  metric.Int64Counter
	SplitInputBytes   metric.Int64Histogram
	SplitArchiveBytes metric.Int64Histogram
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m    BusinessMetrics
		errs []error
	)
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	m.HTTPRequestsTotal, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	collect(err)
	m.HTTPRequestDuration, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"), metric.WithUnit("s"))
	collect(err)
	m.HTTPActiveRequests, err = meter.Int64UpDownCounter("http_active_requests",
		metric.WithDescription("Number of active HTTP requests"))
	collect(err)

	m.SplitsTotal, err = meter.Int64Counter("split_requests_total",
		metric.WithDescription("Total number of split invocations"))
	collect(err)
	m.SplitDuration, err = meter.Float64Histogram("split_duration_seconds",
		metric.WithDescription("Split duration in seconds"), metric.WithUnit("s"))
	collect(err)
	m.SplitErrors, err = meter.Int64Counter("split_errors_total",
		metric.WithDescription("Total number of failed splits by error kind"))
	collect(err)
	m.SplitActive, err = meter.Int64UpDownCounter("split_active",
		metric.WithDescription("Number of splits in progress"))
	collect(err)
	m.SplitFilesWritten, err = meter.Int64Counter("split_files_written_total",
		metric.WithDescription("Total number of monthly workbooks written"))
	collect(err)
	m.SplitRowsGrouped, err = meter.Int64Counter("split_rows_grouped_total",
		metric.WithDescription("Total number of rows placed in a monthly workbook"))
	collect(err)
	m.SplitRowsSkipped, err = meter.Int64Counter("split_rows_skipped_total",
		metric.WithDescription("Total number of rows dropped for a missing or invalid date"))
	collect(err)
	m.SplitInputBytes, err = meter.Int64Histogram("split_input_bytes",
		metric.WithDescription("Size of uploaded workbooks"), metric.WithUnit("By"))
	collect(err)
	m.SplitArchiveBytes, err = meter.Int64Histogram("split_archive_bytes",
		metric.WithDescription("Size of produced archives"), metric.WithUnit("By"))
	collect(err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &m, nil
}

// SplitRecord summarises one split for metrics
type SplitRecord struct {
	Source       string // "json", "upload", "websocket", "cli"
	InputBytes   int
	ArchiveBytes int
	Files        int
	RowsGrouped  int
	RowsSkipped  int
	Duration     time.Duration
	ErrorKind    string // empty on success
}

// RecordSplitMetrics records the outcome of one split
func RecordSplitMetrics(ctx context.Context, metrics *BusinessMetrics, rec SplitRecord) {
	if metrics == nil {
		return
	}

	status := "success"
	if rec.ErrorKind != "" {
		status = "failure"
	}
	source := attribute.String("source", rec.Source)
	attrs := metric.WithAttributes(source, attribute.String("status", status))

	metrics.SplitsTotal.Add(ctx, 1, attrs)
	metrics.SplitDuration.Record(ctx, rec.Duration.Seconds(), attrs)
	if rec.InputBytes > 0 {
		metrics.SplitInputBytes.Record(ctx, int64(rec.InputBytes), metric.WithAttributes(source))
	}

	if rec.ErrorKind != "" {
		metrics.SplitErrors.Add(ctx, 1, metric.WithAttributes(source, attribute.String("kind", rec.ErrorKind)))
		return
	}

	metrics.SplitFilesWritten.Add(ctx, int64(rec.Files), metric.WithAttributes(source))
	metrics.SplitRowsGrouped.Add(ctx, int64(rec.RowsGrouped), metric.WithAttributes(source))
	metrics.SplitRowsSkipped.Add(ctx, int64(rec.RowsSkipped), metric.WithAttributes(source))
	metrics.SplitArchiveBytes.Record(ctx, int64(rec.ArchiveBytes), metric.WithAttributes(source))
}

// RecordActiveSplitChange records changes in the number of running splits
func RecordActiveSplitChange(ctx context.Context, metrics *BusinessMetrics, delta int64, source string) {
	if metrics == nil {
		return
	}
	metrics.SplitActive.Add(ctx, delta, metric.WithAttributes(attribute.String("source", source)))
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %w", errors.Join(errs...))
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
