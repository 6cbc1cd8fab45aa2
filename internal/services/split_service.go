package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"xlsxsplit/internal/infrastructure"
	"xlsxsplit/internal/splitter"
)

// Split sources, used as the "source" metric attribute
const (
	SourceJSON      = "json"
	SourceUpload    = "upload"
	SourceWebSocket = "websocket"
	SourceCLI       = "cli"
)

// SplitService runs the split pipeline with tracing, metrics and logging.
type SplitService struct {
	pipeline *splitter.Pipeline
	tracer   trace.Tracer
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// SplitServiceOption configures a SplitService
type SplitServiceOption func(*SplitService)

// WithTracer sets the tracer used for split spans.
func WithTracer(tracer trace.Tracer) SplitServiceOption {
	return func(s *SplitService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithMetrics sets the metrics the service records into.
func WithMetrics(metrics *infrastructure.BusinessMetrics) SplitServiceOption {
	return func(s *SplitService) {
		s.metrics = metrics
	}
}

// NewSplitService creates a new split service
func NewSplitService(pipeline *splitter.Pipeline, logger *slog.Logger, opts ...SplitServiceOption) *SplitService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = splitter.New(splitter.WithLogger(logger))
	}

	s := &SplitService{
		pipeline: pipeline,
		tracer:   tracenoop.NewTracerProvider().Tracer(infrastructure.InstrumentationName),
		logger:   logger.With(slog.String("service", "split")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Prefix returns the archive entry prefix of the underlying pipeline
func (s *SplitService) Prefix() string {
	return s.pipeline.Prefix()
}

// Split runs a data URI split.
func (s *SplitService) Split(ctx context.Context, source string, req splitter.Request, obs ...splitter.Observer) (*splitter.Result, error) {
	ctx, span := s.start(ctx, source, req.DateColumn)
	defer span.End()

	done := s.track(ctx, source)
	res, err := s.pipeline.Split(ctx, req, withSpanEvents(obs)...)
	if err != nil {
		s.finish(ctx, span, source, req.DateColumn, nil, err, done())
		return nil, err
	}

	s.finish(ctx, span, source, req.DateColumn, &res.Stats, nil, done())
	return res, nil
}

// SplitBytes runs a split on raw workbook bytes, as uploaded or read from disk.
func (s *SplitService) SplitBytes(ctx context.Context, source, filename string, data []byte, dateColumn string, obs ...splitter.Observer) (*splitter.Archive, error) {
	ctx, span := s.start(ctx, source, dateColumn)
	defer span.End()
	if filename != "" {
		span.SetAttributes(attribute.String("split.filename", filename))
	}

	done := s.track(ctx, source)
	archive, err := s.pipeline.SplitBytes(ctx, data, dateColumn, withSpanEvents(obs)...)
	if err != nil {
		s.finish(ctx, span, source, dateColumn, nil, err, done())
		return nil, err
	}

	s.finish(ctx, span, source, dateColumn, &archive.Stats, nil, done())
	return archive, nil
}

func (s *SplitService) start(ctx context.Context, source, dateColumn string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "split",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("split.source", source),
			attribute.String("split.date_column", dateColumn),
		),
	)
}

// withSpanEvents appends an observer that records every stage on the
// active span. obs is not modified.
func withSpanEvents(obs []splitter.Observer) []splitter.Observer {
	out := make([]splitter.Observer, 0, len(obs)+1)
	out = append(out, obs...)
	return append(out, stageSpanEvent)
}

func stageSpanEvent(ctx context.Context, ev splitter.Event) {
	attrs := []attribute.KeyValue{attribute.String("split.stage", string(ev.Stage))}
	if ev.Key != "" {
		attrs = append(attrs,
			attribute.String("split.month", string(ev.Key)),
			attribute.Int("split.index", ev.Index),
			attribute.Int("split.total", ev.Total))
	}
	if ev.Kind != "" {
		attrs = append(attrs, attribute.String("split.error_kind", string(ev.Kind)))
	}
	infrastructure.AddSpanEvent(ctx, "stage."+string(ev.Stage), attrs...)
}

// track marks a split as active and returns a func that ends it and
// reports the elapsed time.
func (s *SplitService) track(ctx context.Context, source string) func() time.Duration {
	start := time.Now()
	infrastructure.RecordActiveSplitChange(ctx, s.metrics, 1, source)
	return func() time.Duration {
		infrastructure.RecordActiveSplitChange(ctx, s.metrics, -1, source)
		return time.Since(start)
	}
}

func (s *SplitService) finish(ctx context.Context, span trace.Span, source, dateColumn string, stats *splitter.Stats, err error, elapsed time.Duration) {
	rec := infrastructure.SplitRecord{Source: source, Duration: elapsed}

	if err != nil {
		kind := string(splitter.KindOf(err))
		if kind == "" {
			kind = "unknown"
		}
		rec.ErrorKind = kind
		infrastructure.RecordSplitMetrics(ctx, s.metrics, rec)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("split.error_kind", kind))

		level := slog.LevelError
		if kind == string(splitter.KindDecode) || kind == string(splitter.KindParse) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "split failed",
			slog.String("source", source),
			slog.String("date_column", dateColumn),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
		return
	}

	rec.InputBytes = stats.InputBytes
	rec.ArchiveBytes = stats.ArchiveBytes
	rec.Files = stats.Files
	rec.RowsGrouped = stats.RowsGrouped
	rec.RowsSkipped = stats.RowsSkipped
	infrastructure.RecordSplitMetrics(ctx, s.metrics, rec)

	span.SetAttributes(
		attribute.String("split.sheet", stats.Sheet),
		attribute.Int("split.rows_read", stats.RowsRead),
		attribute.Int("split.rows_skipped", stats.RowsSkipped),
		attribute.Int("split.files", rec.Files),
	)

	s.logger.InfoContext(ctx, "split completed",
		slog.String("source", source),
		slog.String("date_column", dateColumn),
		slog.String("sheet", stats.Sheet),
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_grouped", stats.RowsGrouped),
		slog.Int("rows_skipped", stats.RowsSkipped),
		slog.Int("files", rec.Files),
		slog.Int("archive_bytes", stats.ArchiveBytes),
		slog.Duration("duration", elapsed))
}
