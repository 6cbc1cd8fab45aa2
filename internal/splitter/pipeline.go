package splitter

import (
	"context"
	"io"
	"log/slog"
)

// Request is the input of one split
type Request struct {
	FilePayload string
	DateColumn  string
}

// Stats describes what a split read and wrote.
type Stats struct {
	Sheet        string
	InputBytes   int
	RowsRead     int
	RowsGrouped  int
	RowsSkipped  int
	Files        int
	ArchiveBytes int
}

// Archive is the raw output of SplitBytes.
type Archive struct {
	Data    []byte
	Entries []string
	Stats   Stats
}

// FileCount returns the number of workbooks in the archive
func (a *Archive) FileCount() int { return len(a.Entries) }

// Result is the output of Split.
type Result struct {
	ArchivePayload string
	FileCount      int
	Entries        []string
	Stats          Stats
}

// Pipeline runs splits. It is immutable after New and safe for concurrent use.
type Pipeline struct {
	prefix string
	logger *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPrefix sets the archive entry name prefix.
func WithPrefix(prefix string) Option {
	return func(p *Pipeline) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		prefix: DefaultPrefix,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(slog.String("component", "splitter"))
	return p
}

// Prefix returns the configured entry name prefix
func (p *Pipeline) Prefix() string { return p.prefix }

// Split decodes a data URI workbook, splits it by month and returns the
// archive as a data URI. The context is used for log correlation only.
func (p *Pipeline) Split(ctx context.Context, req Request, obs ...Observer) (*Result, error) {
	o := observers(obs)

	o.emit(ctx, Event{Stage: StageDecoding})
	payload, err := Decode(req.FilePayload)
	if err != nil {
		p.logger.DebugContext(ctx, "payload decode failed", slog.String("error", err.Error()))
		return nil, o.fail(ctx, err)
	}
	if !IsSpreadsheetMIME(payload.MIMEType) {
		p.logger.DebugContext(ctx, "unexpected payload content type",
			slog.String("mime_type", payload.MIMEType))
	}

	archive, err := p.split(ctx, payload.Data, req.DateColumn, o)
	if err != nil {
		return nil, err
	}

	return &Result{
		ArchivePayload: EncodePayload(MIMETypeZip, archive.Data),
		FileCount:      archive.FileCount(),
		Entries:        archive.Entries,
		Stats:          archive.Stats,
	}, nil
}

// SplitBytes runs the split on raw workbook bytes and returns raw zip bytes.
func (p *Pipeline) SplitBytes(ctx context.Context, data []byte, dateColumn string, obs ...Observer) (*Archive, error) {
	return p.split(ctx, data, dateColumn, observers(obs))
}

func (p *Pipeline) split(ctx context.Context, data []byte, dateColumn string, o observers) (*Archive, error) {
	o.emit(ctx, Event{Stage: StageParsing})
	table, err := Parse(data)
	if err != nil {
		return nil, o.fail(ctx, err)
	}

	o.emit(ctx, Event{Stage: StageGrouping})
	groups := Group(table.Rows, dateColumn)

	stats := Stats{
		Sheet:       table.Sheet,
		InputBytes:  len(data),
		RowsRead:    len(table.Rows),
		RowsGrouped: groups.Grouped(),
		RowsSkipped: groups.Skipped,
	}
	if groups.Skipped > 0 {
		p.logger.DebugContext(ctx, "rows without a valid date were skipped",
			slog.String("date_column", dateColumn),
			slog.Int("skipped", groups.Skipped),
			slog.Int("rows", stats.RowsRead))
	}

	buckets := groups.Buckets()
	entries := make([]Entry, 0, len(buckets))
	names := make([]string, 0, len(buckets))
	for i, b := range buckets {
		o.emit(ctx, Event{Stage: StageEncoding, Key: b.Key, Index: i + 1, Total: len(buckets)})
		content, err := Encode(b)
		if err != nil {
			return nil, o.fail(ctx, err)
		}
		name := EntryName(p.prefix, b.Key)
		entries = append(entries, Entry{Name: name, Data: content})
		names = append(names, name)
	}

	o.emit(ctx, Event{Stage: StageArchiving})
	zipped, err := BuildArchive(entries)
	if err != nil {
		return nil, o.fail(ctx, err)
	}
	stats.Files = len(names)
	stats.ArchiveBytes = len(zipped)

	o.emit(ctx, Event{Stage: StageDone})
	p.logger.DebugContext(ctx, "split completed",
		slog.String("sheet", stats.Sheet),
		slog.Int("files", len(names)),
		slog.Int("rows_grouped", stats.RowsGrouped),
		slog.Int("rows_skipped", stats.RowsSkipped))

	return &Archive{Data: zipped, Entries: names, Stats: stats}, nil
}
