package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"xlsxsplit/internal/config"
	"xlsxsplit/internal/infrastructure"
	"xlsxsplit/internal/services"
	"xlsxsplit/internal/splitter"
	"xlsxsplit/internal/validation"
	"xlsxsplit/pkg/contracts"
)

const usage = `usage: splitter [flags] file.xlsx [dir | pattern ...]

Splits each workbook by the month of the date column and writes
<name>-split.zip next to the other outputs.

`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "splitter:", err)
		}
		os.Exit(1)
	}
}

// fileResult is the outcome of one input file
type fileResult struct {
	input  string
	output string
	files  int
	rows   int
	err    error
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = config.Default()
	}

	fs := flag.NewFlagSet("splitter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	column := fs.String("column", cfg.Splitter.DefaultDateColumn, "header of the date column")
	out := fs.String("out", ".", "output directory")
	prefix := fs.String("prefix", cfg.Splitter.ArchivePrefix, "file name prefix inside the archive")
	jobs := fs.Int("jobs", runtime.NumCPU(), "files split concurrently")
	level := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	version := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *version {
		fmt.Fprintln(stdout, "splitter", contracts.GetFullVersionString())
		return nil
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no input files")
	}
	if *jobs < 1 {
		*jobs = 1
	}

	logCfg := cfg.Logging
	logCfg.Level = *level
	logger := infrastructure.WithComponent(infrastructure.NewLogger(logCfg, stderr), "splitter_cli")
	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults", slog.String("error", cfgErr.Error()))
	}

	validator := validation.NewFileValidator(cfg.Server.MaxUploadBytes, logger)
	inputs, err := validator.ExpandInputs(fs.Args())
	if err != nil {
		return err
	}
	if err := validator.ValidateOutputDirectory(*out); err != nil {
		return err
	}
	if err := checkOutputNames(inputs); err != nil {
		return err
	}

	pipeline := splitter.New(splitter.WithPrefix(*prefix), splitter.WithLogger(logger))
	svc := services.NewSplitService(pipeline, logger)

	logger.Info("Starting split",
		slog.Int("files", len(inputs)),
		slog.String("column", *column),
		slog.String("out", *out),
		slog.Int("jobs", *jobs))

	// One failed file does not stop the others
	results := make([]fileResult, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*jobs)
	for i, input := range inputs {
		g.Go(func() error {
			fctx := infrastructure.EnsureTraceID(gctx)
			res := splitFile(fctx, svc, validator, input, *out, *column)
			if res.err != nil {
				infrastructure.WithError(logger, res.err).ErrorContext(fctx, "File failed", slog.String("file", input))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.err != nil {
			fmt.Fprintf(stdout, "FAIL %s: %v\n", res.input, res.err)
			errs = append(errs, fmt.Errorf("%s: %w", res.input, res.err))
			continue
		}
		fmt.Fprintf(stdout, "ok   %s -> %s (%d files, %d rows)\n", res.input, res.output, res.files, res.rows)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(errs), len(inputs), errors.Join(errs...))
	}
	return nil
}

func splitFile(ctx context.Context, svc *services.SplitService, validator *validation.FileValidator, input, outDir, column string) fileResult {
	res := fileResult{input: input}
	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}
	if err := validator.ValidateSpreadsheet(input); err != nil {
		res.err = err
		return res
	}

	data, err := os.ReadFile(input)
	if err != nil {
		res.err = fmt.Errorf("failed to read input: %w", err)
		return res
	}

	archive, err := svc.SplitBytes(ctx, services.SourceCLI, filepath.Base(input), data, column)
	if err != nil {
		res.err = err
		return res
	}

	res.output = filepath.Join(outDir, config.ArchiveFileName(input))
	if err := writeFileAtomic(res.output, archive.Data); err != nil {
		res.err = err
		return res
	}
	res.files = archive.FileCount()
	res.rows = archive.Stats.RowsGrouped
	return res
}

// checkOutputNames rejects inputs that would write the same archive
func checkOutputNames(inputs []string) error {
	seen := make(map[string]string, len(inputs))
	for _, input := range inputs {
		name := config.ArchiveFileName(input)
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("%s and %s would both write %s", prev, input, name)
		}
		seen[name] = input
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".split-*.zip")
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}
