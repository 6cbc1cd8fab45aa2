package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xlsxsplit/internal/config"
)

// ErrNoInputs is returned when no spreadsheet matches the given inputs.
var ErrNoInputs = errors.New("no spreadsheet files to split")

// FileValidator checks local files before the CLI splits them
type FileValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewFileValidator creates a new file validator. Files larger than
// maxBytes are rejected; zero selects config.DefaultMaxUploadBytes.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxUploadBytes
	}
	return &FileValidator{
		maxBytes: maxBytes,
		logger:   logger.With(slog.String("component", "file_validator")),
	}
}

// ExpandInputs resolves CLI arguments to spreadsheet paths. An argument
// may name a file, a directory (its spreadsheets, not recursive) or a glob
// pattern. Duplicates are dropped; order follows the arguments.
func (v *FileValidator) ExpandInputs(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		clean := filepath.Clean(p)
		if !seen[clean] {
			seen[clean] = true
			paths = append(paths, clean)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			found, err := v.spreadsheetsIn(arg)
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
		case err == nil:
			add(arg)
		case os.IsNotExist(err) && strings.ContainsAny(arg, "*?["):
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
			}
			sort.Strings(matches)
			for _, m := range matches {
				if isSpreadsheet(m) && !isTempFile(m) {
					add(m)
				}
			}
		default:
			// Reported by ValidateSpreadsheet
			add(arg)
		}
	}

	if len(paths) == 0 {
		return nil, ErrNoInputs
	}
	v.logger.Debug("inputs resolved", slog.Int("files", len(paths)))
	return paths, nil
}

// spreadsheetsIn lists the spreadsheets of one directory in name order
func (v *FileValidator) spreadsheetsIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		v.logger.Error("failed to read input directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() || !isSpreadsheet(e.Name()) || isTempFile(e.Name()) {
			continue
		}
		found = append(found, filepath.Join(dir, e.Name()))
	}
	if len(found) == 0 {
		v.logger.Warn("no spreadsheets found in directory", slog.String("directory", dir))
	}
	return found, nil
}

// ValidateSpreadsheet checks that path is a readable spreadsheet within
// the size limit.
func (v *FileValidator) ValidateSpreadsheet(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	if !isSpreadsheet(path) {
		return fmt.Errorf("file %s is not an Excel file (extension: %s)", path, filepath.Ext(path))
	}
	if isTempFile(path) {
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}
	if info.Size() > v.maxBytes {
		return fmt.Errorf("file %s is %d bytes, above the %d byte limit", path, info.Size(), v.maxBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures output directory exists and is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	return nil
}

func isSpreadsheet(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range config.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// isTempFile matches the lock files Excel leaves next to open workbooks
func isTempFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}
