package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xlsxsplit/internal/shared/testutil"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

func newValidator(t *testing.T, maxBytes int64) *FileValidator {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewFileValidator(maxBytes, logger)
}

func TestFileValidator_ValidateSpreadsheet(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name          string
		path          func() string
		wantErr       bool
		errorContains string
	}{
		{
			name:    "xlsx file",
			path:    func() string { return writeFile(t, dir, "ok.xlsx", []byte("PK..")) },
			wantErr: false,
		},
		{
			name:    "upper case xls",
			path:    func() string { return writeFile(t, dir, "OLD.XLS", []byte("data")) },
			wantErr: false,
		},
		{
			name:          "missing file",
			path:          func() string { return filepath.Join(dir, "missing.xlsx") },
			wantErr:       true,
			errorContains: "does not exist",
		},
		{
			name:          "directory",
			path:          func() string { return t.TempDir() },
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name:          "csv",
			path:          func() string { return writeFile(t, dir, "data.csv", []byte("a,b")) },
			wantErr:       true,
			errorContains: "not an Excel file",
		},
		{
			name:          "excel lock file",
			path:          func() string { return writeFile(t, dir, "~$ok.xlsx", []byte("lock")) },
			wantErr:       true,
			errorContains: "temporary",
		},
		{
			name:          "empty",
			path:          func() string { return writeFile(t, dir, "empty.xlsx", nil) },
			wantErr:       true,
			errorContains: "is empty",
		},
		{
			name:          "over the limit",
			path:          func() string { return writeFile(t, dir, "big.xlsx", make([]byte, 65)) },
			wantErr:       true,
			errorContains: "byte limit",
		},
	}

	v := newValidator(t, 64)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSpreadsheet(tt.path())
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
		})
	}
}

func TestFileValidator_ExpandInputs(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.xlsx", []byte("x"))
	b := writeFile(t, dir, "b.xls", []byte("x"))
	writeFile(t, dir, "notes.txt", []byte("x"))
	writeFile(t, dir, "~$a.xlsx", []byte("x"))
	other := writeFile(t, t.TempDir(), "other.xlsx", []byte("x"))

	v := newValidator(t, 0)

	t.Run("directory", func(t *testing.T) {
		got, err := v.ExpandInputs([]string{dir})
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, got)
	})

	t.Run("glob", func(t *testing.T) {
		got, err := v.ExpandInputs([]string{filepath.Join(dir, "*.xls*")})
		require.NoError(t, err)
		assert.Equal(t, []string{a, b}, got)
	})

	t.Run("files keep argument order and drop duplicates", func(t *testing.T) {
		got, err := v.ExpandInputs([]string{other, a, other})
		require.NoError(t, err)
		assert.Equal(t, []string{other, a}, got)
	})

	t.Run("missing file is kept for validation", func(t *testing.T) {
		missing := filepath.Join(dir, "missing.xlsx")
		got, err := v.ExpandInputs([]string{missing})
		require.NoError(t, err)
		assert.Equal(t, []string{missing}, got)
		assert.Error(t, v.ValidateSpreadsheet(got[0]))
	})

	t.Run("nothing matches", func(t *testing.T) {
		_, err := v.ExpandInputs([]string{filepath.Join(dir, "*.ods")})
		assert.ErrorIs(t, err, ErrNoInputs)

		_, err = v.ExpandInputs(nil)
		assert.ErrorIs(t, err, ErrNoInputs)
	})
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := newValidator(t, 0)

	t.Run("creates nested directory", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, v.ValidateOutputDirectory(out))

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(out)
		require.NoError(t, err)
		assert.Empty(t, entries, "write probe must be removed")
	})

	t.Run("path is a file", func(t *testing.T) {
		file := writeFile(t, t.TempDir(), "file", []byte("x"))
		assert.Error(t, v.ValidateOutputDirectory(file))
	})
}
