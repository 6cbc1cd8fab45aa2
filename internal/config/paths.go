package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	exeDirOnce sync.Once
	exeDir     string
)

// ExecutableDir returns the directory of the running binary, or the working
// directory when it cannot be resolved.
func ExecutableDir() string {
	exeDirOnce.Do(func() {
		exe, err := os.Executable()
		if err == nil {
			exe, err = filepath.EvalSymlinks(exe)
		}
		if err != nil {
			exeDir, _ = os.Getwd()
			return
		}
		exeDir = filepath.Dir(exe)
	})
	return exeDir
}

// ResolvePath makes a relative path absolute against the executable directory.
func ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(ExecutableDir(), p)
}

// LogFilePath returns the absolute path of the log file.
func (l LoggingConfig) LogFilePath() string {
	return ResolvePath(l.FilePath)
}

// ArchiveFileName returns the download name of the archive split from
// filename: its base name without extension plus ArchiveSuffix.
func ArchiveFileName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == "/" {
		return FallbackArchiveName
	}
	return base + ArchiveSuffix
}
