package config

// Application constants
const (
	// Application Info
	AppName    = "xlsxsplit"
	AppVersion = "1.0.0"

	// Splitter defaults
	DefaultArchivePrefix = "correciones_SKU"
	DefaultDateColumn    = "dateColumn"

	// Upload limits
	DefaultMaxUploadBytes int64 = 32 << 20 // 32MB

	// Download naming
	ArchiveSuffix       = "-split.zip"
	FallbackArchiveName = "split-files.zip"

	// File Paths (relative to executable)
	DefaultLogsDir = "logs"
	DefaultLogFile = "logs/app.log"
)

// Accepted upload extensions
var AllowedExtensions = []string{".xlsx", ".xls"}
