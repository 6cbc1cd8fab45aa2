package api

// SplitResponse is returned by POST /api/split. ArchivePayload is a data URI
// with MIME type application/zip.
type SplitResponse struct {
	ArchivePayload string     `json:"archivePayload"`
	FileCount      int        `json:"fileCount"`
	Entries        []string   `json:"entries,omitempty"`
	Stats          SplitStats `json:"stats"`
}

// SplitStats reports what one split read and wrote. RowsSkipped counts rows
// dropped for a missing or invalid date.
type SplitStats struct {
	Sheet        string `json:"sheet"`
	RowsRead     int    `json:"rowsRead"`
	RowsGrouped  int    `json:"rowsGrouped"`
	RowsSkipped  int    `json:"rowsSkipped"`
	ArchiveBytes int    `json:"archiveBytes"`
}

// Response headers of the upload endpoint
const (
	HeaderFileCount = "X-File-Count"
	HeaderRowsRead  = "X-Rows-Read"
)
