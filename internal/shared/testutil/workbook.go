package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// XLSXMIME is the content type of xlsx uploads
const XLSXMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Date returns midnight UTC of the given day
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Workbook writes rows to Sheet1 of a new workbook and returns its bytes.
// nil cells are left empty.
func Workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		for j, v := range row {
			if v == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", ref, v))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// WorkbookPayload returns Workbook as a base64 data URI
func WorkbookPayload(t *testing.T, rows [][]any) string {
	t.Helper()
	return "data:" + XLSXMIME + ";base64," + base64.StdEncoding.EncodeToString(Workbook(t, rows))
}

// SampleRows is a three-row sheet spanning two months
func SampleRows() [][]any {
	return [][]any{
		{"sku", "dateColumn"},
		{"A", Date(2024, time.January, 15)},
		{"B", Date(2024, time.January, 20)},
		{"C", Date(2024, time.February, 1)},
	}
}

// ZipEntry is one file read back from an archive
type ZipEntry struct {
	Name string
	Data []byte
}

// ReadZip returns the entries of a zip archive in order
func ReadZip(t *testing.T, data []byte) []ZipEntry {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	entries := make([]ZipEntry, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		entries = append(entries, ZipEntry{Name: f.Name, Data: content})
	}
	return entries
}

// SheetRowCount returns the number of data rows (header excluded) in the
// first sheet of an xlsx workbook
func SheetRowCount(t *testing.T, data []byte) int {
	t.Helper()

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetList()[0])
	require.NoError(t, err)
	if len(rows) == 0 {
		return 0
	}
	return len(rows) - 1
}
