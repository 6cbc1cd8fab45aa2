package splitter

import (
	"time"

	"github.com/xuri/excelize/v2"
)

// SheetName is the name of the single sheet in every produced workbook.
const SheetName = "Sheet1"

// Encode writes a bucket to a new xlsx workbook. The header row is the union
// of the bucket's columns in order of first appearance.
func Encode(b Bucket) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	columns := unionColumns(b.Rows)
	pos := make(map[string]int, len(columns))
	header := make([]any, len(columns))
	for i, c := range columns {
		pos[c] = i + 1
		header[i] = c
	}

	if len(header) > 0 {
		if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
			return nil, encodeError(b.Key, err, "failed to write header")
		}
	}

	styles := &serialStyles{}
	for i, row := range b.Rows {
		for _, c := range row.Cells {
			if c.Value == nil {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(pos[c.Column], i+2)
			if err != nil {
				return nil, encodeError(b.Key, err, "invalid cell coordinates")
			}
			if t, ok := c.Value.(time.Time); ok {
				if serial, ok := earlySerial(t); ok {
					if err := styles.setSerial(f, ref, serial); err != nil {
						return nil, encodeError(b.Key, err, "failed to write cell %s", ref)
					}
					continue
				}
			}
			if err := f.SetCellValue(SheetName, ref, cellValue(c.Value)); err != nil {
				return nil, encodeError(b.Key, err, "failed to write cell %s", ref)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, encodeError(b.Key, err, "failed to serialise workbook")
	}
	return buf.Bytes(), nil
}

func unionColumns(rows []Row) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, c := range row.Cells {
			if !seen[c.Column] {
				seen[c.Column] = true
				cols = append(cols, c.Column)
			}
		}
	}
	return cols
}

// excelEpoch is serial 0 of the 1900 date system, as ExcelDateToTime reads it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// firstNativeTime is the earliest time SetCellValue stores as a number;
// earlier values would be written as RFC 3339 text.
var firstNativeTime = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// earlySerial returns the serial of a time that SetCellValue cannot store,
// such as the 1899-12-30 date of a time-only cell.
func earlySerial(t time.Time) (float64, bool) {
	t = t.UTC()
	if !t.Before(firstNativeTime) || t.Before(excelEpoch) {
		return 0, false
	}
	return t.Sub(excelEpoch).Hours() / 24, true
}

// serialStyles creates the time (h:mm:ss) and date-time styles of a
// workbook on first use.
type serialStyles struct {
	timeOnly, dateTime int
}

func (s *serialStyles) setSerial(f *excelize.File, ref string, serial float64) error {
	id := &s.dateTime
	numFmt := 22
	if serial < 1 {
		id, numFmt = &s.timeOnly, 21
	}
	if *id == 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: numFmt})
		if err != nil {
			return err
		}
		*id = style
	}

	if err := f.SetCellFloat(SheetName, ref, serial, -1, 64); err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, ref, ref, *id)
}

// Times are written in UTC so the stored serial matches the parsed value.
func cellValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

func encodeError(key GroupKey, cause error, format string, args ...any) *Error {
	e := newError(KindEncode, StageEncoding, cause, format, args...)
	e.Message = string(key) + ": " + e.Message
	return e
}
