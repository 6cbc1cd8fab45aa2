package splitter

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Column names given to header cells that are blank over data.
const emptyColumnName = "__EMPTY"

// isoDateLayouts are the forms used by typed date cells (t="d").
var isoDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102T150405Z",
	"20060102T150405.999",
}

// Parse reads the first worksheet of an xlsx workbook into a Table.
// The first non-blank row is the header; every later non-blank row becomes
// one Row in sheet order.
func Parse(data []byte) (*Table, error) {
	if len(data) == 0 {
		return nil, newError(KindParse, StageParsing, nil, "workbook is empty")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, newError(KindParse, StageParsing, err, "input is not a readable xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newError(KindParse, StageParsing, nil, "workbook has no sheets")
	}
	sheet := sheets[0]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, newError(KindParse, StageParsing, err, "failed to read sheet %q", sheet)
	}

	r := &sheetReader{
		f:          f,
		sheet:      sheet,
		dateStyles: make(map[int]bool),
	}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}

	return r.table(raw)
}

type sheetReader struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func (r *sheetReader) table(raw [][]string) (*Table, error) {
	t := &Table{Sheet: r.sheet}

	headerIdx := -1
	for i, cells := range raw {
		if !isBlank(cells) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return t, nil
	}

	names := headerNames(raw[headerIdx], raw[headerIdx+1:])
	for _, n := range names {
		if n != "" {
			t.Columns = append(t.Columns, n)
		}
	}

	for i := headerIdx + 1; i < len(raw); i++ {
		cells := raw[i]
		if isBlank(cells) {
			continue
		}

		row := Row{Cells: make([]Cell, 0, len(cells))}
		for j, v := range cells {
			if v == "" || j >= len(names) || names[j] == "" {
				continue
			}
			val, err := r.value(i+1, j+1, v)
			if err != nil {
				return nil, err
			}
			row.Cells = append(row.Cells, Cell{Column: names[j], Value: val})
		}
		if row.Len() > 0 {
			t.Rows = append(t.Rows, row)
		}
	}

	return t, nil
}

// value materialises one non-empty cell from its type and number format.
func (r *sheetReader) value(row, col int, raw string) (any, error) {
	ref, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, newError(KindParse, StageParsing, err, "invalid cell coordinates")
	}

	typ, err := r.f.GetCellType(r.sheet, ref)
	if err != nil {
		return nil, newError(KindParse, StageParsing, err, "failed to read cell %s", ref)
	}

	switch typ {
	case excelize.CellTypeBool:
		if b, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil {
			return b, nil
		}
		return raw, nil

	case excelize.CellTypeDate:
		if t, ok := parseISODate(raw); ok {
			return t, nil
		}
		return raw, nil

	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return raw, nil
		}
		if r.isDateCell(ref) {
			if t, err := excelize.ExcelDateToTime(n, r.date1904); err == nil {
				return t.UTC(), nil
			}
		}
		return n, nil

	default:
		return raw, nil
	}
}

func (r *sheetReader) isDateCell(ref string) bool {
	idx, err := r.f.GetCellStyle(r.sheet, ref)
	if err != nil || idx <= 0 {
		return false
	}
	if v, ok := r.dateStyles[idx]; ok {
		return v
	}

	style, err := r.f.GetStyle(idx)
	isDate := err == nil && style != nil &&
		(isBuiltinDateFormat(style.NumFmt) || (style.CustomNumFmt != nil && isDateFormatCode(*style.CustomNumFmt)))
	r.dateStyles[idx] = isDate
	return isDate
}

// headerNames resolves the name of every column index. Header text is kept
// as written, surrounding spaces included. Blank header cells
// over columns that hold data become __EMPTY, __EMPTY_1, ...; repeated
// names get _1, _2 suffixes; columns with neither stay "".
func headerNames(header []string, data [][]string) []string {
	width := len(header)
	for _, cells := range data {
		width = max(width, len(cells))
	}

	hasData := make([]bool, width)
	for _, cells := range data {
		for j, v := range cells {
			if v != "" {
				hasData[j] = true
			}
		}
	}

	names := make([]string, width)
	used := make(map[string]bool, width)
	for j := 0; j < width; j++ {
		base := ""
		if j < len(header) && strings.TrimSpace(header[j]) != "" {
			base = header[j]
		}
		if base == "" {
			if !hasData[j] {
				continue
			}
			base = emptyColumnName
		}

		name := base
		for k := 1; used[name]; k++ {
			name = base + "_" + strconv.Itoa(k)
		}
		used[name] = true
		names[j] = name
	}
	return names
}

func parseISODate(s string) (time.Time, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	for _, layout := range isoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
