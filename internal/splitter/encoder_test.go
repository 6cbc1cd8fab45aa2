package splitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestEncode_RoundTrip(t *testing.T) {
	bucket := Bucket{
		Key: "2024-01",
		Rows: []Row{
			NewRow(
				Cell{Column: "sku", Value: "A-1"},
				Cell{Column: "qty", Value: 12.0},
				Cell{Column: "active", Value: true},
				Cell{Column: "date", Value: day(2024, time.January, 15)},
			),
			NewRow(
				Cell{Column: "sku", Value: "B-7"},
				Cell{Column: "date", Value: time.Date(2024, time.January, 20, 8, 15, 0, 0, time.UTC)},
				Cell{Column: "price", Value: -3.25},
				Cell{Column: "active", Value: false},
			),
		},
	}

	data, err := Encode(bucket)
	require.NoError(t, err)

	table, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, SheetName, table.Sheet)
	assert.Equal(t, []string{"sku", "qty", "active", "date", "price"}, table.Columns)
	require.Len(t, table.Rows, len(bucket.Rows))
	for i := range bucket.Rows {
		assert.Equal(t, rowMap(bucket.Rows[i]), rowMap(table.Rows[i]), "row %d", i)
	}
}

func TestEncode_SingleSheet(t *testing.T) {
	data, err := Encode(Bucket{Key: "2024-02", Rows: []Row{dated("x", day(2024, time.February, 1))}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "date"}, rows[0])
}

func TestEncode_NilValuesLeftEmpty(t *testing.T) {
	bucket := Bucket{Key: "2024-03", Rows: []Row{
		NewRow(Cell{Column: "a", Value: nil}, Cell{Column: "date", Value: day(2024, time.March, 1)}),
	}}

	data, err := Encode(bucket)
	require.NoError(t, err)

	table, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	_, ok := table.Rows[0].Get("a")
	assert.False(t, ok)
}

func TestUnionColumns(t *testing.T) {
	rows := []Row{
		NewRow(Cell{Column: "b"}, Cell{Column: "a"}),
		NewRow(Cell{Column: "c"}, Cell{Column: "a"}),
		NewRow(Cell{Column: "d"}, Cell{Column: "b"}),
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, unionColumns(rows))
	assert.Empty(t, unionColumns(nil))
}

func TestEncode_TimeOnlyCellsStayNumeric(t *testing.T) {
	in := excelize.NewFile()
	defer in.Close()
	hhmm, err := in.NewStyle(&excelize.Style{NumFmt: 20})
	require.NoError(t, err)
	require.NoError(t, in.SetSheetRow("Sheet1", "A1", &[]any{"fecha", "hora"}))
	require.NoError(t, in.SetCellValue("Sheet1", "A2", day(2024, time.May, 3)))
	require.NoError(t, in.SetCellFloat("Sheet1", "B2", 0.5, -1, 64))
	require.NoError(t, in.SetCellStyle("Sheet1", "B2", "B2", hhmm))
	buf, err := in.WriteToBuffer()
	require.NoError(t, err)

	table, err := Parse(buf.Bytes())
	require.NoError(t, err)
	groups := Group(table.Rows, "fecha")
	require.Equal(t, 1, groups.Len())

	data, err := Encode(groups.Buckets()[0])
	require.NoError(t, err)

	reparsed, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, reparsed.Rows, 1)
	hora, ok := reparsed.Rows[0].Get("hora")
	require.True(t, ok)
	require.IsType(t, time.Time{}, hora)
	assert.WithinDuration(t, time.Date(1899, time.December, 30, 12, 0, 0, 0, time.UTC), hora.(time.Time), time.Second)

	out, err := excelize.OpenReader(bytesReader(data))
	require.NoError(t, err)
	defer out.Close()

	typ, err := out.GetCellType(SheetName, "B2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ)
	assert.NotEqual(t, excelize.CellTypeInlineString, typ)

	styleID, err := out.GetCellStyle(SheetName, "B2")
	require.NoError(t, err)
	style, err := out.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, 21, style.NumFmt)
}

func TestEncode_EarlyDateTimes(t *testing.T) {
	tests := []struct {
		name       string
		value      time.Time
		wantSerial float64
		wantOK     bool
	}{
		{"time only", time.Date(1899, time.December, 30, 8, 15, 0, 0, time.UTC), 0.34375, true},
		{"day before 1900", time.Date(1899, time.December, 31, 12, 0, 0, 0, time.UTC), 1.5, true},
		{"first native day", day(1900, time.January, 1), 0, false},
		{"before the epoch", day(1899, time.December, 29), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serial, ok := earlySerial(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.wantSerial, serial, 1e-9)
		})
	}

	bucket := Bucket{Key: "2024-06", Rows: []Row{NewRow(
		Cell{Column: "date", Value: day(2024, time.June, 1)},
		Cell{Column: "start", Value: time.Date(1899, time.December, 30, 8, 15, 0, 0, time.UTC)},
		Cell{Column: "stamp", Value: time.Date(1899, time.December, 31, 12, 0, 0, 0, time.UTC)},
	)}}
	data, err := Encode(bucket)
	require.NoError(t, err)

	table, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	for _, col := range []string{"start", "stamp"} {
		want, _ := bucket.Rows[0].Get(col)
		got, ok := table.Rows[0].Get(col)
		require.True(t, ok, col)
		require.IsType(t, time.Time{}, got, col)
		assert.WithinDuration(t, want.(time.Time), got.(time.Time), time.Second, col)
	}
}
