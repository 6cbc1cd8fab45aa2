package splitter

// Cell is one named value of a row.
// Value is nil, string, float64, bool or time.Time.
type Cell struct {
	Column string
	Value  any
}

// Row is an ordered record keyed by column name.
// Cells that are empty in the source are not present.
type Row struct {
	Cells []Cell
}

// NewRow builds a row from cells in the given order.
func NewRow(cells ...Cell) Row {
	return Row{Cells: cells}
}

// Get returns the value stored under column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r.Cells {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Columns returns the column names present in the row, in order.
func (r Row) Columns() []string {
	cols := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		cols[i] = c.Column
	}
	return cols
}

// Len returns the number of present cells
func (r Row) Len() int { return len(r.Cells) }

// Table is the parsed content of one worksheet.
type Table struct {
	Sheet   string
	Columns []string
	Rows    []Row
}
