package dataset

// Source is anything that exposes named text fields, such as a parsed
// invoice digest record.
type Source interface {
	Get(name string) (string, bool)
}

// Table is an ordered set of rows over a fixed column list. Cells hold nil,
// string, time.Time or decimal.Decimal.
type Table struct {
	Columns []Column
	Rows    [][]any
}

func NewTable(columns []Column) *Table {
	return &Table{Columns: append([]Column(nil), columns...)}
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the first column with the given name.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Value returns the cell at row for the named column, nil if the column is unknown.
func (t *Table) Value(row int, name string) any {
	i := t.ColumnIndex(name)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][i]
}

// AppendRow adds one row of raw values keyed by column name. Values are
// coerced to the column kinds; missing names become nil.
func (t *Table) AppendRow(values map[string]any) {
	row := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		if v, ok := values[c.Name]; ok {
			row[i] = Coerce(c.Kind, v)
		}
	}
	t.Rows = append(t.Rows, row)
}

// AppendSource adds one row read from src, with extra overriding or adding fields.
func (t *Table) AppendSource(src Source, extra map[string]any) {
	row := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		if v, ok := extra[c.Name]; ok {
			row[i] = Coerce(c.Kind, v)
			continue
		}
		if v, ok := src.Get(c.Name); ok {
			row[i] = Coerce(c.Kind, v)
		}
	}
	t.Rows = append(t.Rows, row)
}

// Append adds every row of other after the rows of t, matching columns by name.
func (t *Table) Append(other *Table) {
	projected := Project(other, t.Columns)
	t.Rows = append(t.Rows, projected.Rows...)
}

// Project maps src onto columns by name. Columns missing from src are nil,
// columns not listed are dropped, and every cell is coerced to its new kind.
func Project(src *Table, columns []Column) *Table {
	out := NewTable(columns)
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = src.ColumnIndex(c.Name)
	}

	out.Rows = make([][]any, 0, len(src.Rows))
	for _, in := range src.Rows {
		row := make([]any, len(columns))
		for i, c := range columns {
			if j := idx[i]; j >= 0 && j < len(in) {
				row[i] = Coerce(c.Kind, in[j])
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}
