package table

import (
	"fmt"
	"strings"
)

// Table is an immutable, column-ordered snapshot of tabular data.
// Column lookup is case-insensitive; short rows read as empty cells.
type Table struct {
	name    string
	columns []string
	index   map[string]int
	rows    [][]string
}

// New creates a table. The rows slice is owned by the table afterwards.
func New(name string, columns []string, rows [][]string) *Table {
	cols := make([]string, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		c = strings.TrimSpace(c)
		cols[i] = c
		key := strings.ToLower(c)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	if rows == nil {
		rows = [][]string{}
	}
	return &Table{name: name, columns: cols, index: index, rows: rows}
}

// Name returns the table name used in error messages.
func (t *Table) Name() string { return t.name }

// Renamed returns the same data under another name.
func (t *Table) Renamed(name string) *Table {
	return &Table{name: name, columns: t.columns, index: t.index, rows: t.rows}
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Index returns the position of a column.
func (t *Table) Index(column string) (int, bool) {
	i, ok := t.index[strings.ToLower(strings.TrimSpace(column))]
	return i, ok
}

// Has reports whether a column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.Index(column)
	return ok
}

// Find returns the first of the candidate columns present in the table.
func (t *Table) Find(candidates ...string) (int, string, bool) {
	for _, c := range candidates {
		if i, ok := t.Index(c); ok {
			return i, t.columns[i], true
		}
	}
	return -1, "", false
}

// Cell returns the trimmed value at (row, col), or "" when out of range.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.rows) || col < 0 {
		return ""
	}
	r := t.rows[row]
	if col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Value returns the cell of a named column, or "" when the column is absent.
func (t *Table) Value(row int, column string) string {
	col, ok := t.Index(column)
	if !ok {
		return ""
	}
	return t.Cell(row, col)
}

// Row returns a copy of a row padded to the column count.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.columns))
	if i < 0 || i >= len(t.rows) {
		return out
	}
	copy(out, t.rows[i])
	return out
}

// Record returns a row as a column -> value map.
func (t *Table) Record(i int) map[string]string {
	rec := make(map[string]string, len(t.columns))
	for c, name := range t.columns {
		if _, dup := rec[name]; dup {
			continue
		}
		rec[name] = t.Cell(i, c)
	}
	return rec
}

// WithColumn returns a new table with one column appended. values must
// have one entry per row.
func (t *Table) WithColumn(name string, values []string) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.rows))
	}
	cols := append(t.Columns(), name)
	rows := make([][]string, len(t.rows))
	for i := range t.rows {
		row := t.Row(i)
		rows[i] = append(row, values[i])
	}
	return New(t.name, cols, rows), nil
}

// Select returns a new table holding the given rows in the given order.
func (t *Table) Select(rows []int) *Table {
	out := make([][]string, 0, len(rows))
	for _, i := range rows {
		out = append(out, t.Row(i))
	}
	return New(t.name, t.Columns(), out)
}

// Project returns a new table restricted to the named columns that exist,
// in the order given.
func (t *Table) Project(columns ...string) *Table {
	var idx []int
	var names []string
	for _, c := range columns {
		if i, ok := t.Index(c); ok {
			idx = append(idx, i)
			names = append(names, t.columns[i])
		}
	}
	rows := make([][]string, len(t.rows))
	for r := range t.rows {
		row := make([]string, len(idx))
		for j, c := range idx {
			row[j] = t.Cell(r, c)
		}
		rows[r] = row
	}
	return New(t.name, names, rows)
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > len(t.rows) {
		n = len(t.rows)
	}
	if n < 0 {
		n = 0
	}
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return t.Select(rows)
}

// Empty returns a table with the same columns and no rows.
func (t *Table) Empty() *Table {
	return New(t.name, t.Columns(), nil)
}

// RequireColumns returns an InputShapeError for the first missing column.
func (t *Table) RequireColumns(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return &InputShapeError{Table: t.name, Column: c}
		}
	}
	return nil
}
