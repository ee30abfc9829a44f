// Package dataset reads the small sample tables shown next to each model.
package dataset

import (
	"strings"

	"github.com/spf13/cast"
)

// Table is a header plus string cells. A nil *Table behaves as the empty
// table.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// NewTable builds a table; fully blank rows are dropped. When a column name
// repeats, lookups by name resolve to its first occurrence.
func NewTable(columns []string, rows [][]string) *Table {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, name := range t.columns {
		if _, ok := t.index[name]; !ok {
			t.index[name] = i
		}
	}
	for _, row := range rows {
		if blank(row) {
			continue
		}
		t.rows = append(t.rows, append([]string(nil), row...))
	}
	return t
}

// Empty returns a table with zero rows and zero columns.
func Empty() *Table {
	return NewTable(nil, nil)
}

// Columns returns the header in file order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Len is the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *Table) Has(column string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[column]
	return ok
}

// Value returns the raw cell; ok is false when the row or column does not
// exist. Short rows read as "" for their missing trailing cells.
func (t *Table) Value(row int, column string) (string, bool) {
	if t == nil || row < 0 || row >= len(t.rows) {
		return "", false
	}
	col, ok := t.index[column]
	if !ok {
		return "", false
	}
	cells := t.rows[row]
	if col >= len(cells) {
		return "", true
	}
	return cells[col], true
}

// Float converts a cell to a number.
func (t *Table) Float(row int, column string) (float64, error) {
	v, ok := t.Value(row, column)
	if !ok {
		return 0, &CellError{Row: row, Column: column}
	}
	return cast.ToFloat64E(strings.TrimSpace(v))
}

// Head returns up to n rows padded to the header width, for previews.
func (t *Table) Head(n int) [][]string {
	if t == nil {
		return nil
	}
	if n < 0 || n > len(t.rows) {
		n = len(t.rows)
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(t.columns))
		copy(row, t.rows[i])
		out[i] = row
	}
	return out
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
