package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Record is one row of a source table. Values are nil, string or float64.
type Record map[string]any

// Table is an ordered sequence of records. Rows share Columns, but a row may
// lack some of them.
type Table struct {
	Name    string
	Columns []string
	Rows    []Record
}

// NewTable creates an empty table with the given header.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Append adds a row. Columns not yet in the header are appended to it in
// sorted order so the layout is stable across runs.
func (t *Table) Append(r Record) {
	var extra []string
	for k := range r {
		if !t.HasColumn(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	t.Columns = append(t.Columns, extra...)
	t.Rows = append(t.Rows, r)
}

// Value returns the cell at row/col, or nil.
func (t *Table) Value(row int, col string) any {
	if col == "" || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][col]
}

// Set writes a cell, adding col to the header when needed.
func (t *Table) Set(row int, col string, v any) {
	if !t.HasColumn(col) {
		t.Columns = append(t.Columns, col)
	}
	if t.Rows[row] == nil {
		t.Rows[row] = Record{}
	}
	t.Rows[row][col] = v
}

// Column returns a snapshot of one column, one value per row.
func (t *Table) Column(col string) []any {
	out := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[col]
	}
	return out
}

// Clone returns a copy whose rows can be modified without touching t.
func (t *Table) Clone() *Table {
	c := &Table{
		Name:    t.Name,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Record, len(t.Rows)),
	}
	for i, r := range t.Rows {
		cr := make(Record, len(r))
		for k, v := range r {
			cr[k] = v
		}
		c.Rows[i] = cr
	}
	return c
}

// IsNull reports whether v carries no value: nil, NaN or a blank string.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// FormatValue renders a cell for reports and descriptions.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return toText(v)
	}
}
