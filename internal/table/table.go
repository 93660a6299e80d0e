// Package table holds the in-memory tabular model shared by every analysis
// package: an ordered set of equal-length, typed columns with null masks.
//
// Inspection functions never modify a Table. Transformations return a new
// Table; columns that were not touched are shared between the old and new one.
package table

import (
	"fmt"
	"strings"
)

// Table is an ordered collection of named columns of equal length.
type Table struct {
	cols  []Column
	index map[string]int
	rows  int
}

// New builds a table from columns. All columns must have the same length and
// distinct names.
func New(cols ...Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name, c.Len(), t.rows, ErrLengthMismatch)
		}
		if _, dup := t.index[c.Name]; dup {
			return nil, fmt.Errorf("column %q: %w", c.Name, ErrDuplicateColumn)
		}
		t.index[c.Name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return t.rows }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns column names in table order.
func (t *Table) Names() []string {
	out := make([]string, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Name
	}
	return out
}

// Columns returns the columns in table order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// Schema returns the name and kind of every column in table order.
func (t *Table) Schema() Schema {
	out := make(Schema, len(t.cols))
	for i, c := range t.cols {
		out[i] = Field{Name: c.Name, Kind: c.Kind}
	}
	return out
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, error) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, &ColumnNotFoundError{Name: name}
	}
	return t.cols[i], nil
}

// ColumnOf looks up a column and checks its kind.
func (t *Table) ColumnOf(name string, want Kind) (Column, error) {
	c, err := t.Column(name)
	if err != nil {
		return Column{}, err
	}
	if c.Kind != want {
		return Column{}, &TypeMismatchError{Column: name, Want: want, Got: c.Kind}
	}
	return c, nil
}

// NumericNames returns the names of all numeric columns in table order.
func (t *Table) NumericNames() []string {
	var out []string
	for _, c := range t.cols {
		if c.Kind == Numeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// WithColumn returns a new table where c replaces the column of the same name,
// or is appended when no such column exists.
func (t *Table) WithColumn(c Column) (*Table, error) {
	if len(t.cols) > 0 && c.Len() != t.rows {
		return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name, c.Len(), t.rows, ErrLengthMismatch)
	}
	cols := t.Columns()
	if i, ok := t.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Subset returns a new table holding the given rows, in the given order.
func (t *Table) Subset(rows []int) *Table {
	out := &Table{index: make(map[string]int, len(t.cols)), rows: len(rows)}
	for i, c := range t.cols {
		out.cols = append(out.cols, c.Subset(rows))
		out.index[c.Name] = i
	}
	return out
}

// Select returns a new table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return &Table{index: map[string]int{}}, nil
	}
	return New(cols...)
}

// Row returns the values of row i in column order; nulls are nil.
func (t *Table) Row(i int) []any {
	out := make([]any, len(t.cols))
	for j, c := range t.cols {
		out[j] = c.Value(i)
	}
	return out
}

// RowKey returns a canonical encoding of row i. Two rows have the same key iff
// every cell is equal, with null equal to null.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for j, c := range t.cols {
		if j > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(c.key(i))
	}
	return b.String()
}
