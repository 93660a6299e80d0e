package table

import (
	"math"
	"strconv"
	"time"
)

// Column is a named, homogeneous sequence of values with a null mask.
// Only the value slice matching Kind is populated. Null has one entry per row;
// for numeric columns a NaN value is always null.
//
// Columns returned from a Table share storage with it. Use Clone before
// modifying values in place.
type Column struct {
	Name  string
	Kind  Kind
	Nums  []float64
	Texts []string
	Times []time.Time
	Null  []bool
}

// NewNumeric builds a numeric column. NaN entries are recorded as null.
func NewNumeric(name string, values []float64) Column {
	c := Column{Name: name, Kind: Numeric, Nums: make([]float64, len(values)), Null: make([]bool, len(values))}
	copy(c.Nums, values)
	for i, v := range values {
		if math.IsNaN(v) {
			c.Null[i] = true
		}
	}
	return c
}

// NewText builds a text column. null may be nil when no value is missing.
func NewText(name string, values []string, null []bool) Column {
	c := Column{Name: name, Kind: Text, Texts: make([]string, len(values)), Null: make([]bool, len(values))}
	copy(c.Texts, values)
	copy(c.Null, null)
	return c
}

// NewTimestamp builds a timestamp column. Zero times are recorded as null.
func NewTimestamp(name string, values []time.Time) Column {
	c := Column{Name: name, Kind: Timestamp, Times: make([]time.Time, len(values)), Null: make([]bool, len(values))}
	copy(c.Times, values)
	for i, v := range values {
		if v.IsZero() {
			c.Null[i] = true
		}
	}
	return c
}

// Len returns the number of rows in the column.
func (c Column) Len() int { return len(c.Null) }

// IsNull reports whether row i is missing.
func (c Column) IsNull(i int) bool { return c.Null[i] }

// NullCount returns the number of missing cells.
func (c Column) NullCount() int {
	n := 0
	for _, null := range c.Null {
		if null {
			n++
		}
	}
	return n
}

// Floats returns the non-null values of a numeric column in row order.
func (c Column) Floats() ([]float64, error) {
	if c.Kind != Numeric {
		return nil, &TypeMismatchError{Column: c.Name, Want: Numeric, Got: c.Kind}
	}
	out := make([]float64, 0, len(c.Nums))
	for i, v := range c.Nums {
		if !c.Null[i] {
			out = append(out, v)
		}
	}
	return out, nil
}

// Value returns the cell at row i as float64, string or time.Time, or nil when null.
func (c Column) Value(i int) any {
	if c.Null[i] {
		return nil
	}
	switch c.Kind {
	case Numeric:
		return c.Nums[i]
	case Text:
		return c.Texts[i]
	case Timestamp:
		return c.Times[i]
	}
	return nil
}

// Format renders the cell at row i as text; nulls render as the empty string.
func (c Column) Format(i int) string {
	if c.Null[i] {
		return ""
	}
	switch c.Kind {
	case Numeric:
		return strconv.FormatFloat(c.Nums[i], 'f', -1, 64)
	case Text:
		return c.Texts[i]
	case Timestamp:
		return c.Times[i].Format(time.RFC3339)
	}
	return ""
}

// key is a canonical encoding of cell i used for row equality. Null equals null.
func (c Column) key(i int) string {
	if c.Null[i] {
		return "\x00"
	}
	switch c.Kind {
	case Numeric:
		return "n" + strconv.FormatFloat(c.Nums[i], 'g', -1, 64)
	case Text:
		return "s" + strconv.Quote(c.Texts[i])
	case Timestamp:
		return "t" + c.Times[i].UTC().Format(time.RFC3339Nano)
	}
	return ""
}

// Clone returns a deep copy of the column.
func (c Column) Clone() Column {
	out := Column{Name: c.Name, Kind: c.Kind, Null: append([]bool(nil), c.Null...)}
	switch c.Kind {
	case Numeric:
		out.Nums = append([]float64(nil), c.Nums...)
	case Text:
		out.Texts = append([]string(nil), c.Texts...)
	case Timestamp:
		out.Times = append([]time.Time(nil), c.Times...)
	}
	return out
}

// Rename returns a copy of the column header with a new name; values are shared.
func (c Column) Rename(name string) Column {
	c.Name = name
	return c
}

// Subset returns a new column holding rows in the given order.
func (c Column) Subset(rows []int) Column {
	out := Column{Name: c.Name, Kind: c.Kind, Null: make([]bool, len(rows))}
	switch c.Kind {
	case Numeric:
		out.Nums = make([]float64, len(rows))
	case Text:
		out.Texts = make([]string, len(rows))
	case Timestamp:
		out.Times = make([]time.Time, len(rows))
	}
	for j, i := range rows {
		out.Null[j] = c.Null[i]
		switch c.Kind {
		case Numeric:
			out.Nums[j] = c.Nums[i]
		case Text:
			out.Texts[j] = c.Texts[i]
		case Timestamp:
			out.Times[j] = c.Times[i]
		}
	}
	return out
}
