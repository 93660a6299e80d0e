// Package explore provides the slicing operations used to look at a dataset
// interactively: date-range filtering, variable selection, correlations and
// per-column descriptive statistics.
package explore

import (
	"errors"
	"math"
	"time"

	"github.com/KaramelBytes/solarstat-cli/internal/stats"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// FilterDateRange keeps rows whose timestamp lies in [start, end]. A zero
// start or end leaves that side open. Rows with a null timestamp are dropped.
func FilterDateRange(t *table.Table, tsCol string, start, end time.Time) (*table.Table, error) {
	c, err := t.ColumnOf(tsCol, table.Timestamp)
	if err != nil {
		return nil, err
	}
	var keep []int
	for i, ts := range c.Times {
		if c.Null[i] {
			continue
		}
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		keep = append(keep, i)
	}
	return t.Subset(keep), nil
}

// TimeRange returns the earliest and latest timestamp in tsCol. ok is false
// when the column has no values.
func TimeRange(t *table.Table, tsCol string) (minTS, maxTS time.Time, ok bool, err error) {
	c, err := t.ColumnOf(tsCol, table.Timestamp)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	for i, ts := range c.Times {
		if c.Null[i] {
			continue
		}
		if !ok || ts.Before(minTS) {
			minTS = ts
		}
		if !ok || ts.After(maxTS) {
			maxTS = ts
		}
		ok = true
	}
	return minTS, maxTS, ok, nil
}

// SelectVariables keeps only the named columns, in the given order.
func SelectVariables(t *table.Table, names []string) (*table.Table, error) {
	return t.Select(names...)
}

// Matrix is a square correlation matrix. Values[i][j] is the correlation of
// Columns[i] and Columns[j]; NaN marks an undefined pair.
type Matrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}

// At returns the correlation of two named columns.
func (m Matrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, name := range m.Columns {
		if name == a {
			i = k
		}
		if name == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return m.Values[i][j], true
}

// CorrelationMatrix computes the Pearson correlation of every pair of the
// given numeric columns over the rows where both are present. With no
// columns given every numeric column is used.
func CorrelationMatrix(t *table.Table, cols []string) (Matrix, error) {
	if len(cols) == 0 {
		cols = t.NumericNames()
	}
	src := make([]table.Column, len(cols))
	for i, name := range cols {
		c, err := t.ColumnOf(name, table.Numeric)
		if err != nil {
			return Matrix{}, err
		}
		src[i] = c
	}
	m := Matrix{Columns: append([]string(nil), cols...), Values: make([][]float64, len(cols))}
	for i := range m.Values {
		m.Values[i] = make([]float64, len(cols))
	}
	for i := range src {
		for j := i; j < len(src); j++ {
			r := pairwise(src[i], src[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			m.Values[i][j], m.Values[j][i] = r, r
		}
	}
	return m, nil
}

func pairwise(a, b table.Column) float64 {
	var x, y []float64
	for k := range a.Nums {
		if a.Null[k] || b.Null[k] {
			continue
		}
		x = append(x, a.Nums[k])
		y = append(y, b.Nums[k])
	}
	r, err := stats.Correlation(x, y)
	if err != nil {
		return math.NaN()
	}
	return r
}

// ColumnStats are the descriptive statistics of a numeric column.
type ColumnStats struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
	stats.Summary
}

// Describe summarises every numeric column in table order. Columns without
// values are reported with Count 0 and NaN statistics.
func Describe(t *table.Table) []ColumnStats {
	var out []ColumnStats
	for _, c := range t.Columns() {
		if c.Kind != table.Numeric {
			continue
		}
		vals, _ := c.Floats()
		s, err := stats.Describe(vals)
		if errors.Is(err, table.ErrEmptyInput) {
			nan := math.NaN()
			s = stats.Summary{Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan}
		}
		out = append(out, ColumnStats{Column: c.Name, Nulls: c.NullCount(), Summary: s})
	}
	return out
}
