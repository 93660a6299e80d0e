// Package outlier detects and treats outliers with the interquartile-range
// rule and flags rows by z-score.
package outlier

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/solarstat-cli/internal/stats"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// Bounds are the IQR fences of one column.
type Bounds struct {
	Q1    float64 `json:"q1"`
	Q3    float64 `json:"q3"`
	IQR   float64 `json:"iqr"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies within [Lower, Upper].
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lower && v <= b.Upper
}

// ComputeBounds derives the fences from the quartiles of values.
func ComputeBounds(values []float64) (Bounds, error) {
	if len(values) == 0 {
		return Bounds{}, table.ErrEmptyInput
	}
	s := stats.Sorted(values)
	q1, _ := stats.Quantile(s, stats.LowerQuartile)
	q3, _ := stats.Quantile(s, stats.UpperQuartile)
	iqr := q3 - q1
	return Bounds{
		Q1:    q1,
		Q3:    q3,
		IQR:   iqr,
		Lower: q1 - stats.IQRMultiplier*iqr,
		Upper: q3 + stats.IQRMultiplier*iqr,
	}, nil
}

// Detection is the IQR result for one column. Defined is false when the
// column has no values to compute quartiles from.
type Detection struct {
	Column  string    `json:"column"`
	Bounds  Bounds    `json:"bounds"`
	Defined bool      `json:"defined"`
	Rows    []int     `json:"rows,omitempty"`
	Values  []float64 `json:"values,omitempty"`
}

// Count returns the number of outliers found.
func (d Detection) Count() int { return len(d.Rows) }

// DetectIQR finds the values of a numeric column outside its fences.
func DetectIQR(t *table.Table, col string) (Detection, error) {
	c, err := t.ColumnOf(col, table.Numeric)
	if err != nil {
		return Detection{}, err
	}
	return detectColumn(c), nil
}

func detectColumn(c table.Column) Detection {
	d := Detection{Column: c.Name}
	vals, _ := c.Floats()
	b, err := ComputeBounds(vals)
	if err != nil {
		return d
	}
	d.Bounds, d.Defined = b, true
	for i, v := range c.Nums {
		if c.Null[i] || b.Contains(v) {
			continue
		}
		d.Rows = append(d.Rows, i)
		d.Values = append(d.Values, v)
	}
	return d
}

// DetectIQRColumns runs DetectIQR on each column in order. With no columns
// given every numeric column is checked.
func DetectIQRColumns(t *table.Table, cols []string) ([]Detection, error) {
	if len(cols) == 0 {
		cols = t.NumericNames()
	}
	out := make([]Detection, 0, len(cols))
	for _, name := range cols {
		d, err := DetectIQR(t, name)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// TreatIQR returns a copy of c where every value outside the fences is
// replaced by the mean of the original column. Nulls are kept. A column
// without values is returned unchanged.
func TreatIQR(c table.Column) (table.Column, int, error) {
	if c.Kind != table.Numeric {
		return table.Column{}, 0, &table.TypeMismatchError{Column: c.Name, Want: table.Numeric, Got: c.Kind}
	}
	out := c.Clone()
	vals, _ := c.Floats()
	if len(vals) == 0 {
		return out, 0, nil
	}
	b, _ := ComputeBounds(vals)
	mean, _ := stats.Mean(vals)
	replaced := 0
	for i, v := range out.Nums {
		if out.Null[i] || b.Contains(v) {
			continue
		}
		out.Nums[i] = mean
		replaced++
	}
	return out, replaced, nil
}

// TreatIQRTable treats each listed column independently and returns the new
// table along with the number of replaced values per column. Columns are
// processed concurrently. With no columns given every numeric column is
// treated.
func TreatIQRTable(ctx context.Context, t *table.Table, cols []string) (*table.Table, map[string]int, error) {
	if len(cols) == 0 {
		cols = t.NumericNames()
	}
	src := make([]table.Column, len(cols))
	for i, name := range cols {
		c, err := t.ColumnOf(name, table.Numeric)
		if err != nil {
			return nil, nil, err
		}
		src[i] = c
	}

	treated := make([]table.Column, len(cols))
	counts := make([]int, len(cols))
	g, ctx := errgroup.WithContext(ctx)
	for i := range src {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, n, err := TreatIQR(src[i])
			if err != nil {
				return fmt.Errorf("treat %s: %w", src[i].Name, err)
			}
			treated[i], counts[i] = c, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := t
	replaced := make(map[string]int, len(cols))
	for i, c := range treated {
		var err error
		if out, err = out.WithColumn(c); err != nil {
			return nil, nil, err
		}
		replaced[c.Name] = counts[i]
	}
	return out, replaced, nil
}
