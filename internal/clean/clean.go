// Package clean holds the table transformations that repair a dataset:
// negative clamping, de-duplication, missing-value handling and IQR treatment.
// Every function returns a new table and leaves its input untouched.
package clean

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/KaramelBytes/solarstat-cli/internal/outlier"
	"github.com/KaramelBytes/solarstat-cli/internal/quality"
	"github.com/KaramelBytes/solarstat-cli/internal/stats"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// DefaultFillText replaces missing text cells.
const DefaultFillText = "unknown"

// ClampNegative replaces every value below zero with zero in the listed
// numeric columns.
func ClampNegative(t *table.Table, cols []string) (*table.Table, error) {
	out, _, err := clampNegative(t, cols)
	return out, err
}

func clampNegative(t *table.Table, cols []string) (*table.Table, map[string]int, error) {
	counts := make(map[string]int, len(cols))
	out := t
	for _, name := range cols {
		c, err := t.ColumnOf(name, table.Numeric)
		if err != nil {
			return nil, nil, err
		}
		c = c.Clone()
		for i, v := range c.Nums {
			if !c.Null[i] && v < 0 {
				c.Nums[i] = 0
				counts[name]++
			}
		}
		if out, err = out.WithColumn(c); err != nil {
			return nil, nil, err
		}
	}
	return out, counts, nil
}

// DropDuplicates removes rows identical to an earlier row.
func DropDuplicates(t *table.Table) *table.Table {
	dup := quality.Duplicates(t)
	if !dup.Any {
		return t
	}
	return t.Subset(keepRows(t.Rows(), dup.Rows))
}

// DropMissing removes rows that are null in any of the critical columns.
func DropMissing(t *table.Table, critical []string) (*table.Table, error) {
	var drop []int
	cols := make([]table.Column, 0, len(critical))
	for _, name := range critical {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	for i := 0; i < t.Rows(); i++ {
		for _, c := range cols {
			if c.Null[i] {
				drop = append(drop, i)
				break
			}
		}
	}
	if len(drop) == 0 {
		return t, nil
	}
	return t.Subset(keepRows(t.Rows(), drop)), nil
}

// FillMissing replaces numeric nulls with the column mean and text nulls with
// fillText. Numeric columns without any value and timestamp columns are left
// as they are. It returns the number of filled cells per column.
func FillMissing(t *table.Table, fillText string) (*table.Table, map[string]int) {
	if fillText == "" {
		fillText = DefaultFillText
	}
	filled := map[string]int{}
	out := t
	for _, c := range t.Columns() {
		n := c.NullCount()
		if n == 0 {
			continue
		}
		switch c.Kind {
		case table.Numeric:
			vals, _ := c.Floats()
			mean, err := stats.Mean(vals)
			if err != nil {
				continue
			}
			c = c.Clone()
			for i := range c.Nums {
				if c.Null[i] {
					c.Nums[i], c.Null[i] = mean, false
				}
			}
		case table.Text:
			c = c.Clone()
			for i := range c.Texts {
				if c.Null[i] {
					c.Texts[i], c.Null[i] = fillText, false
				}
			}
		default:
			continue
		}
		out, _ = out.WithColumn(c)
		filled[c.Name] = n
	}
	return out, filled
}

// Options configures Clean.
type Options struct {
	// Critical columns; rows missing any of them are dropped.
	Critical []string
	// FillText replaces missing text. Defaults to DefaultFillText.
	FillText string
	// TreatOutliers enables IQR treatment of every numeric column.
	TreatOutliers bool
	// ClampColumns are clamped at zero after treatment.
	ClampColumns []string
	Logger       *slog.Logger
}

// Summary records what each step of Clean changed.
type Summary struct {
	RowsIn            int            `json:"rows_in"`
	RowsOut           int            `json:"rows_out"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	MissingDropped    int            `json:"missing_dropped"`
	Filled            map[string]int `json:"filled,omitempty"`
	Treated           map[string]int `json:"treated,omitempty"`
	Clamped           map[string]int `json:"clamped,omitempty"`
}

// Clean runs the full pipeline: drop duplicates, drop rows missing critical
// values, fill the remaining nulls, treat outliers and clamp negatives.
func Clean(ctx context.Context, t *table.Table, opts Options) (*table.Table, Summary, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sum := Summary{RowsIn: t.Rows()}

	out := DropDuplicates(t)
	sum.DuplicatesDropped = t.Rows() - out.Rows()
	log.Debug("dropped duplicates", "rows", sum.DuplicatesDropped)

	before := out.Rows()
	out, err := DropMissing(out, opts.Critical)
	if err != nil {
		return nil, sum, fmt.Errorf("drop missing: %w", err)
	}
	sum.MissingDropped = before - out.Rows()
	log.Debug("dropped rows missing critical values", "rows", sum.MissingDropped, "columns", opts.Critical)

	out, sum.Filled = FillMissing(out, opts.FillText)
	log.Debug("filled missing values", "columns", len(sum.Filled))

	if opts.TreatOutliers && out.Rows() > 0 {
		if out, sum.Treated, err = outlier.TreatIQRTable(ctx, out, nil); err != nil {
			return nil, sum, fmt.Errorf("treat outliers: %w", err)
		}
		log.Debug("treated outliers", "columns", len(sum.Treated))
	}

	if len(opts.ClampColumns) > 0 {
		if out, sum.Clamped, err = clampNegative(out, opts.ClampColumns); err != nil {
			return nil, sum, fmt.Errorf("clamp negatives: %w", err)
		}
	}

	sum.RowsOut = out.Rows()
	log.Info("cleaned table", "rows_in", sum.RowsIn, "rows_out", sum.RowsOut)
	return out, sum, nil
}

func keepRows(n int, drop []int) []int {
	skip := make(map[int]struct{}, len(drop))
	for _, i := range drop {
		skip[i] = struct{}{}
	}
	keep := make([]int, 0, n-len(skip))
	for i := 0; i < n; i++ {
		if _, ok := skip[i]; !ok {
			keep = append(keep, i)
		}
	}
	return keep
}
