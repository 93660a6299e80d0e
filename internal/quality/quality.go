// Package quality implements the read-only data quality checks: missing
// values, type conformance, duplicate rows and negative values.
package quality

import (
	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// MissingSummary is the missing-value record of one column.
type MissingSummary struct {
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// MissingValues returns one summary per column in table order. The percentage
// is 0 for a table without rows.
func MissingValues(t *table.Table) []MissingSummary {
	out := make([]MissingSummary, 0, t.NumCols())
	for _, c := range t.Columns() {
		n := c.NullCount()
		pct := 0.0
		if t.Rows() > 0 {
			pct = float64(n) / float64(t.Rows()) * 100
		}
		out = append(out, MissingSummary{Column: c.Name, Count: n, Percent: pct})
	}
	return out
}

// TypeCheck compares a column's kind against the expected one.
type TypeCheck struct {
	Column   string     `json:"column"`
	Actual   table.Kind `json:"actual"`
	Expected table.Kind `json:"expected"`
	Match    bool       `json:"match"`
}

// CheckTypes reports, for every field of expected, whether the table's column
// has that kind. Integer and floating point data are both Numeric.
func CheckTypes(t *table.Table, expected table.Schema) ([]TypeCheck, error) {
	out := make([]TypeCheck, 0, len(expected))
	for _, f := range expected {
		c, err := t.Column(f.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, TypeCheck{Column: f.Name, Actual: c.Kind, Expected: f.Kind, Match: c.Kind == f.Kind})
	}
	return out, nil
}

// Mismatches filters checks down to the failing ones.
func Mismatches(checks []TypeCheck) []TypeCheck {
	var out []TypeCheck
	for _, c := range checks {
		if !c.Match {
			out = append(out, c)
		}
	}
	return out
}

// DuplicateReport describes rows that repeat an earlier row exactly.
type DuplicateReport struct {
	Any   bool  `json:"any"`
	Count int   `json:"count"`
	Rows  []int `json:"rows,omitempty"`
}

// Duplicates finds rows equal in every cell to an earlier row, null matching
// null. Rows lists the later occurrences; the first one is kept.
func Duplicates(t *table.Table) DuplicateReport {
	seen := make(map[string]struct{}, t.Rows())
	var rep DuplicateReport
	for i := 0; i < t.Rows(); i++ {
		k := t.RowKey(i)
		if _, ok := seen[k]; ok {
			rep.Rows = append(rep.Rows, i)
			continue
		}
		seen[k] = struct{}{}
	}
	rep.Count = len(rep.Rows)
	rep.Any = rep.Count > 0
	return rep
}

// HasDuplicates reports whether at least two rows are identical.
func HasDuplicates(t *table.Table) bool {
	return Duplicates(t).Any
}

// NegativeCount is the number of strictly negative values in a numeric column.
type NegativeCount struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// NegativeCounts counts values below zero in every numeric column, in table
// order. Other kinds are skipped and nulls are ignored.
func NegativeCounts(t *table.Table) []NegativeCount {
	var out []NegativeCount
	for _, c := range t.Columns() {
		if c.Kind != table.Numeric {
			continue
		}
		n := 0
		for i, v := range c.Nums {
			if !c.Null[i] && v < 0 {
				n++
			}
		}
		out = append(out, NegativeCount{Column: c.Name, Count: n})
	}
	return out
}
