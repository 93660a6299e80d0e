package outlier

import (
	"math"

	"github.com/KaramelBytes/solarstat-cli/internal/stats"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// ZScoreResult is the outcome of FlagZ.
//
// Scores holds one column per requested column. Columns whose standard
// deviation is zero or undefined have only null scores, are listed in
// Undefined, and never flag a row.
type ZScoreResult struct {
	Threshold float64
	Scores    *table.Table
	Rows      []int
	Outliers  *table.Table
	Undefined []string
}

// ZScores computes (x - mean) / std per requested column with the sample
// standard deviation. The second return value names the columns whose scores
// are undefined.
func ZScores(t *table.Table, cols []string) (*table.Table, []string, error) {
	if len(cols) == 0 {
		cols = t.NumericNames()
	}
	out := make([]table.Column, 0, len(cols))
	var undefined []string
	for _, name := range cols {
		c, err := t.ColumnOf(name, table.Numeric)
		if err != nil {
			return nil, nil, err
		}
		z := make([]float64, c.Len())
		vals, _ := c.Floats()
		mean, merr := stats.Mean(vals)
		sd, serr := stats.StdDev(vals)
		if merr != nil || serr != nil || sd == 0 || math.IsNaN(sd) {
			for i := range z {
				z[i] = math.NaN()
			}
			undefined = append(undefined, name)
		} else {
			for i, v := range c.Nums {
				if c.Null[i] {
					z[i] = math.NaN()
					continue
				}
				z[i] = (v - mean) / sd
			}
		}
		out = append(out, table.NewNumeric(name, z))
	}
	scores, err := table.New(out...)
	if err != nil {
		return nil, nil, err
	}
	return scores, undefined, nil
}

// FlagZ flags every row where any requested column has |z| strictly above
// threshold. A threshold <= 0 falls back to stats.DefaultZThreshold. Outliers
// is the subset of t holding the flagged rows in their original order.
func FlagZ(t *table.Table, cols []string, threshold float64) (ZScoreResult, error) {
	if threshold <= 0 {
		threshold = stats.DefaultZThreshold
	}
	scores, undefined, err := ZScores(t, cols)
	if err != nil {
		return ZScoreResult{}, err
	}
	res := ZScoreResult{Threshold: threshold, Scores: scores, Undefined: undefined}
	for i := 0; i < scores.Rows(); i++ {
		for _, c := range scores.Columns() {
			if !c.Null[i] && math.Abs(c.Nums[i]) > threshold {
				res.Rows = append(res.Rows, i)
				break
			}
		}
	}
	res.Outliers = t.Subset(res.Rows)
	return res, nil
}
