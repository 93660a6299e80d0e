// Package stats provides the descriptive statistics used across the engine.
// Mean, standard deviation and correlation delegate to gonum; quantiles use
// linear interpolation between closest ranks so quartiles match the usual
// dataframe defaults.
package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// Tunables of the outlier rules. Only the z-score threshold is exposed to
// users; the IQR rule is fixed.
const (
	LowerQuartile     = 0.25
	UpperQuartile     = 0.75
	IQRMultiplier     = 1.5
	DefaultZThreshold = 3.0
)

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return math.NaN(), table.ErrEmptyInput
	}
	return stat.Mean(values, nil), nil
}

// StdDev returns the sample (n-1) standard deviation of values.
func StdDev(values []float64) (float64, error) {
	switch len(values) {
	case 0:
		return math.NaN(), table.ErrEmptyInput
	case 1:
		return math.NaN(), fmt.Errorf("standard deviation of a single value: %w", table.ErrUndefinedStatistic)
	}
	return stat.StdDev(values, nil), nil
}

// Sorted returns a sorted copy of values.
func Sorted(values []float64) []float64 {
	cp := make([]float64, len(values))
	copy(cp, values)
	sort.Float64s(cp)
	return cp
}

// Quantile returns the q-th quantile of an ascending slice using linear
// interpolation at position q*(n-1).
func Quantile(sorted []float64, q float64) (float64, error) {
	if len(sorted) == 0 {
		return math.NaN(), table.ErrEmptyInput
	}
	if q <= 0 {
		return sorted[0], nil
	}
	if q >= 1 {
		return sorted[len(sorted)-1], nil
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], nil
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w, nil
}

// Correlation returns the Pearson correlation of two equal-length samples.
func Correlation(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return math.NaN(), fmt.Errorf("correlation of %d and %d values: %w", len(x), len(y), table.ErrLengthMismatch)
	}
	if len(x) < 2 {
		return math.NaN(), fmt.Errorf("correlation needs at least 2 pairs: %w", table.ErrUndefinedStatistic)
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN(), fmt.Errorf("correlation with a constant series: %w", table.ErrUndefinedStatistic)
	}
	r := stat.Correlation(x, y, nil)
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, nil
}

// Summary holds the descriptive statistics of one numeric sample.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// Describe summarises values. Std is NaN for fewer than two values.
func Describe(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, table.ErrEmptyInput
	}
	s := Sorted(values)
	out := Summary{Count: len(s), Min: s[0], Max: s[len(s)-1]}
	out.Mean, _ = Mean(s)
	out.Std, _ = StdDev(s)
	out.Q1, _ = Quantile(s, LowerQuartile)
	out.Median, _ = Quantile(s, 0.5)
	out.Q3, _ = Quantile(s, UpperQuartile)
	return out, nil
}
