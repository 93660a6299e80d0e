// Package wind buckets wind directions into compass sectors and aggregates a
// target variable per sector.
package wind

import (
	"math"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// DefaultBucketColumn names the column added by BucketColumn when no name is given.
const DefaultBucketColumn = "WD_compass"

const sectorWidth = 45.0

// Labels are the compass sectors in order, starting at north.
var Labels = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Bucket maps a direction in degrees to its compass label. Sectors are
// [k*45, (k+1)*45) and the last one also takes 360. Values outside [0, 360]
// and NaN have no sector.
func Bucket(deg float64) (string, bool) {
	if math.IsNaN(deg) || deg < 0 || deg > 360 {
		return "", false
	}
	k := int(deg / sectorWidth)
	if k >= len(Labels) {
		k = len(Labels) - 1
	}
	return Labels[k], true
}

// BucketColumn returns t with a text column holding the compass label of
// dirCol. Rows without a sector are null.
func BucketColumn(t *table.Table, dirCol, outName string) (*table.Table, error) {
	if outName == "" {
		outName = DefaultBucketColumn
	}
	c, err := t.ColumnOf(dirCol, table.Numeric)
	if err != nil {
		return nil, err
	}
	labels := make([]string, c.Len())
	null := make([]bool, c.Len())
	for i, v := range c.Nums {
		if c.Null[i] {
			null[i] = true
			continue
		}
		l, ok := Bucket(v)
		labels[i], null[i] = l, !ok
	}
	return t.WithColumn(table.NewText(outName, labels, null))
}

// BucketMean is the mean of the target variable within one sector.
type BucketMean struct {
	Label string  `json:"label"`
	Mean  float64 `json:"mean"`
	Count int     `json:"count"`
}

// MeanByBucket groups target by the labels in bucketCol and returns the mean
// per sector in compass order. Sectors without any target value are absent.
func MeanByBucket(t *table.Table, bucketCol, target string) ([]BucketMean, error) {
	b, err := t.ColumnOf(bucketCol, table.Text)
	if err != nil {
		return nil, err
	}
	v, err := t.ColumnOf(target, table.Numeric)
	if err != nil {
		return nil, err
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for i := 0; i < t.Rows(); i++ {
		if b.Null[i] || v.Null[i] {
			continue
		}
		sums[b.Texts[i]] += v.Nums[i]
		counts[b.Texts[i]]++
	}
	var out []BucketMean
	for _, l := range Labels {
		n := counts[l]
		if n == 0 {
			continue
		}
		out = append(out, BucketMean{Label: l, Mean: sums[l] / float64(n), Count: n})
	}
	return out, nil
}

// Rose buckets dirCol and averages target per sector.
func Rose(t *table.Table, dirCol, target string) ([]BucketMean, error) {
	bucketed, err := BucketColumn(t, dirCol, DefaultBucketColumn)
	if err != nil {
		return nil, err
	}
	return MeanByBucket(bucketed, DefaultBucketColumn, target)
}
