package explore

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

func day(d int) time.Time { return time.Date(2021, 8, d, 12, 0, 0, 0, time.UTC) }

func sample(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.NewTimestamp("Timestamp", []time.Time{day(1), day(2), {}, day(3), day(4)}),
		table.NewNumeric("GHI", []float64{1, 2, 3, 4, 5}),
		table.NewNumeric("DNI", []float64{2, 4, 6, 8, math.NaN()}),
		table.NewNumeric("Tamb", []float64{5, 4, 3, 2, 1}),
		table.NewNumeric("Flat", []float64{7, 7, 7, 7, 7}),
		table.NewText("Comments", []string{"a", "b", "c", "d", "e"}, nil),
	)
	require.NoError(t, err)
	return tbl
}

func TestFilterDateRange(t *testing.T) {
	tbl := sample(t)

	tests := []struct {
		name       string
		start, end time.Time
		want       []float64
	}{
		{"closed", day(2), day(3), []float64{2, 4}},
		{"open start", time.Time{}, day(2), []float64{1, 2}},
		{"open end", day(3), time.Time{}, []float64{4, 5}},
		{"unbounded drops null timestamps", time.Time{}, time.Time{}, []float64{1, 2, 4, 5}},
		{"empty window", day(10), day(11), []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := FilterDateRange(tbl, "Timestamp", tt.start, tt.end)
			require.NoError(t, err)
			ghi, _ := out.Column("GHI")
			assert.Equal(t, tt.want, ghi.Nums)
		})
	}

	_, err := FilterDateRange(tbl, "GHI", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, table.ErrTypeMismatch)
}

func TestTimeRange(t *testing.T) {
	lo, hi, ok, err := TimeRange(sample(t), "Timestamp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, day(1), lo)
	assert.Equal(t, day(4), hi)

	empty, err := table.New(table.NewTimestamp("Timestamp", []time.Time{{}}))
	require.NoError(t, err)
	_, _, ok, err = TimeRange(empty, "Timestamp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelectVariables(t *testing.T) {
	out, err := SelectVariables(sample(t), []string{"Tamb", "GHI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tamb", "GHI"}, out.Names())

	_, err = SelectVariables(sample(t), []string{"WS"})
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestCorrelationMatrix(t *testing.T) {
	m, err := CorrelationMatrix(sample(t), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"GHI", "DNI", "Tamb", "Flat"}, m.Columns)

	r, ok := m.At("GHI", "DNI")
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, _ = m.At("GHI", "Tamb")
	assert.InDelta(t, -1.0, r, 1e-12)

	r, _ = m.At("GHI", "GHI")
	assert.Equal(t, 1.0, r)

	r, _ = m.At("Flat", "GHI")
	assert.True(t, math.IsNaN(r))
	r, _ = m.At("Flat", "Flat")
	assert.True(t, math.IsNaN(r))

	_, ok = m.At("GHI", "WS")
	assert.False(t, ok)

	_, err = CorrelationMatrix(sample(t), []string{"Comments"})
	assert.ErrorIs(t, err, table.ErrTypeMismatch)
}

func TestDescribe(t *testing.T) {
	got := Describe(sample(t))
	require.Len(t, got, 4)
	assert.Equal(t, "DNI", got[1].Column)
	assert.Equal(t, 4, got[1].Count)
	assert.Equal(t, 1, got[1].Nulls)
	assert.Equal(t, 5.0, got[1].Mean)
	assert.Equal(t, 0.0, got[3].Std)

	void, err := table.New(table.NewNumeric("x", []float64{math.NaN()}))
	require.NoError(t, err)
	d := Describe(void)
	require.Len(t, d, 1)
	assert.Equal(t, 0, d[0].Count)
	assert.True(t, math.IsNaN(d[0].Mean))
}
