package report

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/solarstat-cli/internal/loader"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

var frozen = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func day(d int) time.Time { return time.Date(2021, 8, d, 12, 0, 0, 0, time.UTC) }

func stationTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.NewTimestamp("Timestamp", []time.Time{day(1), day(2), day(3), day(4)}),
		table.NewNumeric("GHI", []float64{-5, 0, 5, 10}),
		table.NewNumeric("Tamb", []float64{20, 21, 22, 23}),
		table.NewNumeric("Flat", []float64{1, 1, 1, 1}),
		table.NewNumeric("WS", []float64{1, 2, 3, 100}),
		table.NewNumeric("WD", []float64{10, 100, 200, 300}),
		table.NewText("Comments", []string{"", "", "dusty", ""}, []bool{true, true, false, true}),
	)
	require.NoError(t, err)
	return tbl
}

func testOptions() Options {
	opt := DefaultOptions()
	opt.Clock = clockwork.NewFakeClockAt(frozen)
	opt.Variables = []string{"GHI", "Tamb", "Flat", "DNI"}
	opt.Expected = table.Schema{
		{Name: "GHI", Kind: table.Numeric},
		{Name: "Comments", Kind: table.Numeric},
		{Name: "BP", Kind: table.Numeric},
	}
	return opt
}

func TestBuild(t *testing.T) {
	r, err := Build(stationTable(t), "benin.csv", testOptions())
	require.NoError(t, err)

	_, err = uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.Equal(t, frozen, r.GeneratedAt)
	assert.Equal(t, 4, r.Rows)
	assert.Equal(t, 7, r.Columns)
	require.NotNil(t, r.Span)
	assert.Equal(t, day(1), r.Span.Start)
	assert.Equal(t, day(4), r.Span.End)

	assert.Len(t, r.Missing, 7)
	assert.False(t, r.Duplicates.Any)

	require.Len(t, r.Types, 2)
	assert.True(t, r.Types[0].Match)
	assert.False(t, r.Types[1].Match)

	var ws IQRSummary
	for _, d := range r.IQR {
		if d.Column == "WS" {
			ws = d
		}
	}
	assert.Equal(t, 1, ws.Count)
	assert.Equal(t, []Number{100}, ws.Values)

	assert.Equal(t, []string{"GHI", "Tamb", "Flat"}, r.ZScore.Columns)
	assert.Equal(t, []string{"Flat"}, r.ZScore.Undefined)
	assert.Equal(t, 0, r.ZScore.Flagged)

	labels := make([]string, len(r.Wind))
	for i, w := range r.Wind {
		labels[i] = w.Label
	}
	assert.Equal(t, []string{"N", "E", "S", "NW"}, labels)

	require.NotNil(t, r.Corr)
	assert.InDelta(t, 1.0, float64(r.Corr.Values[0][1]), 1e-12)
	assert.True(t, math.IsNaN(float64(r.Corr.Values[0][2])))

	assert.Len(t, r.Samples, 4)
	notes := strings.Join(r.Notes, "\n")
	assert.Contains(t, notes, `expected column "BP" not found`)
	assert.Contains(t, notes, `variable "DNI" not found`)
	assert.Contains(t, notes, `column "Comments" is text, expected numeric`)
	assert.Contains(t, notes, `column "Flat" has zero or undefined standard deviation`)
}

func TestBuild_DateRange(t *testing.T) {
	opt := testOptions()
	opt.Start = day(2)
	r, err := Build(stationTable(t), "benin.csv", opt)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Rows)
	assert.Equal(t, day(2), r.Span.Start)

	tbl, err := table.New(table.NewNumeric("GHI", []float64{1}))
	require.NoError(t, err)
	_, err = Build(tbl, "x.csv", opt)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}

func TestBuild_EmptyTable(t *testing.T) {
	tbl, err := table.New(table.NewNumeric("GHI", nil), table.NewNumeric("Tamb", nil))
	require.NoError(t, err)
	r, err := Build(tbl, "empty.csv", testOptions())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Rows)
	assert.False(t, r.IQR[0].Defined)
	assert.Contains(t, r.Notes[0], "no rows")

	_, err = r.JSON()
	require.NoError(t, err)
}

func TestMarkdown(t *testing.T) {
	r, err := Build(stationTable(t), "benin.csv", testOptions())
	require.NoError(t, err)
	md := r.Markdown()

	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: benin.csv",
		"Rows: 4",
		"- Comments: text (missing 75.0%)",
		"[TYPE CHECKS]",
		"- Comments: text, expected numeric: MISMATCH",
		"- GHI: 1\n",
		"- WS: 1 outside [-36.5, 65.5]",
		"[Z-SCORE OUTLIERS]",
		"[WIND ROSE]",
		"- NW: mean 100 (n=1)",
		"- GHI ~ Tamb: r=1.000",
		"[HEAD AND SAMPLE ROWS]",
		"| Timestamp | GHI | Tamb | Flat | WS | WD | Comments |",
		"[NOTES]",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "Flat ~", "undefined correlations are not listed")
}

func TestJSON_NaNIsNull(t *testing.T) {
	r, err := Build(stationTable(t), "benin.csv", testOptions())
	require.NoError(t, err)

	b, err := r.JSON()
	require.NoError(t, err)
	require.True(t, json.Valid(b))

	var decoded struct {
		ID   string `json:"id"`
		Corr struct {
			Values [][]*float64 `json:"values"`
		} `json:"correlations"`
		Schema []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"schema"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Nil(t, decoded.Corr.Values[0][2])
	require.NotNil(t, decoded.Corr.Values[0][1])
	assert.Equal(t, "timestamp", decoded.Schema[0].Kind)
}

func TestJSON_InfiniteCellsEncodeAsNull(t *testing.T) {
	csv := "GHI,WS,WD\n1,1,10\n2,2,100\n3,3,200\ninf,inf,300\n"
	tbl, err := loader.ReadCSV(strings.NewReader(csv), "inf.csv", loader.Options{})
	require.NoError(t, err)
	ghi, err := tbl.Column("GHI")
	require.NoError(t, err)
	require.True(t, math.IsInf(ghi.Nums[3], 1))

	opt := DefaultOptions()
	opt.Clock = clockwork.NewFakeClockAt(frozen)
	opt.Variables = nil
	r, err := Build(tbl, "inf.csv", opt)
	require.NoError(t, err)

	b, err := r.JSON()
	require.NoError(t, err)
	require.True(t, json.Valid(b))

	var decoded struct {
		IQR []struct {
			Column string `json:"column"`
			Bounds struct {
				Upper *float64 `json:"upper"`
			} `json:"bounds"`
		} `json:"iqr_outliers"`
		Wind []struct {
			Label string   `json:"label"`
			Mean  *float64 `json:"mean"`
		} `json:"wind"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.NotEmpty(t, decoded.IQR)
	assert.Equal(t, "GHI", decoded.IQR[0].Column)
	assert.Nil(t, decoded.IQR[0].Bounds.Upper)
	require.Len(t, decoded.Wind, 4)
	assert.Equal(t, "NW", decoded.Wind[3].Label)
	assert.Nil(t, decoded.Wind[3].Mean)
	require.NotNil(t, decoded.Wind[0].Mean)
	assert.Equal(t, 1.0, *decoded.Wind[0].Mean)
}

func TestSafeVal_CutsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 100)
	got := safeVal(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("é", 77)+"...", got)

	assert.Equal(t, "a / b c", safeVal("a | b\nc"))
	assert.Equal(t, "température", safeVal("température"))
}
