// Package report runs every quality check over a table and collects the
// results into a single Report that renders as Markdown or JSON.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/KaramelBytes/solarstat-cli/internal/explore"
	"github.com/KaramelBytes/solarstat-cli/internal/outlier"
	"github.com/KaramelBytes/solarstat-cli/internal/quality"
	"github.com/KaramelBytes/solarstat-cli/internal/stats"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
	"github.com/KaramelBytes/solarstat-cli/internal/wind"
)

// maxListed caps row indices and example values kept per finding.
const maxListed = 10

// Options controls which columns play which role in the report.
type Options struct {
	TimestampColumn     string
	WindDirectionColumn string
	WindSpeedColumn     string
	// Variables restricts z-scores and correlations; absent names are noted
	// and skipped. Empty means every numeric column.
	Variables []string
	// Expected kinds to check the table against.
	Expected table.Schema
	// ZThreshold <= 0 uses stats.DefaultZThreshold.
	ZThreshold float64
	// Start and End restrict rows by timestamp, inclusive; zero means open.
	Start, End time.Time
	// SampleRows determines how many example rows to include in the report.
	SampleRows int
	Clock      clockwork.Clock
}

// DefaultOptions returns the column roles of a typical solar station export.
func DefaultOptions() Options {
	return Options{
		TimestampColumn:     "Timestamp",
		WindDirectionColumn: "WD",
		WindSpeedColumn:     "WS",
		Variables:           []string{"GHI", "DNI", "DHI", "Tamb"},
		ZThreshold:          stats.DefaultZThreshold,
		SampleRows:          5,
		Clock:               clockwork.NewRealClock(),
	}
}

// Report is the outcome of one analysis run.
type Report struct {
	ID          string       `json:"id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Source      string       `json:"source"`
	Rows        int          `json:"rows"`
	Columns     int          `json:"columns"`
	Schema      table.Schema `json:"schema"`
	Span        *Span        `json:"span,omitempty"`

	Missing    []quality.MissingSummary `json:"missing"`
	Types      []quality.TypeCheck      `json:"types,omitempty"`
	Duplicates quality.DuplicateReport  `json:"duplicates"`
	Negatives  []quality.NegativeCount  `json:"negatives"`
	IQR        []IQRSummary             `json:"iqr_outliers"`
	ZScore     ZSummary                 `json:"zscore_outliers"`
	Wind       []WindBucket             `json:"wind,omitempty"`
	Stats      []ColumnStats            `json:"stats"`
	Corr       *Correlations            `json:"correlations,omitempty"`
	Samples    [][]string               `json:"samples,omitempty"`
	Notes      []string                 `json:"notes,omitempty"`
}

// Span is the time range covered by the analysed rows.
type Span struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Bounds are IQR fences with JSON-safe numbers.
type Bounds struct {
	Q1    Number `json:"q1"`
	Q3    Number `json:"q3"`
	IQR   Number `json:"iqr"`
	Lower Number `json:"lower"`
	Upper Number `json:"upper"`
}

// IQRSummary is the IQR detection result of one column.
type IQRSummary struct {
	Column  string   `json:"column"`
	Defined bool     `json:"defined"`
	Bounds  Bounds   `json:"bounds"`
	Count   int      `json:"count"`
	Rows    []int    `json:"rows,omitempty"`
	Values  []Number `json:"values,omitempty"`
}

// NewIQRSummary converts a detection, keeping every flagged row and value.
func NewIQRSummary(d outlier.Detection) IQRSummary {
	b := d.Bounds
	return IQRSummary{
		Column:  d.Column,
		Defined: d.Defined,
		Bounds: Bounds{
			Q1: Number(b.Q1), Q3: Number(b.Q3), IQR: Number(b.IQR),
			Lower: Number(b.Lower), Upper: Number(b.Upper),
		},
		Count:  d.Count(),
		Rows:   d.Rows,
		Values: numbers(d.Values),
	}
}

// WindBucket is the mean wind speed of one compass sector.
type WindBucket struct {
	Label string `json:"label"`
	Mean  Number `json:"mean"`
	Count int    `json:"count"`
}

// ZSummary is the z-score flagging result.
type ZSummary struct {
	Threshold float64  `json:"threshold"`
	Columns   []string `json:"columns"`
	Flagged   int      `json:"flagged"`
	Rows      []int    `json:"rows,omitempty"`
	Undefined []string `json:"undefined,omitempty"`
}

// ColumnStats are descriptive statistics with JSON-safe numbers.
type ColumnStats struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Nulls  int    `json:"nulls"`
	Mean   Number `json:"mean"`
	Std    Number `json:"std"`
	Min    Number `json:"min"`
	Q1     Number `json:"q1"`
	Median Number `json:"median"`
	Q3     Number `json:"q3"`
	Max    Number `json:"max"`
}

// Correlations is a correlation matrix with JSON-safe numbers.
type Correlations struct {
	Columns []string   `json:"columns"`
	Values  [][]Number `json:"values"`
}

// Build runs every check over t. source names the input in the output.
func Build(t *table.Table, source string, opt Options) (*Report, error) {
	if opt.Clock == nil {
		opt.Clock = clockwork.NewRealClock()
	}
	var err error
	if !opt.Start.IsZero() || !opt.End.IsZero() {
		t, err = explore.FilterDateRange(t, opt.TimestampColumn, opt.Start, opt.End)
		if err != nil {
			return nil, fmt.Errorf("filter date range: %w", err)
		}
	}

	r := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: opt.Clock.Now().UTC(),
		Source:      source,
		Rows:        t.Rows(),
		Columns:     t.NumCols(),
		Schema:      t.Schema(),
	}
	if t.Rows() == 0 {
		r.note("dataset has no rows; statistics are undefined")
	}

	if c, err := t.Column(opt.TimestampColumn); err == nil && c.Kind == table.Timestamp {
		if lo, hi, ok, _ := explore.TimeRange(t, opt.TimestampColumn); ok {
			r.Span = &Span{Start: lo, End: hi}
		}
	}

	r.Missing = quality.MissingValues(t)
	r.Duplicates = quality.Duplicates(t)
	r.Duplicates.Rows = head(r.Duplicates.Rows)
	r.Negatives = quality.NegativeCounts(t)
	if r.Duplicates.Any {
		r.note(fmt.Sprintf("%d duplicate rows", r.Duplicates.Count))
	}

	if err := r.checkTypes(t, opt.Expected); err != nil {
		return nil, err
	}
	if err := r.detectIQR(t); err != nil {
		return nil, err
	}

	vars := r.variables(t, opt.Variables)
	if err := r.flagZ(t, vars, opt.ZThreshold); err != nil {
		return nil, err
	}
	if len(vars) >= 2 {
		m, err := explore.CorrelationMatrix(t, vars)
		if err != nil {
			return nil, fmt.Errorf("correlations: %w", err)
		}
		r.Corr = &Correlations{Columns: m.Columns, Values: make([][]Number, len(m.Values))}
		for i, row := range m.Values {
			r.Corr.Values[i] = numbers(row)
		}
	}

	r.rose(t, opt.WindDirectionColumn, opt.WindSpeedColumn)

	for _, s := range explore.Describe(t) {
		r.Stats = append(r.Stats, ColumnStats{
			Column: s.Column, Count: s.Count, Nulls: s.Nulls,
			Mean: Number(s.Mean), Std: Number(s.Std), Min: Number(s.Min),
			Q1: Number(s.Q1), Median: Number(s.Median), Q3: Number(s.Q3), Max: Number(s.Max),
		})
	}

	for i := 0; i < t.Rows() && i < opt.SampleRows; i++ {
		row := make([]string, t.NumCols())
		for j, c := range t.Columns() {
			row[j] = c.Format(i)
		}
		r.Samples = append(r.Samples, row)
	}
	return r, nil
}

func (r *Report) note(s string) { r.Notes = append(r.Notes, s) }

func (r *Report) checkTypes(t *table.Table, expected table.Schema) error {
	var present table.Schema
	for _, f := range expected {
		if t.Has(f.Name) {
			present = append(present, f)
		} else {
			r.note(fmt.Sprintf("expected column %q not found", f.Name))
		}
	}
	if len(present) == 0 {
		return nil
	}
	checks, err := quality.CheckTypes(t, present)
	if err != nil {
		return fmt.Errorf("check types: %w", err)
	}
	r.Types = checks
	for _, m := range quality.Mismatches(checks) {
		r.note(fmt.Sprintf("column %q is %s, expected %s", m.Column, m.Actual, m.Expected))
	}
	return nil
}

func (r *Report) detectIQR(t *table.Table) error {
	dets, err := outlier.DetectIQRColumns(t, nil)
	if err != nil {
		return fmt.Errorf("iqr outliers: %w", err)
	}
	for _, d := range dets {
		s := NewIQRSummary(d)
		s.Rows = head(s.Rows)
		if len(s.Values) > maxListed {
			s.Values = s.Values[:maxListed]
		}
		if d.Defined && d.Bounds.IQR == 0 && d.Count() > 0 {
			r.note(fmt.Sprintf("column %q has zero IQR; every value other than %.4g is flagged", d.Column, d.Bounds.Q1))
		}
		r.IQR = append(r.IQR, s)
	}
	return nil
}

// variables resolves the configured variables against the numeric columns
// of t, noting the ones that are missing or not numeric.
func (r *Report) variables(t *table.Table, want []string) []string {
	if len(want) == 0 {
		return t.NumericNames()
	}
	var out []string
	for _, name := range want {
		c, err := t.Column(name)
		switch {
		case err != nil:
			r.note(fmt.Sprintf("variable %q not found", name))
		case c.Kind != table.Numeric:
			r.note(fmt.Sprintf("variable %q is %s, not numeric", name, c.Kind))
		default:
			out = append(out, name)
		}
	}
	return out
}

func (r *Report) flagZ(t *table.Table, cols []string, threshold float64) error {
	if threshold <= 0 {
		threshold = stats.DefaultZThreshold
	}
	r.ZScore = ZSummary{Threshold: threshold, Columns: cols}
	if len(cols) == 0 {
		return nil
	}
	res, err := outlier.FlagZ(t, cols, threshold)
	if err != nil {
		return fmt.Errorf("z-scores: %w", err)
	}
	r.ZScore.Flagged = len(res.Rows)
	r.ZScore.Rows = head(res.Rows)
	r.ZScore.Undefined = res.Undefined
	for _, c := range res.Undefined {
		r.note(fmt.Sprintf("column %q has zero or undefined standard deviation; z-scores skipped", c))
	}
	return nil
}

func (r *Report) rose(t *table.Table, dirCol, speedCol string) {
	if dirCol == "" || speedCol == "" || !t.Has(dirCol) || !t.Has(speedCol) {
		return
	}
	bm, err := wind.Rose(t, dirCol, speedCol)
	if err != nil {
		r.note(fmt.Sprintf("wind rose skipped: %v", err))
		return
	}
	for _, b := range bm {
		r.Wind = append(r.Wind, WindBucket{Label: b.Label, Mean: Number(b.Mean), Count: b.Count})
	}
}

func head(rows []int) []int {
	if len(rows) > maxListed {
		return rows[:maxListed]
	}
	return rows
}
