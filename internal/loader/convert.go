package loader

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/solarstat-cli/internal/table"
)

// nanValues are the cell spellings read as missing.
var nanValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "NULL", "<nil>"}

// timeLayouts are tried in order when a text column might hold timestamps.
// Month-first slash dates come before day-first ones.
var timeLayouts = []string{
	time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04",
	"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02", "2006/01/02",
	"01/02/2006", "02/01/2006", "1/2/2006 15:04", "1/2/2006 15:04:05", "01-02-06",
}

func loadOptions(delim rune, types table.Schema) []dataframe.LoadOption {
	opts := []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
		dataframe.WithDelimiter(delim),
		dataframe.WithLazyQuotes(true),
	}
	if len(types) > 0 {
		forced := make(map[string]series.Type, len(types))
		for _, f := range types {
			switch f.Kind {
			case table.Numeric:
				forced[f.Name] = series.Float
			default:
				forced[f.Name] = series.String
			}
		}
		opts = append(opts, dataframe.WithTypes(forced))
	}
	return opts
}

// fromDataFrame converts a parsed frame into a table. Columns listed in types
// get that kind; the rest are Numeric when gota detected numbers, Timestamp
// when every value parses as a time, and Text otherwise.
func fromDataFrame(df dataframe.DataFrame, types table.Schema) (*table.Table, error) {
	cols := make([]table.Column, 0, df.Ncol())
	for _, name := range df.Names() {
		s := df.Col(name)
		want, forced := types.Lookup(name)
		if !forced {
			want = detectKind(s)
		}
		c, err := convertSeries(name, s, want)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return table.New(cols...)
}

func detectKind(s series.Series) table.Kind {
	switch s.Type() {
	case series.Float, series.Int:
		return table.Numeric
	case series.String:
		if _, ok := columnLayout(s.Records(), s.IsNaN()); ok {
			return table.Timestamp
		}
	}
	return table.Text
}

// columnLayout returns the first layout that parses every non-null record, so
// a whole column is read one way. ok is false when no layout fits or there
// are no values.
func columnLayout(records []string, na []bool) (string, bool) {
	for _, l := range timeLayouts {
		seen, fits := false, true
		for i, r := range records {
			if na[i] {
				continue
			}
			if _, err := time.Parse(l, strings.TrimSpace(r)); err != nil {
				fits = false
				break
			}
			seen = true
		}
		if fits && seen {
			return l, true
		}
	}
	return "", false
}

func convertSeries(name string, s series.Series, kind table.Kind) (table.Column, error) {
	na := s.IsNaN()
	switch kind {
	case table.Numeric:
		if s.Type() == series.Float || s.Type() == series.Int {
			return table.NewNumeric(name, s.Float()), nil
		}
		vals := make([]float64, s.Len())
		for i, r := range s.Records() {
			vals[i] = math.NaN()
			if na[i] {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(r), 64); err == nil {
				vals[i] = v
			}
		}
		return table.NewNumeric(name, vals), nil
	case table.Timestamp:
		records := s.Records()
		layout, whole := columnLayout(records, na)
		times := make([]time.Time, s.Len())
		for i, r := range records {
			if na[i] {
				continue
			}
			if whole {
				times[i], _ = time.Parse(layout, strings.TrimSpace(r))
				continue
			}
			// Forced kind without a common layout: best effort per cell.
			times[i], _ = parseTimeMaybe(r)
		}
		return table.NewTimestamp(name, times), nil
	case table.Text:
		return table.NewText(name, s.Records(), na), nil
	}
	return table.Column{}, fmt.Errorf("column %q: unsupported kind %s", name, kind)
}

func parseTimeMaybe(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// toDataFrame renders every column as a string series so nulls become empty
// cells and numbers keep their shortest exact form.
func toDataFrame(t *table.Table) dataframe.DataFrame {
	ss := make([]series.Series, 0, t.NumCols())
	for _, c := range t.Columns() {
		vals := make([]string, c.Len())
		for i := range vals {
			vals[i] = c.Format(i)
		}
		ss = append(ss, series.New(vals, series.String, c.Name))
	}
	return dataframe.New(ss...)
}
