package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/solarstat-cli/internal/utils"
)

// Number is a float64 that encodes NaN and infinities as JSON null.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func numbers(in []float64) []Number {
	out := make([]Number, len(in))
	for i, v := range in {
		out[i] = Number(v)
	}
	return out
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return utils.PrettyJSON(r)
}

// Markdown renders a compact plain-text report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Source))
	}
	b.WriteString(fmt.Sprintf("Report: %s (%s)\n", r.ID, r.GeneratedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", r.Columns))
	if r.Span != nil {
		b.WriteString(fmt.Sprintf("Period: %s to %s\n", r.Span.Start.Format(time.RFC3339), r.Span.End.Format(time.RFC3339)))
	}
	b.WriteString("\n[SCHEMA]\n")
	missing := make(map[string]float64, len(r.Missing))
	for _, m := range r.Missing {
		missing[m.Column] = m.Percent
	}
	for _, f := range r.Schema {
		b.WriteString(fmt.Sprintf("- %s: %s (missing %.1f%%)\n", safeName(f.Name), f.Kind, missing[f.Name]))
	}

	if len(r.Types) > 0 {
		b.WriteString("\n[TYPE CHECKS]\n")
		for _, c := range r.Types {
			mark := "ok"
			if !c.Match {
				mark = "MISMATCH"
			}
			b.WriteString(fmt.Sprintf("- %s: %s, expected %s: %s\n", safeName(c.Column), c.Actual, c.Expected, mark))
		}
	}

	b.WriteString("\n[DUPLICATES]\n")
	if r.Duplicates.Any {
		b.WriteString(fmt.Sprintf("- %d duplicate rows (first at row %d)\n", r.Duplicates.Count, r.Duplicates.Rows[0]))
	} else {
		b.WriteString("- none\n")
	}

	if len(r.Negatives) > 0 {
		b.WriteString("\n[NEGATIVE VALUES]\n")
		for _, n := range r.Negatives {
			if n.Count > 0 {
				b.WriteString(fmt.Sprintf("- %s: %d\n", safeName(n.Column), n.Count))
			}
		}
	}

	if len(r.IQR) > 0 {
		b.WriteString("\n[IQR OUTLIERS]\n")
		for _, d := range r.IQR {
			if !d.Defined {
				b.WriteString(fmt.Sprintf("- %s: undefined (no values)\n", safeName(d.Column)))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %d outside [%.4g, %.4g] (Q1 %.4g, Q3 %.4g)\n",
				safeName(d.Column), d.Count, d.Bounds.Lower, d.Bounds.Upper, d.Bounds.Q1, d.Bounds.Q3))
		}
	}

	if len(r.ZScore.Columns) > 0 {
		b.WriteString("\n[Z-SCORE OUTLIERS]\n")
		b.WriteString(fmt.Sprintf("- |z| > %.2f over %s: %d rows\n", r.ZScore.Threshold, strings.Join(r.ZScore.Columns, ", "), r.ZScore.Flagged))
		if len(r.ZScore.Rows) > 0 {
			idx := make([]string, len(r.ZScore.Rows))
			for i, row := range r.ZScore.Rows {
				idx[i] = strconv.Itoa(row)
			}
			b.WriteString(fmt.Sprintf("- first rows: %s\n", strings.Join(idx, ", ")))
		}
	}

	if len(r.Stats) > 0 {
		b.WriteString("\n[STATISTICS]\n")
		for _, s := range r.Stats {
			b.WriteString(fmt.Sprintf("- %s: n=%d, mean %.4g, std %.4g, min %.4g, median %.4g, max %.4g\n",
				safeName(s.Column), s.Count, float64(s.Mean), float64(s.Std), float64(s.Min), float64(s.Median), float64(s.Max)))
		}
	}

	if len(r.Wind) > 0 {
		b.WriteString("\n[WIND ROSE]\n")
		for _, w := range r.Wind {
			b.WriteString(fmt.Sprintf("- %s: mean %.4g (n=%d)\n", w.Label, w.Mean, w.Count))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString("\n[CORRELATIONS]\n")
		type pr struct {
			A, B string
			R    float64
		}
		var pairs []pr
		n := len(r.Corr.Columns)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				v := float64(r.Corr.Values[i][j])
				if math.IsNaN(v) {
					continue
				}
				pairs = append(pairs, pr{A: r.Corr.Columns[i], B: r.Corr.Columns[j], R: v})
			}
		}
		// strongest first
		sort.Slice(pairs, func(i, j int) bool {
			ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
			if ai == aj {
				return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
			}
			return ai > aj
		})
		if len(pairs) > 10 {
			pairs = pairs[:10]
		}
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		names := make([]string, len(r.Schema))
		seps := make([]string, len(r.Schema))
		for i, f := range r.Schema {
			names[i] = safeName(f.Name)
			seps[i] = "---"
		}
		b.WriteString("| " + strings.Join(names, " | ") + " |\n")
		b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		for _, row := range r.Samples {
			cells := make([]string, len(r.Schema))
			for i := range cells {
				if i < len(row) {
					cells[i] = safeVal(row[i])
				}
			}
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
	if r := []rune(s); len(r) > 80 {
		s = string(r[:77]) + "..."
	}
	return s
}
