package cmd

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarstat-cli/internal/explore"
)

var (
	descLoad      loadFlags
	descVariables []string
	descCorr      bool
	descStart     string
	descEnd       string
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Print descriptive statistics and correlations of numeric columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		t, err := descLoad.load(c, args[0])
		if err != nil {
			return err
		}

		start, err := parseDate(descStart)
		if err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		end, err := parseEnd(descEnd)
		if err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		if !start.IsZero() || !end.IsZero() {
			if t, err = explore.FilterDateRange(t, c.TimestampColumn, start, end); err != nil {
				return err
			}
		}
		w := cmd.OutOrStdout()
		if lo, hi, ok, err := explore.TimeRange(t, c.TimestampColumn); err == nil && ok {
			fmt.Fprintf(w, "Period: %s to %s (%d rows)\n", lo.Format("2006-01-02 15:04"), hi.Format("2006-01-02 15:04"), t.Rows())
		}

		if len(descVariables) > 0 {
			if t, err = explore.SelectVariables(t, descVariables); err != nil {
				return err
			}
		}

		fmt.Fprintf(w, "%-14s %6s %6s %10s %10s %10s %10s %10s\n", "column", "n", "nulls", "mean", "std", "min", "median", "max")
		for _, s := range explore.Describe(t) {
			fmt.Fprintf(w, "%-14s %6d %6d %10s %10s %10s %10s %10s\n", s.Column, s.Count, s.Nulls,
				num(s.Mean), num(s.Std), num(s.Min), num(s.Median), num(s.Max))
		}

		if descCorr {
			m, err := explore.CorrelationMatrix(t, nil)
			if err != nil {
				return err
			}
			printMatrix(cmd, m)
		}
		return nil
	},
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}

func printMatrix(cmd *cobra.Command, m explore.Matrix) {
	w := cmd.OutOrStdout()
	if len(m.Columns) < 2 {
		return
	}
	fmt.Fprintln(w, "\n[CORRELATIONS]")
	fmt.Fprintf(w, "%-10s %s\n", "", strings.Join(pad(m.Columns), " "))
	for i, row := range m.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprintf("%8s", num(v))
		}
		fmt.Fprintf(w, "%-10s %s\n", trunc(m.Columns[i]), strings.Join(cells, " "))
	}
}

func pad(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = fmt.Sprintf("%8s", trunc(n))
	}
	return out
}

// trunc shortens a column name to eight characters for the matrix header.
func trunc(s string) string {
	if r := []rune(s); len(r) > 8 {
		return string(r[:8])
	}
	return s
}

func init() {
	rootCmd.AddCommand(describeCmd)
	descLoad.register(describeCmd)
	describeCmd.Flags().StringSliceVar(&descVariables, "variables", nil, "only describe these columns")
	describeCmd.Flags().BoolVar(&descCorr, "correlations", false, "print the Pearson correlation matrix")
	describeCmd.Flags().StringVar(&descStart, "start", "", "only rows at or after this time (YYYY-MM-DD or RFC3339)")
	describeCmd.Flags().StringVar(&descEnd, "end", "", "only rows at or before this time (YYYY-MM-DD or RFC3339)")
}
