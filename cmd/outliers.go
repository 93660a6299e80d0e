package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarstat-cli/internal/loader"
	"github.com/KaramelBytes/solarstat-cli/internal/outlier"
	"github.com/KaramelBytes/solarstat-cli/internal/report"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
	"github.com/KaramelBytes/solarstat-cli/internal/utils"
)

var (
	outLoad      loadFlags
	outMethod    string
	outColumns   []string
	outThreshold float64
	outJSON      bool
	outExport    string
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Detect outliers by IQR fences or z-score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		t, err := outLoad.load(c, args[0])
		if err != nil {
			return err
		}

		var (
			rows   []int
			result any
			lines  []string
		)
		switch strings.ToLower(outMethod) {
		case "iqr":
			dets, err := outlier.DetectIQRColumns(t, outColumns)
			if err != nil {
				return err
			}
			seen := map[int]bool{}
			summaries := make([]report.IQRSummary, 0, len(dets))
			for _, d := range dets {
				summaries = append(summaries, report.NewIQRSummary(d))
				if !d.Defined {
					lines = append(lines, fmt.Sprintf("- %s: undefined (no values)", d.Column))
					continue
				}
				lines = append(lines, fmt.Sprintf("- %s: %d outside [%.4g, %.4g]", d.Column, d.Count(), d.Bounds.Lower, d.Bounds.Upper))
				for _, r := range d.Rows {
					if !seen[r] {
						seen[r] = true
						rows = append(rows, r)
					}
				}
			}
			sort.Ints(rows)
			result = summaries
		case "zscore", "z":
			cols := outColumns
			if len(cols) == 0 {
				cols = presentNumeric(t, c.Variables)
			}
			threshold := c.ZThreshold
			if cmd.Flags().Changed("z-threshold") {
				threshold = outThreshold
			}
			res, err := outlier.FlagZ(t, cols, threshold)
			if err != nil {
				return err
			}
			rows = res.Rows
			lines = append(lines, fmt.Sprintf("- |z| > %.2f over %s: %d rows", res.Threshold, strings.Join(cols, ", "), len(res.Rows)))
			for _, u := range res.Undefined {
				lines = append(lines, fmt.Sprintf("- %s: zero or undefined standard deviation, never flagged", u))
			}
			result = struct {
				Threshold float64  `json:"threshold"`
				Columns   []string `json:"columns"`
				Rows      []int    `json:"rows"`
				Undefined []string `json:"undefined,omitempty"`
			}{res.Threshold, cols, res.Rows, res.Undefined}
		default:
			return fmt.Errorf("unsupported --method: %s (use iqr|zscore)", outMethod)
		}

		if outExport != "" {
			if err := loader.WriteCSVFile(outExport, t.Subset(rows)); err != nil {
				return err
			}
			logger.Info("exported outlier rows", "path", outExport, "rows", len(rows))
		}

		if outJSON {
			b, err := utils.PrettyJSON(result)
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", append(b, '\n'), "outliers")
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "[%s OUTLIERS] %d of %d rows flagged\n", strings.ToUpper(outMethod), len(rows), t.Rows())
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
		return nil
	},
}

// presentNumeric keeps the names that exist in t as numeric columns, falling
// back to every numeric column when none do.
func presentNumeric(t *table.Table, names []string) []string {
	var out []string
	for _, n := range names {
		if c, err := t.Column(n); err == nil && c.Kind == table.Numeric {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return t.NumericNames()
	}
	return out
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outLoad.register(outliersCmd)
	outliersCmd.Flags().StringVarP(&outMethod, "method", "m", "iqr", "detection method: iqr | zscore")
	outliersCmd.Flags().StringSliceVar(&outColumns, "columns", nil, "columns to check (default: every numeric column for iqr, configured variables for zscore)")
	outliersCmd.Flags().Float64Var(&outThreshold, "z-threshold", 0, "z-score threshold (overrides config)")
	outliersCmd.Flags().BoolVar(&outJSON, "json", false, "print results as JSON")
	outliersCmd.Flags().StringVar(&outExport, "export", "", "optional path to write the flagged rows as CSV")
}
