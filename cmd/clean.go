package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarstat-cli/internal/clean"
	"github.com/KaramelBytes/solarstat-cli/internal/loader"
	"github.com/KaramelBytes/solarstat-cli/internal/utils"
)

var (
	clnLoad     loadFlags
	clnOutput   string
	clnCritical []string
	clnClamp    []string
	clnFillText string
	clnNoTreat  bool
	clnForce    bool
	clnSummary  string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Clean a data file and write the result as CSV",
	Long: `Drops duplicate rows and rows missing critical values, fills remaining gaps
(column mean for numbers, a placeholder for text), replaces IQR outliers with
the column mean and clamps negative irradiance to zero.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		path := args[0]
		t, err := clnLoad.load(c, path)
		if err != nil {
			return err
		}

		opts := clean.Options{
			Critical:      c.CriticalColumns,
			FillText:      clnFillText,
			TreatOutliers: !clnNoTreat,
			ClampColumns:  c.ClampColumns,
			Logger:        logger,
		}
		if cmd.Flags().Changed("critical") {
			opts.Critical = clnCritical
		}
		if cmd.Flags().Changed("clamp") {
			opts.ClampColumns = clnClamp
		}
		// Clamp only what the file actually has.
		var clamp []string
		for _, name := range opts.ClampColumns {
			if t.Has(name) {
				clamp = append(clamp, name)
			} else {
				logger.Warn("clamp column not found; skipping", "column", name)
			}
		}
		opts.ClampColumns = clamp

		out, sum, err := clean.Clean(cmd.Context(), t, opts)
		if err != nil {
			return err
		}

		dest := clnOutput
		if dest == "" {
			dest = utils.DerivedPath(path, c.OutputDir, "_clean.csv")
		}
		if filepath.Clean(dest) == filepath.Clean(path) {
			return fmt.Errorf("refusing to overwrite the input file %s", path)
		}
		if fileExists(dest) && !clnForce {
			return fmt.Errorf("output %s already exists (use --force to overwrite)", dest)
		}
		if err := loader.WriteCSVFile(dest, out); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✓ Cleaned %s: %d rows in, %d rows out\n", filepath.Base(path), sum.RowsIn, sum.RowsOut)
		fmt.Fprintf(w, "  duplicates dropped: %d, rows missing critical values: %d\n", sum.DuplicatesDropped, sum.MissingDropped)
		fmt.Fprintf(w, "  filled: %d columns, treated: %d columns, clamped: %d columns\n", nonZero(sum.Filled), nonZero(sum.Treated), nonZero(sum.Clamped))
		fmt.Fprintf(w, "✓ Wrote cleaned data to %s\n", dest)

		if clnSummary != "" {
			b, err := utils.PrettyJSON(sum)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(clnSummary, b); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}
		return nil
	},
}

func nonZero(m map[string]int) int {
	n := 0
	for _, v := range m {
		if v > 0 {
			n++
		}
	}
	return n
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clnLoad.register(cleanCmd)
	cleanCmd.Flags().StringVarP(&clnOutput, "output", "o", "", "path of the cleaned CSV (default <input>_clean.csv)")
	cleanCmd.Flags().StringSliceVar(&clnCritical, "critical", nil, "drop rows missing any of these columns (overrides config)")
	cleanCmd.Flags().StringSliceVar(&clnClamp, "clamp", nil, "clamp negative values to zero in these columns (overrides config)")
	cleanCmd.Flags().StringVar(&clnFillText, "fill-text", clean.DefaultFillText, "placeholder for missing text cells")
	cleanCmd.Flags().BoolVar(&clnNoTreat, "no-treat", false, "skip IQR outlier treatment")
	cleanCmd.Flags().BoolVar(&clnForce, "force", false, "overwrite an existing output file")
	cleanCmd.Flags().StringVar(&clnSummary, "summary", "", "optional path to write the cleaning summary as JSON")
}
