package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarstat-cli/internal/utils"
)

var (
	anaLoad       loadFlags
	anaOutputPath string
	anaOutputDir  bool
	anaFormat     string
	anaVariables  []string
	anaZThreshold float64
	anaSampleRows int
	anaStart      string
	anaEnd        string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run every quality check on a data file and print a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		path := args[0]

		opt, err := reportOptions(c)
		if err != nil {
			return err
		}
		if len(anaVariables) > 0 {
			opt.Variables = anaVariables
		}
		if anaZThreshold > 0 {
			opt.ZThreshold = anaZThreshold
		}
		if cmd.Flags().Changed("sample-rows") {
			opt.SampleRows = anaSampleRows
		}
		if opt.Start, err = parseDate(anaStart); err != nil {
			return fmt.Errorf("--start: %w", err)
		}
		if opt.End, err = parseEnd(anaEnd); err != nil {
			return fmt.Errorf("--end: %w", err)
		}
		if !opt.Start.IsZero() && !opt.End.IsZero() && opt.End.Before(opt.Start) {
			return fmt.Errorf("--end %s is before --start %s", anaEnd, anaStart)
		}

		rep, err := analyzeFile(cmd.Context(), c, &anaLoad, path, opt)
		if err != nil {
			return err
		}

		var out []byte
		ext := ".report.md"
		switch strings.ToLower(anaFormat) {
		case "markdown", "md":
			out = []byte(rep.Markdown())
		case "json":
			if out, err = rep.JSON(); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			out = append(out, '\n')
			ext = ".report.json"
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", anaFormat)
		}

		dest := anaOutputPath
		if dest == "" && anaOutputDir {
			dest = utils.DerivedPath(path, c.OutputDir, ext)
		}
		return writeOutput(cmd, dest, out, "report")
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaLoad.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
	analyzeCmd.Flags().BoolVar(&anaOutputDir, "save", false, "write the report next to the input (or into output_dir)")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "markdown", "report format: markdown | json")
	analyzeCmd.Flags().StringSliceVar(&anaVariables, "variables", nil, "columns for z-scores and correlations (overrides config)")
	analyzeCmd.Flags().Float64Var(&anaZThreshold, "z-threshold", 0, "flag rows with |z| above this (overrides config)")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of sample rows to include")
	analyzeCmd.Flags().StringVar(&anaStart, "start", "", "only rows at or after this time (YYYY-MM-DD or RFC3339)")
	analyzeCmd.Flags().StringVar(&anaEnd, "end", "", "only rows at or before this time (YYYY-MM-DD or RFC3339)")
}
