package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/solarstat-cli/internal/config"
	"github.com/KaramelBytes/solarstat-cli/internal/loader"
	"github.com/KaramelBytes/solarstat-cli/internal/report"
	"github.com/KaramelBytes/solarstat-cli/internal/table"
	"github.com/KaramelBytes/solarstat-cli/internal/utils"
)

// loadFlags are the input options shared by every command that reads a file.
type loadFlags struct {
	delimiter  string
	sheet      string
	sheetIndex int
	maxRows    int
	types      []string
}

func (f *loadFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab' (sniffed if omitted)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet not provided)")
	cmd.Flags().IntVar(&f.maxRows, "max-rows", 0, "maximum rows to read (0 = config value, unlimited by default)")
	cmd.Flags().StringSliceVar(&f.types, "types", nil, "force column kinds, e.g. Timestamp=timestamp,GHI=numeric")
}

// options merges the flags over the configuration.
func (f *loadFlags) options(c *cfgpkg.Global) (loader.Options, error) {
	opt := loader.Options{
		Delimiter:  c.DelimiterRune(),
		Sheet:      f.sheet,
		SheetIndex: f.sheetIndex,
		MaxRows:    c.MaxRows,
	}
	if f.delimiter != "" {
		d, err := cfgpkg.ParseDelimiter(f.delimiter)
		if err != nil {
			return opt, fmt.Errorf("--delimiter: %w", err)
		}
		opt.Delimiter = d
	}
	if f.maxRows > 0 {
		opt.MaxRows = f.maxRows
	}
	if len(f.types) > 0 {
		types, err := cfgpkg.ParseTypes(f.types)
		if err != nil {
			return opt, fmt.Errorf("--types: %w", err)
		}
		if opt.Types, err = table.ParseSchema(types, nil); err != nil {
			return opt, fmt.Errorf("--types: %w", err)
		}
	}
	return opt, nil
}

func (f *loadFlags) load(c *cfgpkg.Global, path string) (*table.Table, error) {
	opt, err := f.options(c)
	if err != nil {
		return nil, err
	}
	t, err := loader.Load(path, opt)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded table", "path", path, "rows", t.Rows(), "columns", t.NumCols())
	return t, nil
}

// reportOptions maps the configuration onto report options.
func reportOptions(c *cfgpkg.Global) (report.Options, error) {
	opt := report.DefaultOptions()
	opt.TimestampColumn = c.TimestampColumn
	opt.WindDirectionColumn = c.WindDirectionColumn
	opt.WindSpeedColumn = c.WindSpeedColumn
	opt.Variables = c.Variables
	opt.ZThreshold = c.ZThreshold
	opt.SampleRows = c.SampleRows
	expected, err := c.Schema()
	if err != nil {
		return opt, err
	}
	opt.Expected = expected
	return opt, nil
}

// analyzeFile loads path and builds its report.
func analyzeFile(_ context.Context, c *cfgpkg.Global, lf *loadFlags, path string, opt report.Options) (*report.Report, error) {
	t, err := lf.load(c, path)
	if err != nil {
		return nil, err
	}
	rep, err := report.Build(t, filepath.Base(path), opt)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}
	return rep, nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, data []byte, what string) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", what, path)
	return nil
}

// dateLayouts are accepted by --start and --end.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or RFC3339)", s)
}

// parseEnd treats a bare date as the whole day.
func parseEnd(s string) (time.Time, error) {
	ts, err := parseDate(s)
	if err != nil || ts.IsZero() {
		return ts, err
	}
	if _, derr := time.Parse("2006-01-02", strings.TrimSpace(s)); derr == nil {
		ts = ts.Add(24*time.Hour - time.Nanosecond)
	}
	return ts, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
