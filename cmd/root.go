package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/solarstat-cli/internal/config"
	"github.com/KaramelBytes/solarstat-cli/internal/observability"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	logFormat string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = observability.NopLogger()
)

var rootCmd = &cobra.Command{
	Use:   "solarstat",
	Short: "solarstat: quality checks and cleaning for solar station data",
	Long: `solarstat loads solar irradiance and weather station exports (CSV, TSV, XLSX),
reports missing values, type mismatches, duplicates and outliers, cleans the
data, and can watch a directory to re-run the analysis as files change.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.solarstat/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text | json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: `config set` can still repair the file.
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c

	level, format := cfg.LogLevel, cfg.LogFormat
	if debug {
		level = "debug"
	}
	if logFormat != "" {
		format = logFormat
	}
	logger = observability.NewLogger(level, format, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "config", cfgFile)
}

// requireConfig returns the loaded configuration or an error explaining why
// it is missing.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		return nil, fmt.Errorf("no valid configuration loaded; fix it with 'solarstat config set' or --config")
	}
	return cfg, nil
}
