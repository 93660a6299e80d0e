package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/solarstat-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set solarstat configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(w, "No config loaded")
			return nil
		}
		for _, key := range cfgpkg.Keys {
			fmt.Fprintf(w, "%s: %s\n", key, showValue(cfg, key))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. List values are comma separated, e.g.
  solarstat config set variables GHI,DNI,DHI,Tamb
  solarstat config set expected_types Timestamp=timestamp,GHI=numeric`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := cfg
		if c == nil {
			loaded, err := cfgpkg.Load(cfgFile)
			if err != nil {
				// Start from defaults so a broken file can be repaired.
				loaded, err = cfgpkg.Defaults()
				if err != nil {
					return err
				}
			}
			c = loaded
		}
		updated := *c
		if err := setValue(&updated, key, val); err != nil {
			return err
		}
		if err := updated.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&updated, cfgFile); err != nil {
			return err
		}
		cfg = &updated
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func showValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "timestamp_column":
		return c.TimestampColumn
	case "wind_direction_column":
		return c.WindDirectionColumn
	case "wind_speed_column":
		return c.WindSpeedColumn
	case "variables":
		return strings.Join(c.Variables, ",")
	case "critical_columns":
		return strings.Join(c.CriticalColumns, ",")
	case "clamp_columns":
		return strings.Join(c.ClampColumns, ",")
	case "expected_types":
		return strings.Join(c.ExpectedTypes, ",")
	case "z_threshold":
		return strconv.FormatFloat(c.ZThreshold, 'f', -1, 64)
	case "delimiter":
		return c.Delimiter
	case "max_rows":
		return strconv.Itoa(c.MaxRows)
	case "sample_rows":
		return strconv.Itoa(c.SampleRows)
	case "log_level":
		return c.LogLevel
	case "log_format":
		return c.LogFormat
	case "metrics_addr":
		return c.MetricsAddr
	case "watch_schedule":
		return c.WatchSchedule
	case "output_dir":
		return c.OutputDir
	}
	return ""
}

func setValue(c *cfgpkg.Global, key, val string) error {
	list := func() []string {
		var out []string
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	switch key {
	case "timestamp_column":
		c.TimestampColumn = val
	case "wind_direction_column":
		c.WindDirectionColumn = val
	case "wind_speed_column":
		c.WindSpeedColumn = val
	case "variables":
		c.Variables = list()
	case "critical_columns":
		c.CriticalColumns = list()
	case "clamp_columns":
		c.ClampColumns = list()
	case "expected_types":
		c.ExpectedTypes = list()
	case "z_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for z_threshold: %w", err)
		}
		c.ZThreshold = f
	case "delimiter":
		c.Delimiter = val
	case "max_rows":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for max_rows: %w", err)
		}
		c.MaxRows = i
	case "sample_rows":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for sample_rows: %w", err)
		}
		c.SampleRows = i
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	case "metrics_addr":
		c.MetricsAddr = val
	case "watch_schedule":
		c.WatchSchedule = val
	case "output_dir":
		c.OutputDir = val
	default:
		return fmt.Errorf("unknown key: %s (valid keys: %s)", key, strings.Join(cfgpkg.Keys, ", "))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
