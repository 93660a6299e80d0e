package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarstat-cli/internal/wind"
)

var (
	windLoad      loadFlags
	windDirection string
	windTarget    string
)

var windCmd = &cobra.Command{
	Use:   "wind <file>",
	Short: "Average a variable per compass sector of wind direction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		t, err := windLoad.load(c, args[0])
		if err != nil {
			return err
		}
		dir, target := c.WindDirectionColumn, c.WindSpeedColumn
		if windDirection != "" {
			dir = windDirection
		}
		if windTarget != "" {
			target = windTarget
		}
		rose, err := wind.Rose(t, dir, target)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "[WIND ROSE] mean %s by %s sector\n", target, dir)
		if len(rose) == 0 {
			fmt.Fprintln(w, "- no rows with both a direction and a value")
			return nil
		}
		peak := 0.0
		for _, b := range rose {
			if b.Mean > peak {
				peak = b.Mean
			}
		}
		for _, b := range rose {
			bar := ""
			if peak > 0 && b.Mean > 0 {
				bar = strings.Repeat("█", int(b.Mean/peak*30+0.5))
			}
			fmt.Fprintf(w, "%-2s %8.3f (n=%d) %s\n", b.Label, b.Mean, b.Count, bar)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(windCmd)
	windLoad.register(windCmd)
	windCmd.Flags().StringVar(&windDirection, "direction", "", "wind direction column in degrees (default from config)")
	windCmd.Flags().StringVar(&windTarget, "target", "", "numeric column to average (default: wind speed column)")
}
