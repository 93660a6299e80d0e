package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/solarstat-cli/internal/observability"
	"github.com/KaramelBytes/solarstat-cli/internal/report"
	"github.com/KaramelBytes/solarstat-cli/internal/utils"
	"github.com/KaramelBytes/solarstat-cli/internal/watch"
)

var (
	watchLoad     loadFlags
	watchSchedule string
	watchAddr     string
	watchDebounce time.Duration
	watchSave     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <file|dir>",
	Short: "Re-run the analysis when data files change or on a schedule",
	Long: `Watches a data file, or every supported file in a directory, and re-runs the
analysis whenever one is written. With --schedule the analysis also runs on a
cron spec ("@every 15m", "0 0 * * * *"). Health, readiness, the latest report
and Prometheus metrics are served over HTTP.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		opt, err := reportOptions(c)
		if err != nil {
			return err
		}
		schedule := c.WatchSchedule
		if cmd.Flags().Changed("schedule") {
			schedule = watchSchedule
		}
		addr := c.MetricsAddr
		if cmd.Flags().Changed("addr") {
			addr = watchAddr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)

		run := func(ctx context.Context, path string) (*report.Report, error) {
			rep, err := analyzeFile(ctx, c, &watchLoad, path, opt)
			if err != nil {
				return nil, err
			}
			if watchSave {
				dest := utils.DerivedPath(path, c.OutputDir, ".report.json")
				b, err := rep.JSON()
				if err != nil {
					return nil, err
				}
				if err := utils.SafeWriteFile(dest, b); err != nil {
					return nil, fmt.Errorf("write report: %w", err)
				}
			}
			return rep, nil
		}
		w := watch.New(watch.Config{Path: args[0], Schedule: schedule, Debounce: watchDebounce}, run, metrics, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var srv *watch.Server
		srvErr := make(chan error, 1)
		if addr != "" {
			srv = watch.NewServer(addr, w, reg, logger)
			ln, err := srv.Listen()
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					srvErr <- fmt.Errorf("http server: %w", err)
					stop()
				}
			}()
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Watching %s (Ctrl+C to stop)\n", args[0])
		runErr := w.Run(ctx)

		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http server shutdown", "error", err)
			}
		}
		if runErr != nil {
			return runErr
		}
		select {
		case err := <-srvErr:
			return err
		default:
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchLoad.register(watchCmd)
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron spec for periodic runs (overrides config)")
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "listen address for /healthz, /readyz, /report and /metrics; empty disables (overrides config)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "wait this long after the last change before re-running")
	watchCmd.Flags().BoolVar(&watchSave, "save", false, "write each report as JSON next to its input (or into output_dir)")
}
