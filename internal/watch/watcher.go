// Package watch re-runs the analysis of a data file whenever it changes or on
// a cron schedule, and publishes the outcome as metrics and over HTTP.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron"

	"github.com/KaramelBytes/solarstat-cli/internal/loader"
	"github.com/KaramelBytes/solarstat-cli/internal/observability"
	"github.com/KaramelBytes/solarstat-cli/internal/report"
)

// ErrNotReady is returned by CheckReadiness before the first successful run.
var ErrNotReady = errors.New("no successful analysis yet")

// RunFunc analyses one file.
type RunFunc func(ctx context.Context, path string) (*report.Report, error)

// Config describes what to watch.
type Config struct {
	// Path is a data file or a directory of data files.
	Path string
	// Schedule is a robfig/cron spec (six fields, seconds first, or a
	// descriptor such as "@every 15m"). Empty disables scheduled runs.
	Schedule string
	// Debounce coalesces bursts of file events. Defaults to 500ms.
	Debounce time.Duration
}

// Watcher serialises analysis runs triggered by file events and the schedule.
type Watcher struct {
	cfg     Config
	run     RunFunc
	metrics *observability.Metrics
	logger  *slog.Logger
	clock   clockwork.Clock

	triggers chan string
	sweeps   chan struct{}

	mu      sync.RWMutex
	last    *report.Report
	lastErr error
}

// New creates a watcher. metrics may be nil.
func New(cfg Config, run RunFunc, metrics *observability.Metrics, logger *slog.Logger) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Watcher{
		cfg:      cfg,
		run:      run,
		metrics:  metrics,
		logger:   logger,
		clock:    clockwork.NewRealClock(),
		triggers: make(chan string, 16),
		sweeps:   make(chan struct{}, 1),
	}
}

// SetClock replaces the clock used for run timestamps and durations.
func (w *Watcher) SetClock(c clockwork.Clock) { w.clock = c }

// Last returns the latest successful report.
func (w *Watcher) Last() *report.Report {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

// CheckReadiness implements ReadinessChecker.
func (w *Watcher) CheckReadiness(_ context.Context) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		if w.lastErr != nil {
			return fmt.Errorf("%w: %v", ErrNotReady, w.lastErr)
		}
		return ErrNotReady
	}
	return nil
}

// RunOnce analyses path and records the outcome.
func (w *Watcher) RunOnce(ctx context.Context, path string) error {
	ctx = observability.WithRunID(ctx, uuid.NewString())
	start := w.clock.Now()
	if w.metrics != nil {
		w.metrics.AnalysesTotal.Inc()
	}
	w.logger.InfoContext(ctx, "analysis started", "path", path)

	rep, err := w.run(ctx, path)
	elapsed := w.clock.Since(start)

	w.mu.Lock()
	w.lastErr = err
	if err == nil {
		w.last = rep
	}
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	}
	if err != nil {
		if w.metrics != nil {
			w.metrics.AnalysisErrors.Inc()
		}
		w.logger.ErrorContext(ctx, "analysis failed", "path", path, "error", err)
		return err
	}
	w.record(filepath.Base(path), rep)
	w.logger.InfoContext(ctx, "analysis finished", "path", path, "rows", rep.Rows, "duration", elapsed)
	return nil
}

func (w *Watcher) record(file string, rep *report.Report) {
	m := w.metrics
	if m == nil {
		return
	}
	m.RowsLoaded.Set(float64(rep.Rows))
	m.DuplicateRows.Set(float64(rep.Duplicates.Count))
	m.ForgetFile(file)
	for _, ms := range rep.Missing {
		m.MissingPercent.WithLabelValues(file, ms.Column).Set(ms.Percent)
	}
	for _, d := range rep.IQR {
		m.Outliers.WithLabelValues(file, d.Column, "iqr").Set(float64(d.Count))
	}
	m.Outliers.WithLabelValues(file, "all", "zscore").Set(float64(rep.ZScore.Flagged))
	for _, n := range rep.Negatives {
		m.NegativeValues.WithLabelValues(file, n.Column).Set(float64(n.Count))
	}
}

// targets lists the files the watcher analyses.
func (w *Watcher) targets() ([]string, error) {
	info, err := os.Stat(w.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watch path: %w", err)
	}
	if !info.IsDir() {
		return []string{filepath.Clean(w.cfg.Path)}, nil
	}
	entries, err := os.ReadDir(w.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read watch dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		p := filepath.Join(w.cfg.Path, e.Name())
		if !e.IsDir() && loader.Supported(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// matches reports whether a file event concerns a watched file.
func (w *Watcher) matches(name string) bool {
	name = filepath.Clean(name)
	info, err := os.Stat(w.cfg.Path)
	if err == nil && info.IsDir() {
		return filepath.Dir(name) == filepath.Clean(w.cfg.Path) && loader.Supported(name)
	}
	return name == filepath.Clean(w.cfg.Path)
}

// Run analyses every target once, then keeps re-running on file changes and
// on the schedule until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := w.cfg.Path
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watch path: %w", err)
	} else if !info.IsDir() {
		// Editors often replace files, so watch the parent directory.
		dir = filepath.Dir(dir)
	}
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if w.cfg.Schedule != "" {
		c := cron.New()
		if err := c.AddFunc(w.cfg.Schedule, w.scheduled); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", w.cfg.Schedule, err)
		}
		c.Start()
		defer c.Stop()
		w.logger.Info("schedule enabled", "spec", w.cfg.Schedule)
	}

	w.runAll(ctx)

	pending := map[string]clockwork.Timer{}
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !w.matches(ev.Name) {
				continue
			}
			name := filepath.Clean(ev.Name)
			if t, ok := pending[name]; ok {
				t.Reset(w.cfg.Debounce)
				continue
			}
			pending[name] = w.clock.AfterFunc(w.cfg.Debounce, func() { w.trigger(ctx, name) })
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		case path := <-w.triggers:
			delete(pending, path)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			_ = w.RunOnce(ctx, path)
		case <-w.sweeps:
			w.runAll(ctx)
		}
	}
}

// scheduled requests a sweep over every target. Ticks that arrive while a
// sweep is already queued are coalesced.
func (w *Watcher) scheduled() {
	select {
	case w.sweeps <- struct{}{}:
	default:
	}
}

// runAll analyses every current target in turn.
func (w *Watcher) runAll(ctx context.Context) {
	paths, err := w.targets()
	if err != nil {
		w.logger.Error("list targets", "error", err)
		return
	}
	for _, p := range paths {
		if ctx.Err() != nil {
			return
		}
		_ = w.RunOnce(ctx, p)
	}
}

// trigger hands a debounced file event to the run loop. It blocks until the
// loop accepts it or ctx ends.
func (w *Watcher) trigger(ctx context.Context, path string) {
	select {
	case w.triggers <- path:
	case <-ctx.Done():
	}
}
