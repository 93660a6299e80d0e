package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/solarstat-cli/internal/observability"
	"github.com/KaramelBytes/solarstat-cli/internal/quality"
	"github.com/KaramelBytes/solarstat-cli/internal/report"
)

func sampleReport() *report.Report {
	return &report.Report{
		ID:         "r-1",
		Source:     "benin.csv",
		Rows:       4,
		Duplicates: quality.DuplicateReport{Any: true, Count: 1, Rows: []int{3}},
		Missing:    []quality.MissingSummary{{Column: "GHI", Count: 1, Percent: 25}},
		Negatives:  []quality.NegativeCount{{Column: "GHI", Count: 2}},
		IQR:        []report.IQRSummary{{Column: "WS", Defined: true, Count: 1}},
		ZScore:     report.ZSummary{Threshold: 3, Flagged: 0},
	}
}

func okRun(rep *report.Report) RunFunc {
	return func(context.Context, string) (*report.Report, error) { return rep, nil }
}

func TestRunOnce_RecordsMetrics(t *testing.T) {
	m := observability.NewMetricsForTesting()
	w := New(Config{Path: "benin.csv"}, okRun(sampleReport()), m, nil)

	require.NoError(t, w.RunOnce(context.Background(), "benin.csv"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.AnalysisErrors))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsLoaded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DuplicateRows))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.MissingPercent.WithLabelValues("benin.csv", "GHI")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Outliers.WithLabelValues("benin.csv", "WS", "iqr")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NegativeValues.WithLabelValues("benin.csv", "GHI")))
	assert.Equal(t, "r-1", w.Last().ID)
	assert.NoError(t, w.CheckReadiness(context.Background()))
}

func TestRunOnce_MetricsArePerFile(t *testing.T) {
	m := observability.NewMetricsForTesting()
	reports := map[string]*report.Report{
		"benin.csv": sampleReport(),
		"togo.csv": {
			Rows:    2,
			Missing: []quality.MissingSummary{{Column: "GHI", Count: 0, Percent: 0}},
		},
	}
	run := func(_ context.Context, path string) (*report.Report, error) {
		return reports[filepath.Base(path)], nil
	}
	w := New(Config{Path: "."}, run, m, nil)

	require.NoError(t, w.RunOnce(context.Background(), "data/benin.csv"))
	require.NoError(t, w.RunOnce(context.Background(), "data/togo.csv"))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.MissingPercent.WithLabelValues("benin.csv", "GHI")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MissingPercent.WithLabelValues("togo.csv", "GHI")))

	// A re-run without the negative GHI values drops that series.
	reports["benin.csv"] = &report.Report{Rows: 4}
	require.NoError(t, w.RunOnce(context.Background(), "data/benin.csv"))
	assert.Equal(t, 0, testutil.CollectAndCount(m.NegativeValues))
	assert.Equal(t, 1, testutil.CollectAndCount(m.MissingPercent))
}

func TestRunOnce_Failure(t *testing.T) {
	m := observability.NewMetricsForTesting()
	boom := errors.New("boom")
	w := New(Config{}, func(context.Context, string) (*report.Report, error) { return nil, boom }, m, nil)

	err := w.RunOnce(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisErrors))
	assert.Nil(t, w.Last())

	err = w.CheckReadiness(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "boom")
}

func TestServer_Endpoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	w := New(Config{}, okRun(sampleReport()), m, nil)
	srv := NewServer(":0", w, reg, observability.NopLogger())

	tests := []struct {
		name   string
		path   string
		before func()
		status int
		body   string
	}{
		{name: "health", path: "/healthz", status: http.StatusOK, body: "healthy"},
		{name: "not ready", path: "/readyz", status: http.StatusServiceUnavailable, body: "not ready"},
		{name: "no report", path: "/report", status: http.StatusNotFound, body: "no report yet"},
		{
			name: "ready after run",
			path: "/readyz",
			before: func() {
				require.NoError(t, w.RunOnce(context.Background(), "benin.csv"))
			},
			status: http.StatusOK,
			body:   `"ready"`,
		},
		{name: "report", path: "/report", status: http.StatusOK, body: `"source":"benin.csv"`},
		{name: "metrics", path: "/metrics", status: http.StatusOK, body: "solarstat_rows_loaded 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.before != nil {
				tt.before()
			}
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/report", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ReportIsJSON(t *testing.T) {
	w := New(Config{}, okRun(sampleReport()), nil, nil)
	require.NoError(t, w.RunOnce(context.Background(), "x.csv"))
	srv := NewServer(":0", w, prometheus.NewRegistry(), observability.NopLogger())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r-1", got["id"])
}

func TestRun_RerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "station.csv")
	require.NoError(t, os.WriteFile(data, []byte("GHI\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	var calls atomic.Int32
	run := func(_ context.Context, path string) (*report.Report, error) {
		assert.Equal(t, data, path)
		calls.Add(1)
		return sampleReport(), nil
	}
	w := New(Config{Path: dir, Debounce: 20 * time.Millisecond}, run, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(data, []byte("GHI\n1\n2\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_AnalysesEveryFileInLargeDirectory(t *testing.T) {
	dir := t.TempDir()
	const files = 25
	for i := 0; i < files; i++ {
		name := filepath.Join(dir, fmt.Sprintf("station-%02d.csv", i))
		require.NoError(t, os.WriteFile(name, []byte("GHI\n1\n"), 0o644))
	}

	var mu sync.Mutex
	seen := map[string]int{}
	run := func(_ context.Context, path string) (*report.Report, error) {
		mu.Lock()
		seen[path]++
		mu.Unlock()
		return sampleReport(), nil
	}
	w := New(Config{Path: dir, Schedule: "@every 1s", Debounce: time.Hour}, run, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Startup sweep, then at least one scheduled sweep, each covering every file.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		if len(seen) != files {
			return false
		}
		for _, n := range seen {
			if n < 2 {
				return false
			}
		}
		return true
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRun_InvalidSchedule(t *testing.T) {
	w := New(Config{Path: t.TempDir(), Schedule: "not a schedule"}, okRun(sampleReport()), nil, nil)
	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestRun_MissingPath(t *testing.T) {
	w := New(Config{Path: filepath.Join(t.TempDir(), "nope.csv")}, okRun(sampleReport()), nil, nil)
	assert.ErrorIs(t, w.Run(context.Background()), os.ErrNotExist)
}
