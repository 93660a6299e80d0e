package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "solarstat"

// Metrics holds the Prometheus collectors describing the latest analysis runs.
type Metrics struct {
	AnalysesTotal    prometheus.Counter
	AnalysisErrors   prometheus.Counter
	RowsLoaded       prometheus.Gauge
	DuplicateRows    prometheus.Gauge
	AnalysisDuration prometheus.Histogram

	MissingPercent *prometheus.GaugeVec // labels: file, column
	Outliers       *prometheus.GaugeVec // labels: file, column, method={iqr,zscore}
	NegativeValues *prometheus.GaugeVec // labels: file, column
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      h("Total analysis runs started."),
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_errors_total",
			Help:      h("Total analysis runs that failed."),
		}),
		RowsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      h("Rows in the most recently analysed dataset."),
		}),
		DuplicateRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_rows",
			Help:      h("Rows repeating an earlier row in the latest dataset."),
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      h("Duration of a load and analyse cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		MissingPercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_percent",
			Help:      h("Percentage of missing cells per column."),
		}, []string{"file", "column"}),
		Outliers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outliers",
			Help:      h("Outlier count per column and detection method."),
		}, []string{"file", "column", "method"}),
		NegativeValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "negative_values",
			Help:      h("Strictly negative values per numeric column."),
		}, []string{"file", "column"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.AnalysesTotal,
		m.AnalysisErrors,
		m.RowsLoaded,
		m.DuplicateRows,
		m.AnalysisDuration,
		m.MissingPercent,
		m.Outliers,
		m.NegativeValues,
	}
}

// ForgetFile drops every per-column series recorded for file, so columns that
// disappear from a dataset do not keep reporting stale values.
func (m *Metrics) ForgetFile(file string) {
	l := prometheus.Labels{"file": file}
	m.MissingPercent.DeletePartialMatch(l)
	m.Outliers.DeletePartialMatch(l)
	m.NegativeValues.DeletePartialMatch(l)
}

// NewMetrics creates the metrics and registers them with reg. A nil reg means
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := newMetrics(true)
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
