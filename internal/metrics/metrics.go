// Package metrics exposes Prometheus instruments for export runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ExportMetrics groups the export counters. A nil *ExportMetrics is valid
// and records nothing.
type ExportMetrics struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	companies   *prometheus.CounterVec
	invoices    *prometheus.CounterVec
	pages       *prometheus.CounterVec
}

// New registers the instruments on registerer, or on the default registry when nil.
func New(registerer prometheus.Registerer) *ExportMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &ExportMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navexport_runs_total",
			Help: "Export runs by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "navexport_run_duration_seconds",
			Help:    "Wall time of a full export run.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		}),
		companies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navexport_companies_processed_total",
			Help: "Companies processed by outcome.",
		}, []string{"status"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navexport_invoices_exported_total",
			Help: "Invoice digests appended to company datasets.",
		}, []string{"company_code"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "navexport_digest_pages_total",
			Help: "queryInvoiceDigest page requests by outcome.",
		}, []string{"status"}),
	}

	registerer.MustRegister(m.runs, m.runDuration, m.companies, m.invoices, m.pages)
	return m
}

func (m *ExportMetrics) ObserveRun(status string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(seconds)
}

func (m *ExportMetrics) CompanyProcessed(status string) {
	if m == nil {
		return
	}
	m.companies.WithLabelValues(status).Inc()
}

func (m *ExportMetrics) InvoicesExported(companyCode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invoices.WithLabelValues(companyCode).Add(float64(n))
}

func (m *ExportMetrics) PageRequested(status string) {
	if m == nil {
		return
	}
	m.pages.WithLabelValues(status).Inc()
}
