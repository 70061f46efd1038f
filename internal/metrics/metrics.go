package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pdfx",
			Name:      "pages_loaded_total",
			Help:      "Total source pages rasterized into page caches",
		},
	)

	operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfx",
			Name:      "operations_total",
			Help:      "Page model operations by operation and result (ok, error kind)",
		},
		[]string{"op", "result"},
	)

	exportPages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfx",
			Name:      "export_pages_total",
			Help:      "Exported pages by render path",
		},
		[]string{"path"},
	)

	exportLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdfx",
			Name:      "export_duration_seconds",
			Help:      "Duration of whole document exports",
			Buckets:   prometheus.DefBuckets,
		},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pdfx",
			Name:      "sessions_active",
			Help:      "Open editing sessions",
		},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(pagesLoaded, operations, exportPages, exportLatency, sessionsActive)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func AddPagesLoaded(n int) { pagesLoaded.Add(float64(n)) }

// ObserveOperation records one page model operation; result is "ok" or the error kind.
func ObserveOperation(op, result string) { operations.WithLabelValues(op, result).Inc() }

func IncExportPage(path string) { exportPages.WithLabelValues(path).Inc() }

func ObserveExport(dur time.Duration) { exportLatency.Observe(dur.Seconds()) }

func SessionOpened() { sessionsActive.Inc() }
func SessionClosed() { sessionsActive.Dec() }
