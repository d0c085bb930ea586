package metrics

import (
	"time"

	"mercator-hq/keyport/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ExportMetrics tracks export pipeline runs.
//
// Metrics:
//   - keyport_exports_total: export runs by mode and status
//   - keyport_export_rows_total: manifest rows written by mode
//   - keyport_export_key_files_total: SSH key files extracted
//   - keyport_export_duration_seconds: export duration by mode
//   - keyport_export_archive_bytes: size of produced archives
type ExportMetrics struct {
	exportsTotal *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	keyFiles     prometheus.Counter
	duration     *prometheus.HistogramVec
	archiveBytes prometheus.Histogram
}

// NewExportMetrics creates and registers export metrics with the provided registry.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "exports_total",
				Help:      "Total number of export runs",
			},
			[]string{"mode", "status"},
		),

		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "export_rows_total",
				Help:      "Total number of manifest rows written",
			},
			[]string{"mode"},
		),

		keyFiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "export_key_files_total",
				Help:      "Total number of SSH private key files extracted",
			},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "export_duration_seconds",
				Help:      "Duration of export runs in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"mode"},
		),

		archiveBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "export_archive_bytes",
				Help:      "Size of produced export archives in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to 256MB
			},
		),
	}

	registry.MustRegister(
		em.exportsTotal,
		em.rowsTotal,
		em.keyFiles,
		em.duration,
		em.archiveBytes,
	)

	return em
}

// RecordExport records one export run.
func (em *ExportMetrics) RecordExport(mode, status string, duration time.Duration, rows, keyFiles int, archiveBytes int64) {
	em.exportsTotal.WithLabelValues(mode, status).Inc()
	em.duration.WithLabelValues(mode).Observe(duration.Seconds())

	if rows > 0 {
		em.rowsTotal.WithLabelValues(mode).Add(float64(rows))
	}
	if keyFiles > 0 {
		em.keyFiles.Add(float64(keyFiles))
	}
	if archiveBytes > 0 {
		em.archiveBytes.Observe(float64(archiveBytes))
	}
}
