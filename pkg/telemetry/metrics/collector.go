package metrics

import (
	"time"

	"mercator-hq/keyport/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Export status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusEmpty   = "empty"
)

// Collector owns the Prometheus registry and every keyport metric.
// A disabled collector accepts every call and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exportMetrics   *ExportMetrics
	scheduleMetrics *ScheduleMetrics
}

// NewCollector creates a collector with the specified configuration and
// registry. If registry is nil a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "keyport"}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		exportMetrics:   NewExportMetrics(cfg, registry),
		scheduleMetrics: NewScheduleMetrics(cfg, registry),
	}
}

// RecordExport records a finished export run.
//
// Parameters:
//   - mode: export mode ("core", "login")
//   - status: StatusSuccess, StatusError or StatusEmpty
//   - duration: wall time of the run
//   - rows: manifest rows written
//   - keyFiles: key files extracted
//   - archiveBytes: size of the produced archive, 0 when none was produced
func (c *Collector) RecordExport(mode, status string, duration time.Duration, rows, keyFiles int, archiveBytes int64) {
	if !c.config.Enabled {
		return
	}

	c.exportMetrics.RecordExport(mode, status, duration, rows, keyFiles, archiveBytes)
}

// RecordScheduledRun records the outcome of a cron-triggered export.
func (c *Collector) RecordScheduledRun(success bool) {
	if !c.config.Enabled {
		return
	}

	c.scheduleMetrics.RecordRun(success)
}

// RecordPruned records archives removed by retention.
func (c *Collector) RecordPruned(count int) {
	if !c.config.Enabled {
		return
	}

	c.scheduleMetrics.RecordPruned(count)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
