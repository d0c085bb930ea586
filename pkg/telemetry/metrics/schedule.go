package metrics

import (
	"mercator-hq/keyport/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ScheduleMetrics tracks scheduled exports and archive retention.
//
// Metrics:
//   - keyport_scheduled_runs_total: cron-triggered runs by result
//   - keyport_archives_pruned_total: archives removed by retention
type ScheduleMetrics struct {
	runsTotal   *prometheus.CounterVec
	prunedTotal prometheus.Counter
}

// NewScheduleMetrics creates and registers schedule metrics with the provided registry.
func NewScheduleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ScheduleMetrics {
	sm := &ScheduleMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "scheduled_runs_total",
				Help:      "Total number of scheduled export runs",
			},
			[]string{"result"},
		),
		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "archives_pruned_total",
				Help:      "Total number of export archives removed by retention",
			},
		),
	}

	registry.MustRegister(sm.runsTotal, sm.prunedTotal)

	return sm
}

// RecordRun records one scheduled run.
func (sm *ScheduleMetrics) RecordRun(success bool) {
	result := StatusSuccess
	if !success {
		result = StatusError
	}
	sm.runsTotal.WithLabelValues(result).Inc()
}

// RecordPruned adds count removed archives.
func (sm *ScheduleMetrics) RecordPruned(count int) {
	if count > 0 {
		sm.prunedTotal.Add(float64(count))
	}
}
