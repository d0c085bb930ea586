// Package metrics records Prometheus metrics for export runs.
//
// A Collector owns its own registry. The export pipeline reports each run
// through Collector.RecordExport; the scheduler reports cron runs and pruned
// archives. Collector.Handler serves the registry over HTTP.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
package metrics
