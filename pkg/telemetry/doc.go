// Package telemetry wires logging, metrics and tracing for keyport.
//
// # Components
//
//   - logging: slog setup with secret redaction
//   - metrics: Prometheus export and schedule metrics
//   - tracing: OpenTelemetry spans around export phases
//   - health: liveness and readiness probes for `keyport serve`
//
// # Usage
//
//	tel, err := telemetry.Setup(&cfg.Telemetry)
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	exp, err := export.New(store, export.Options{
//		Metrics: tel.Metrics,
//		Tracer:  tel.Tracer,
//	})
//
// Key material never reaches the logs: attributes whose key names a secret
// are replaced and PEM private-key blocks are masked in every string value.
package telemetry
