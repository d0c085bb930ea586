// Package tracing provides OpenTelemetry spans for export runs.
//
// When telemetry.tracing.enabled is false, New returns a noop tracer and
// spans cost next to nothing. When enabled, spans are sampled with a
// parent-based ratio sampler and batched to an OTLP/gRPC collector.
package tracing
