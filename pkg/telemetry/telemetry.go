package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/keyport/pkg/config"
	"mercator-hq/keyport/pkg/telemetry/logging"
	"mercator-hq/keyport/pkg/telemetry/metrics"
	"mercator-hq/keyport/pkg/telemetry/tracing"
)

// Telemetry bundles the process logger, metrics collector and tracer.
type Telemetry struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Tracer  *tracing.Tracer
}

// Setup builds every telemetry component from cfg and installs the logger as
// the slog default.
func Setup(cfg *config.TelemetryConfig) (*Telemetry, error) {
	logger, err := logging.Setup(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	tracer, err := tracing.New(&cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	return &Telemetry{
		Logger:  logger,
		Metrics: metrics.NewCollector(&cfg.Metrics, nil),
		Tracer:  tracer,
	}, nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.Tracer.Shutdown(ctx)
}
