package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"mercator-hq/keyport/pkg/config"
)

func TestSetup(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	cfg := config.NewDefaultConfig().Telemetry
	tel, err := Setup(&cfg)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if tel.Logger == nil || tel.Metrics == nil || tel.Tracer == nil {
		t.Fatalf("Setup() returned incomplete telemetry: %+v", tel)
	}
	if tel.Tracer.Enabled() {
		t.Error("tracing should be disabled by default")
	}
	if slog.Default() != tel.Logger {
		t.Error("Setup() should install the logger as the slog default")
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	cfg := config.NewDefaultConfig().Telemetry
	cfg.Logging.Level = "verbose"

	if _, err := Setup(&cfg); err == nil {
		t.Error("expected error for invalid log level")
	}
}
