package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/keyport/pkg/cli"
	"mercator-hq/keyport/pkg/config"
	"mercator-hq/keyport/pkg/credential"
	"mercator-hq/keyport/pkg/credential/export"
	"mercator-hq/keyport/pkg/credential/schedule"
	"mercator-hq/keyport/pkg/credential/storage"
	"mercator-hq/keyport/pkg/telemetry/health"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	listenAddress string
	runNow        bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled exports",
	Long: `Run exports on the configured cron schedule until interrupted.

Each run exports with the configured export defaults and moves the archive
into export.output_dir. Only the newest schedule.keep_last archives are
kept there; older archives and their staging directories are removed.
Stored credentials are never deleted.

The metrics listener serves /metrics, /healthz and /readyz.

Examples:
  # Export every night at 03:00
  KEYPORT_SCHEDULE_CRON="0 3 * * *" keyport serve --config keyport.yaml

  # Export once on startup, then on schedule
  keyport serve --run-now`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override metrics listen address")
	serveCmd.Flags().BoolVar(&serveFlags.runNow, "run-now", false, "run one export immediately on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()
	if cfg.Schedule.Cron == "" {
		return cli.NewConfigError("schedule.cron", "a schedule is required to serve")
	}
	if serveFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = serveFlags.listenAddress
	}

	mode, err := credential.ParseMode(cfg.Export.Mode)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer store.Close()

	scope := credential.Scope{Workspace: cfg.Export.Workspace}
	run := func(ctx context.Context) (*export.Result, error) {
		exp, err := export.New(store, export.Options{
			Mode:          mode,
			Scope:         scope,
			Root:          cfg.Export.StagingRoot,
			RemoveStaging: cfg.Export.RemoveStaging,
			Metrics:       tel.Metrics,
			Tracer:        tel.Tracer,
		})
		if err != nil {
			return nil, err
		}
		return exp.Export(ctx)
	}

	scheduler := schedule.NewScheduler(schedule.Config{
		Cron:      cfg.Schedule.Cron,
		OutputDir: cfg.Export.OutputDir,
		KeepLast:  cfg.Schedule.KeepLast,
	}, run, tel.Metrics)

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("storage", func(ctx context.Context) error {
		_, err := store.Count(ctx, mode, scope)
		return err
	})
	checker.RegisterCheck("last_export", scheduler.Check)
	if dir := cfg.Export.OutputDir; dir != "" {
		checker.RegisterCheck("output_dir", func(context.Context) error {
			return checkDir(dir)
		})
	}

	mux := http.NewServeMux()
	checker.Register(mux)
	if cfg.Telemetry.Metrics.Enabled {
		mux.Handle(cfg.Telemetry.Metrics.Path, tel.Metrics.Handler())
	}
	srv := &http.Server{
		Addr:              cfg.Telemetry.Metrics.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "address", srv.Addr, "metrics", cfg.Telemetry.Metrics.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	if err := scheduler.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer scheduler.Stop()

	if serveFlags.runNow {
		go scheduler.RunOnce(ctx)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exporting on schedule %q\n", cfg.Schedule.Cron)
	if next := scheduler.NextRun(); next != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Next export at %s\n", next.Format(time.RFC3339))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Health endpoint: http://%s/healthz\n", srv.Addr)
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return cli.NewCommandError("serve", err)
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		return cli.NewCommandError("serve", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// checkDir reports an error unless dir is an existing directory. A missing
// directory is fine; the first run creates it.
func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
