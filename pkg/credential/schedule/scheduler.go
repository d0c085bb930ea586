package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"mercator-hq/keyport/pkg/credential/export"
	"mercator-hq/keyport/pkg/telemetry/logging"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrRunInProgress is reported by RunOnce while another run is in flight.
var ErrRunInProgress = errors.New("a scheduled export is already running")

// ExportFunc runs one export. Exporters are single use, so the scheduler
// asks for a fresh run each time.
type ExportFunc func(ctx context.Context) (*export.Result, error)

// Recorder receives scheduler observations.
type Recorder interface {
	RecordScheduledRun(success bool)
	RecordPruned(count int)
}

type noopRecorder struct{}

func (noopRecorder) RecordScheduledRun(bool) {}
func (noopRecorder) RecordPruned(int)        {}

// Config contains configuration for scheduled exports.
type Config struct {
	// Cron is a standard five-field cron expression.
	// Example: "0 3 * * *" (daily at 3 AM)
	Cron string

	// OutputDir receives finished archives. Empty leaves them beside their
	// staging directory.
	OutputDir string

	// KeepLast is how many archives to keep in OutputDir. 0 keeps all.
	KeepLast int
}

// Run describes the outcome of one scheduled export.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Archive  string
	Rows     int
	Pruned   int
	Err      error
}

// Scheduler runs exports on a cron schedule and prunes old archives after
// each successful run. Overlapping runs are skipped.
type Scheduler struct {
	config  Config
	run     ExportFunc
	pruner  *Pruner
	metrics Recorder
	cron    *cron.Cron
	logger  *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	last    *Run
}

// NewScheduler creates a scheduler. metrics may be nil.
func NewScheduler(cfg Config, run ExportFunc, metrics Recorder) *Scheduler {
	if metrics == nil {
		metrics = noopRecorder{}
	}

	s := &Scheduler{
		config:  cfg,
		run:     run,
		metrics: metrics,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  slog.Default().With("component", "credential.schedule"),
	}
	if cfg.OutputDir != "" {
		s.pruner = NewPruner(cfg.OutputDir, cfg.KeepLast)
	}
	return s
}

// Start schedules exports according to the cron expression and stops the
// scheduler when ctx is cancelled. An empty expression schedules nothing.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Cron == "" {
		s.logger.Info("export schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Cron); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Cron, err)
	}

	if _, err := s.cron.AddFunc(s.config.Cron, func() {
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule export: %w", err)
	}

	s.cron.Start()
	s.running = true
	stop := make(chan struct{})
	s.stop = stop

	s.logger.Info("export scheduler started",
		"schedule", s.config.Cron,
		"output_dir", s.config.OutputDir,
		"keep_last", s.config.KeepLast,
	)

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()

	return nil
}

// RunOnce performs one export, moves the archive into the output directory
// and prunes old archives. While another run is in flight it returns
// immediately with ErrRunInProgress; such a skipped run is not recorded.
func (s *Scheduler) RunOnce(ctx context.Context) *Run {
	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	ctx = logging.WithRunID(ctx, run.ID)
	ctx = logging.WithTrigger(ctx, "schedule")

	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.WarnContext(ctx, "skipping export, previous run still in progress")
		run.Err = ErrRunInProgress
		run.Finished = run.Started
		return run
	}
	defer s.inFlight.Store(false)

	s.logger.InfoContext(ctx, "starting scheduled export")

	run.Err = s.export(ctx, run)
	run.Finished = time.Now()
	s.metrics.RecordScheduledRun(run.Err == nil)

	if run.Err != nil {
		s.logger.ErrorContext(ctx, "scheduled export failed", "error", run.Err)
	} else {
		s.logger.InfoContext(ctx, "scheduled export completed",
			"archive", run.Archive,
			"rows", run.Rows,
			"pruned", run.Pruned,
		)
	}

	s.mu.Lock()
	s.last = run
	s.mu.Unlock()
	return run
}

func (s *Scheduler) export(ctx context.Context, run *Run) error {
	result, err := s.run(ctx)
	if err != nil {
		return err
	}
	run.Rows = result.Rows
	run.Archive = result.ArchivePath()

	if s.config.OutputDir == "" {
		return nil
	}

	moved, err := export.MoveArchive(run.Archive, s.config.OutputDir)
	if err != nil {
		return err
	}
	run.Archive = moved

	pruned, err := s.pruner.Prune()
	run.Pruned = pruned
	s.metrics.RecordPruned(pruned)
	if err != nil {
		return fmt.Errorf("retention failed: %w", err)
	}
	return nil
}

// Stop stops the scheduler and waits for a running export to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	// A running job records its result under mu, so wait unlocked.
	<-s.cron.Stop().Done()
	s.logger.Info("export scheduler stopped")
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled export time, or nil if nothing is
// scheduled.
func (s *Scheduler) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// LastRun returns the most recent run, or nil before the first one.
func (s *Scheduler) LastRun() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Check reports the last run's error. It suits a readiness check: a
// scheduler that has not run yet is healthy.
func (s *Scheduler) Check(context.Context) error {
	last := s.LastRun()
	if last == nil || last.Err == nil {
		return nil
	}
	return fmt.Errorf("last scheduled export failed: %w", last.Err)
}
