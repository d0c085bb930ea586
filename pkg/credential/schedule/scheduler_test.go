package schedule

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"mercator-hq/keyport/pkg/credential"
	"mercator-hq/keyport/pkg/credential/export"
	"mercator-hq/keyport/pkg/credential/storage"
)

type fakeRecorder struct {
	mu      sync.Mutex
	success int
	failed  int
	pruned  int
}

func (f *fakeRecorder) RecordScheduledRun(success bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if success {
		f.success++
	} else {
		f.failed++
	}
}

func (f *fakeRecorder) RecordPruned(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruned += count
}

// exportFunc builds a fresh exporter per run with an advancing clock.
func exportFunc(t *testing.T, source credential.Source, root string) ExportFunc {
	t.Helper()
	var n int64
	return func(ctx context.Context) (*export.Result, error) {
		n++
		exp, err := export.New(source, export.Options{
			Mode:  credential.ModeCore,
			Root:  root,
			Clock: export.FixedClock(time.Unix(1700000000+n, 0)),
		})
		if err != nil {
			return nil, err
		}
		return exp.Export(ctx)
	}
}

func seededStore(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	store := storage.NewMemoryStorage()
	err := store.Store(context.Background(), &credential.Record{
		ID:      "c1",
		Public:  &credential.Public{Username: "alice"},
		Private: &credential.Private{ID: "p1", Type: credential.TypePassword, Data: "pw"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{name: "valid daily schedule", schedule: "0 3 * * *", wantRunning: true},
		{name: "valid hourly schedule", schedule: "0 * * * *", wantRunning: true},
		{name: "empty schedule", schedule: "", wantRunning: false},
		{name: "invalid schedule", schedule: "invalid cron", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(Config{Cron: tt.schedule}, exportFunc(t, seededStore(t), t.TempDir()), nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := s.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if s.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", s.IsRunning(), tt.wantRunning)
			}
			if tt.wantRunning {
				next := s.NextRun()
				if next == nil || !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
		})
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(Config{Cron: "0 3 * * *"}, exportFunc(t, seededStore(t), t.TempDir()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("scheduler did not stop after context cancellation")
	}
}

func TestScheduler_RunOnceMovesAndPrunes(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "archives")
	recorder := &fakeRecorder{}
	s := NewScheduler(Config{OutputDir: out, KeepLast: 2}, exportFunc(t, seededStore(t), root), recorder)

	for i := 0; i < 4; i++ {
		run := s.RunOnce(context.Background())
		if run.Err != nil {
			t.Fatalf("run %d error = %v", i, run.Err)
		}
		if filepath.Dir(run.Archive) != out {
			t.Errorf("archive %s not moved into %s", run.Archive, out)
		}
		if run.Rows != 1 || run.ID == "" {
			t.Errorf("unexpected run %+v", run)
		}
	}

	archives, err := NewPruner(out, 0).Archives()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"export-1700000003.zip", "export-1700000004.zip"}
	if len(archives) != 2 || archives[0] != want[0] || archives[1] != want[1] {
		t.Errorf("archives = %v, want %v", archives, want)
	}

	if recorder.success != 4 || recorder.pruned != 2 {
		t.Errorf("unexpected recorder state %+v", recorder)
	}
	if err := s.Check(context.Background()); err != nil {
		t.Errorf("Check() after success = %v", err)
	}
	if s.LastRun().Archive != filepath.Join(out, want[1]) {
		t.Errorf("LastRun().Archive = %s", s.LastRun().Archive)
	}

	// Staging directories stay under the staging root.
	if _, err := os.Stat(filepath.Join(root, "export-"+strconv.Itoa(1700000001))); err != nil {
		t.Errorf("staging directory missing: %v", err)
	}
}

func TestScheduler_RunOnceFailure(t *testing.T) {
	recorder := &fakeRecorder{}
	failing := func(context.Context) (*export.Result, error) {
		return nil, errors.New("database is locked")
	}
	s := NewScheduler(Config{OutputDir: t.TempDir(), KeepLast: 1}, failing, recorder)

	if err := s.Check(context.Background()); err != nil {
		t.Errorf("Check() before any run = %v", err)
	}

	run := s.RunOnce(context.Background())
	if run.Err == nil {
		t.Fatal("expected run error")
	}
	if recorder.failed != 1 {
		t.Errorf("failed runs = %d, want 1", recorder.failed)
	}
	if err := s.Check(context.Background()); err == nil {
		t.Error("Check() should report the failed run")
	}
}

func TestScheduler_RunOnceWithoutOutputDir(t *testing.T) {
	root := t.TempDir()
	s := NewScheduler(Config{}, exportFunc(t, seededStore(t), root), nil)

	run := s.RunOnce(context.Background())
	if run.Err != nil {
		t.Fatalf("RunOnce() error = %v", run.Err)
	}
	if filepath.Dir(run.Archive) != root {
		t.Errorf("archive %s should stay in the staging root", run.Archive)
	}
}

func TestScheduler_RunOnceSkipsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	blocking := func(context.Context) (*export.Result, error) {
		calls++
		close(started)
		<-release
		return nil, errors.New("stopped")
	}
	recorder := &fakeRecorder{}
	s := NewScheduler(Config{}, blocking, recorder)

	done := make(chan *Run)
	go func() { done <- s.RunOnce(context.Background()) }()
	<-started

	skipped := s.RunOnce(context.Background())
	if !errors.Is(skipped.Err, ErrRunInProgress) {
		t.Errorf("overlapping RunOnce() error = %v, want ErrRunInProgress", skipped.Err)
	}

	close(release)
	first := <-done
	if errors.Is(first.Err, ErrRunInProgress) {
		t.Error("first run should have executed")
	}
	if calls != 1 {
		t.Errorf("export ran %d times, want 1", calls)
	}
	if recorder.failed != 1 {
		t.Errorf("recorded failed runs = %d, want 1", recorder.failed)
	}
	if s.LastRun() != first {
		t.Error("a skipped run must not replace the last run")
	}
}

func TestScheduler_StopWithoutCancel(t *testing.T) {
	s := NewScheduler(Config{Cron: "0 3 * * *"}, exportFunc(t, seededStore(t), t.TempDir()), nil)

	// The context is never cancelled; Stop alone must shut the scheduler down
	// and a second Stop must be harmless.
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler still running after Stop()")
	}
}
