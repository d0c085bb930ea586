package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// ErrStagingBusy is returned when another exporter holds the staging lock.
var ErrStagingBusy = errors.New("staging directory is locked by another export")

// StagingPrefix prefixes every staging directory name.
const StagingPrefix = "export-"

// Clock supplies the time used to name staging directories and stamp
// archive entries.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return time.Time(c) }

// Staging is the working directory of one export: the manifest at its root
// and extracted keys under keys/. Its path is fixed when the Staging is
// created; nothing touches the filesystem until Prepare.
type Staging struct {
	root string
	name string
	lock *flock.Flock
}

// NewStaging names a staging directory export-<unix seconds> under root.
// An empty root uses os.TempDir().
func NewStaging(root string, clock Clock) *Staging {
	if root == "" {
		root = os.TempDir()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	name := StagingPrefix + strconv.FormatInt(clock.Now().Unix(), 10)
	path := filepath.Join(root, name)
	return &Staging{
		root: root,
		name: name,
		lock: flock.New(path + ".lock"),
	}
}

// Name returns the staging directory's base name.
func (s *Staging) Name() string { return s.name }

// Path returns the staging directory path.
func (s *Staging) Path() string { return filepath.Join(s.root, s.name) }

// ManifestPath returns the manifest location inside the staging directory.
func (s *Staging) ManifestPath() string { return filepath.Join(s.Path(), ManifestFileName) }

// KeysDir returns the keys subdirectory location.
func (s *Staging) KeysDir() string { return filepath.Join(s.Path(), KeysDirName) }

// ArchivePath returns where the staging directory will be archived.
func (s *Staging) ArchivePath() string { return ArchivePath(s.Path()) }

// Prepare takes the staging lock and creates the directory. It fails with
// ErrStagingBusy if another process or exporter holds the lock, and refuses
// to reuse a directory that already exists.
func (s *Staging) Prepare() error {
	if err := os.MkdirAll(s.root, 0o700); err != nil {
		return fmt.Errorf("failed to create staging root: %w", err)
	}

	locked, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock staging directory: %w", err)
	}
	if !locked {
		return ErrStagingBusy
	}

	if err := os.Mkdir(s.Path(), 0o700); err != nil {
		s.Release()
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}

// Release drops the staging lock and removes the lock file. The staging
// directory itself is left alone.
func (s *Staging) Release() error {
	if !s.lock.Locked() {
		return nil
	}
	if err := s.lock.Unlock(); err != nil {
		return err
	}
	if err := os.Remove(s.lock.Path()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Remove deletes the staging directory and everything in it.
func (s *Staging) Remove() error {
	return os.RemoveAll(s.Path())
}
