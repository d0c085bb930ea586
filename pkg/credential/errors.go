package credential

import (
	"errors"
	"fmt"
)

// ErrEmptyStaging is wrapped by ArchiveError when the staging directory holds
// no files. An archive with zero entries is never a valid export.
var ErrEmptyStaging = errors.New("staging directory contains no files")

// InvalidModeError is returned when an export is configured with an
// unrecognized mode.
type InvalidModeError struct {
	Mode string
}

// Error implements the error interface.
func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid export mode %q (expected %q or %q)", e.Mode, ModeCore, ModeLogin)
}

// NewInvalidModeError creates a new InvalidModeError.
func NewInvalidModeError(mode string) *InvalidModeError {
	return &InvalidModeError{Mode: mode}
}

// RecordSourceError represents a failure to read records from a Source.
type RecordSourceError struct {
	Backend   string // Source backend type ("sqlite", "memory", etc.)
	Operation string // Operation that failed ("records", "store", etc.)
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *RecordSourceError) Error() string {
	return fmt.Sprintf("record source error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecordSourceError) Unwrap() error {
	return e.Cause
}

// NewRecordSourceError creates a new RecordSourceError.
func NewRecordSourceError(backend, operation string, cause error) *RecordSourceError {
	return &RecordSourceError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// KeyWriteError represents a failure to write extracted key material.
type KeyWriteError struct {
	Path  string // Key file path
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *KeyWriteError) Error() string {
	return fmt.Sprintf("key write error [path=%s]: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *KeyWriteError) Unwrap() error {
	return e.Cause
}

// NewKeyWriteError creates a new KeyWriteError.
func NewKeyWriteError(path string, cause error) *KeyWriteError {
	return &KeyWriteError{
		Path:  path,
		Cause: cause,
	}
}

// ManifestWriteError represents a failure to write the manifest file.
type ManifestWriteError struct {
	Path     string // Manifest path
	RowCount int    // Number of rows being written
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *ManifestWriteError) Error() string {
	return fmt.Sprintf("manifest write error [path=%s, row_count=%d]: %v", e.Path, e.RowCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ManifestWriteError) Unwrap() error {
	return e.Cause
}

// NewManifestWriteError creates a new ManifestWriteError.
func NewManifestWriteError(path string, rowCount int, cause error) *ManifestWriteError {
	return &ManifestWriteError{
		Path:     path,
		RowCount: rowCount,
		Cause:    cause,
	}
}

// ArchiveError represents a failure to assemble the output archive.
// The staging directory is left in place for diagnosis.
type ArchiveError struct {
	StagingDir string // Staging directory being archived
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive error [staging_dir=%s]: %v", e.StagingDir, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// NewArchiveError creates a new ArchiveError.
func NewArchiveError(stagingDir string, cause error) *ArchiveError {
	return &ArchiveError{
		StagingDir: stagingDir,
		Cause:      cause,
	}
}
