// Package credential defines the credential records that keyport exports and
// the error types shared by the export pipeline.
//
// # Records
//
// A credential core is a (public, private, realm) triple: a username, an opaque
// secret tagged with its type, and an optional realm such as an Active
// Directory domain. A login is a core plus the network service it applies to.
// Both are represented by Record; Service is only set for logins.
//
// # Modes
//
// Exports run in one of two modes:
//
//   - ModeCore: one row per credential core
//   - ModeLogin: one row per login, with the service columns appended
//
// # Sources
//
// The pipeline reads records through the Source interface and never issues
// its own queries. The storage subpackage provides in-memory and SQLite
// implementations.
//
// # Errors
//
// Every failure surfaced by an export is one of:
//
//   - InvalidModeError: unrecognized mode at construction time
//   - RecordSourceError: the source could not return records
//   - KeyWriteError: extracted key material could not be written
//   - ManifestWriteError: the manifest could not be written
//   - ArchiveError: the archive could not be assembled (including ErrEmptyStaging)
//
// None of them are retried.
package credential
