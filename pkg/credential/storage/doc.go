// Package storage provides credential.Storage backends.
//
// # Backends
//
//   - MemoryStorage: insertion-ordered, in-process; used by tests
//   - SQLiteStorage: durable storage over database/sql
//
// SQLiteStorage works with either SQLite driver:
//
//	// cgo driver (github.com/mattn/go-sqlite3)
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: "creds.db", Driver: "sqlite3"})
//
//	// pure Go driver (modernc.org/sqlite)
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{Path: "creds.db", Driver: "sqlite"})
//
// Records are returned in insertion order. Core mode reads the cores table;
// login mode joins logins to their cores. NULL columns surface as nil
// components, which the export projector renders as empty cells.
package storage
