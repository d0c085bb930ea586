package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"mercator-hq/keyport/pkg/config"
	"mercator-hq/keyport/pkg/credential"
)

// Open creates the storage backend selected by cfg. The parent directory of
// a SQLite database is created if missing.
func Open(cfg config.StorageConfig) (credential.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, credential.NewRecordSourceError("sqlite", "open", err)
			}
		}
		return NewSQLiteStorage(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.JournalMode != "delete",
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
