package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" (cgo)
	_ "modernc.org/sqlite"          // registers "sqlite" (pure Go)

	"mercator-hq/keyport/pkg/credential"
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3"
	DriverPureGo = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// Driver is the database/sql driver name: "sqlite3" (mattn/go-sqlite3)
	// or "sqlite" (modernc.org/sqlite).
	// Default: "sqlite3"
	Driver string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/credentials.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements credential.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteStorage opens the database and initializes the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}
	if config.Driver != DriverCGO && config.Driver != DriverPureGo {
		return nil, credential.NewRecordSourceError("sqlite", "open",
			fmt.Errorf("unsupported driver %q (supported: %s, %s)", config.Driver, DriverCGO, DriverPureGo))
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 10
	}

	logger := slog.Default().With("component", "credential.storage.sqlite")

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, credential.NewRecordSourceError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
		now:    time.Now,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up pragmas and the database schema.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return credential.NewRecordSourceError("sqlite", "enable_wal", err)
		}
	}

	if s.config.BusyTimeout > 0 {
		busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
			return credential.NewRecordSourceError("sqlite", "set_busy_timeout", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return credential.NewRecordSourceError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return credential.NewRecordSourceError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return credential.NewRecordSourceError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return credential.NewRecordSourceError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Store persists a record. The core row is inserted once per CoreID; a login
// row is added when the record carries a Service.
func (s *SQLiteStorage) Store(ctx context.Context, record *credential.Record) error {
	coreID := record.CoreID
	if coreID == "" {
		coreID = record.ID
	}

	var publicID, username, privateID, privateType, privateData, realmKey, realmValue string
	if record.Public != nil {
		publicID, username = record.Public.ID, record.Public.Username
	}
	if record.Private != nil {
		privateID, privateType, privateData = record.Private.ID, record.Private.Type, record.Private.Data
	}
	if record.Realm != nil {
		realmKey, realmValue = record.Realm.Key, record.Realm.Value
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return credential.NewRecordSourceError("sqlite", "begin", err)
	}
	defer tx.Rollback()

	now := s.now().UTC()
	_, err = tx.ExecContext(ctx, insertCore,
		coreID, record.Workspace,
		nullString(publicID), nullString(username),
		nullString(privateID), nullString(privateType), nullString(privateData),
		nullString(realmKey), nullString(realmValue),
		now,
	)
	if err != nil {
		return credential.NewRecordSourceError("sqlite", "store_core", err)
	}

	if svc := record.Service; svc != nil {
		var port any
		if svc.Port > 0 {
			port = svc.Port
		}
		_, err = tx.ExecContext(ctx, insertLogin,
			record.ID, coreID, record.Workspace,
			nullString(svc.HostAddress), port, nullString(svc.Name), nullString(svc.Protocol),
			now,
		)
		if err != nil {
			return credential.NewRecordSourceError("sqlite", "store_login", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return credential.NewRecordSourceError("sqlite", "commit", err)
	}
	return nil
}

// Records returns every record in scope for the given mode, in insertion order.
func (s *SQLiteStorage) Records(ctx context.Context, mode credential.Mode, scope credential.Scope) ([]*credential.Record, error) {
	query := selectCores
	if mode == credential.ModeLogin {
		query = selectLogins
	}

	rows, err := s.db.QueryContext(ctx, query, scope.Workspace, scope.Workspace)
	if err != nil {
		return nil, credential.NewRecordSourceError("sqlite", "records", err)
	}
	defer rows.Close()

	var records []*credential.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, credential.NewRecordSourceError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, credential.NewRecordSourceError("sqlite", "records", err)
	}

	s.logger.Debug("records loaded",
		"mode", mode,
		"workspace", scope.Workspace,
		"count", len(records),
	)
	return records, nil
}

// Count returns the number of records in scope for the given mode.
func (s *SQLiteStorage) Count(ctx context.Context, mode credential.Mode, scope credential.Scope) (int64, error) {
	query := countCores
	if mode == credential.ModeLogin {
		query = countLogins
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, scope.Workspace, scope.Workspace).Scan(&count); err != nil {
		return 0, credential.NewRecordSourceError("sqlite", "count", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanRecord converts one result row into a Record. Components whose columns
// are all NULL are left nil.
func scanRecord(rows *sql.Rows) (*credential.Record, error) {
	var (
		id, coreID, workspace               string
		publicID, username                  sql.NullString
		privateID, privateType, privateData sql.NullString
		realmKey, realmValue                sql.NullString
		hostAddress, serviceName, protocol  sql.NullString
		port                                sql.NullInt64
	)

	err := rows.Scan(
		&id, &coreID, &workspace,
		&publicID, &username,
		&privateID, &privateType, &privateData,
		&realmKey, &realmValue,
		&hostAddress, &port, &serviceName, &protocol,
	)
	if err != nil {
		return nil, err
	}

	record := &credential.Record{
		ID:        id,
		CoreID:    coreID,
		Workspace: workspace,
	}
	if publicID.Valid || username.Valid {
		record.Public = &credential.Public{ID: publicID.String, Username: username.String}
	}
	if privateID.Valid || privateType.Valid || privateData.Valid {
		record.Private = &credential.Private{ID: privateID.String, Type: privateType.String, Data: privateData.String}
	}
	if realmKey.Valid || realmValue.Valid {
		record.Realm = &credential.Realm{Key: realmKey.String, Value: realmValue.String}
	}
	if hostAddress.Valid || port.Valid || serviceName.Valid || protocol.Valid {
		record.Service = &credential.Service{
			HostAddress: hostAddress.String,
			Port:        int(port.Int64),
			Name:        serviceName.String,
			Protocol:    protocol.String,
		}
	}
	return record, nil
}

// nullString maps empty strings to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
