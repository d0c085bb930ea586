package storage

import (
	"context"
	"sync"

	"mercator-hq/keyport/pkg/credential"
)

// MemoryStorage implements credential.Storage in memory.
// Records are returned in insertion order. Intended for tests and small
// in-process pipelines.
type MemoryStorage struct {
	cores  []*credential.Record
	logins []*credential.Record
	mu     sync.RWMutex

	// Err, when set, is returned from Records to simulate a failing source.
	Err error
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists a copy of the record.
// Records with a Service are stored as logins; their core is stored once.
func (s *MemoryStorage) Store(ctx context.Context, record *credential.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := copyRecord(record)
	if recordCopy.CoreID == "" {
		recordCopy.CoreID = recordCopy.ID
	}

	if recordCopy.Service == nil {
		s.cores = append(s.cores, recordCopy)
		return nil
	}

	if !s.hasCore(recordCopy.CoreID) {
		core := copyRecord(recordCopy)
		core.ID = core.CoreID
		core.Service = nil
		s.cores = append(s.cores, core)
	}
	s.logins = append(s.logins, recordCopy)
	return nil
}

// Records returns copies of all records in scope for the given mode.
func (s *MemoryStorage) Records(ctx context.Context, mode credential.Mode, scope credential.Scope) ([]*credential.Record, error) {
	if s.Err != nil {
		return nil, credential.NewRecordSourceError("memory", "records", s.Err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*credential.Record
	for _, record := range s.list(mode) {
		if scope.Workspace != "" && record.Workspace != scope.Workspace {
			continue
		}
		results = append(results, copyRecord(record))
	}
	return results, nil
}

// Count returns the number of records in scope for the given mode.
func (s *MemoryStorage) Count(ctx context.Context, mode credential.Mode, scope credential.Scope) (int64, error) {
	records, err := s.Records(ctx, mode, scope)
	if err != nil {
		return 0, err
	}
	return int64(len(records)), nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cores = nil
	s.logins = nil
	return nil
}

// Size returns the number of stored cores and logins (for testing).
func (s *MemoryStorage) Size() (cores, logins int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.cores), len(s.logins)
}

func (s *MemoryStorage) list(mode credential.Mode) []*credential.Record {
	if mode == credential.ModeLogin {
		return s.logins
	}
	return s.cores
}

func (s *MemoryStorage) hasCore(id string) bool {
	for _, core := range s.cores {
		if core.ID == id {
			return true
		}
	}
	return false
}

// copyRecord deep-copies a record so callers cannot mutate stored state.
func copyRecord(record *credential.Record) *credential.Record {
	recordCopy := *record
	if record.Public != nil {
		public := *record.Public
		recordCopy.Public = &public
	}
	if record.Private != nil {
		private := *record.Private
		recordCopy.Private = &private
	}
	if record.Realm != nil {
		realm := *record.Realm
		recordCopy.Realm = &realm
	}
	if record.Service != nil {
		service := *record.Service
		recordCopy.Service = &service
	}
	return &recordCopy
}
