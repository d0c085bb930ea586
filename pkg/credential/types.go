package credential

import (
	"context"
	"strings"
)

// Mode selects which records an export reads and which manifest columns it
// produces.
type Mode string

const (
	// ModeCore exports bare credential cores (public, private, realm).
	ModeCore Mode = "core"

	// ModeLogin exports credential cores joined with the network service each
	// login applies to.
	ModeLogin Mode = "login"

	// DefaultMode is used when no mode is configured.
	DefaultMode = ModeLogin
)

// ParseMode converts a configured mode name into a Mode.
// An empty string resolves to DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultMode, nil
	case ModeCore:
		return ModeCore, nil
	case ModeLogin:
		return ModeLogin, nil
	default:
		return "", NewInvalidModeError(s)
	}
}

// Valid reports whether m is one of the recognized modes.
func (m Mode) Valid() bool {
	return m == ModeCore || m == ModeLogin
}

// Private type tags.
const (
	// TypeSSHKey marks a private component holding an SSH private key.
	// Exports extract these payloads into side files.
	TypeSSHKey = "SSHKey"

	TypePassword          = "Password"
	TypeNTLMHash          = "NTLMHash"
	TypeNonreplayableHash = "NonreplayableHash"
)

// Record is one exportable unit of credential data. In core mode it is a
// credential core; in login mode it is a login, i.e. a core plus the service
// it was used against.
type Record struct {
	// ID identifies the exported unit. Whitelists match against it.
	ID string `json:"id"`

	// CoreID identifies the credential core. Equal to ID in core mode.
	CoreID string `json:"core_id"`

	// Workspace scopes the record.
	Workspace string `json:"workspace"`

	Public  *Public  `json:"public,omitempty"`
	Private *Private `json:"private,omitempty"`
	Realm   *Realm   `json:"realm,omitempty"`

	// Service is only populated in login mode.
	Service *Service `json:"service,omitempty"`
}

// Public is the public half of a credential, usually a username.
type Public struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Private is the secret half of a credential. Data is opaque and is never
// decoded by this module.
type Private struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data string `json:"-"`
}

// Realm disambiguates credentials valid within a domain, directory or similar
// namespace.
type Realm struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Service is the network context a login applies to.
// A zero Port means the port is unknown.
type Service struct {
	HostAddress string `json:"host_address"`
	Port        int    `json:"port"`
	Name        string `json:"name"`
	Protocol    string `json:"protocol"`
}

// IsSSHKey reports whether the record carries SSH private key material.
func (r *Record) IsSSHKey() bool {
	return r != nil && r.Private != nil && r.Private.Type == TypeSSHKey
}

// Scope selects the records visible to one export.
type Scope struct {
	Workspace string `json:"workspace"`
}

// Source supplies records for an export. Implementations return records in a
// stable order; exports preserve that order.
type Source interface {
	// Records returns every record in scope for the given mode.
	Records(ctx context.Context, mode Mode, scope Scope) ([]*Record, error)
}

// Storage is a Source that can also persist records.
// Implementations must be safe for concurrent use.
type Storage interface {
	Source

	// Store persists a record. In login mode records (Service != nil) the
	// core is stored once and shared between logins with the same CoreID.
	Store(ctx context.Context, record *Record) error

	// Count returns the number of records in scope for the given mode.
	Count(ctx context.Context, mode Mode, scope Scope) (int64, error)

	// Close releases any resources held by the backend.
	Close() error
}
