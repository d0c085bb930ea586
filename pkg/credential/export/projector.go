package export

import (
	"strconv"

	"mercator-hq/keyport/pkg/credential"
)

// Manifest column names.
const (
	ColumnUsername        = "username"
	ColumnPrivateType     = "private_type"
	ColumnPrivateData     = "private_data"
	ColumnRealmKey        = "realm_key"
	ColumnRealmValue      = "realm_value"
	ColumnHostAddress     = "host_address"
	ColumnServicePort     = "service_port"
	ColumnServiceName     = "service_name"
	ColumnServiceProtocol = "service_protocol"
)

// Field is one named manifest cell.
type Field struct {
	Name  string
	Value string
}

// Row is an ordered set of manifest cells for one record.
type Row []Field

// Get returns the value of the named field, or "" if absent.
func (r Row) Get(name string) string {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Set replaces the value of an existing field. It reports whether the field
// was found; Set never adds fields so the row shape stays fixed.
func (r Row) Set(name, value string) bool {
	for i := range r {
		if r[i].Name == name {
			r[i].Value = value
			return true
		}
	}
	return false
}

// Names returns the field names in order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, f := range r {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in order.
func (r Row) Values() []string {
	values := make([]string, len(r))
	for i, f := range r {
		values[i] = f.Value
	}
	return values
}

// Projection turns records into rows for one mode.
type Projection struct {
	Mode    credential.Mode
	Header  []string
	Project func(record *credential.Record) Row
}

var coreHeader = []string{
	ColumnUsername, ColumnPrivateType, ColumnPrivateData, ColumnRealmKey, ColumnRealmValue,
}

var loginHeader = []string{
	ColumnUsername, ColumnPrivateType, ColumnPrivateData, ColumnRealmKey, ColumnRealmValue,
	ColumnHostAddress, ColumnServicePort, ColumnServiceName, ColumnServiceProtocol,
}

var projections = map[credential.Mode]Projection{
	credential.ModeCore:  {Mode: credential.ModeCore, Header: coreHeader, Project: projectCore},
	credential.ModeLogin: {Mode: credential.ModeLogin, Header: loginHeader, Project: projectLogin},
}

// ProjectionFor returns the projection for mode.
func ProjectionFor(mode credential.Mode) (Projection, error) {
	p, ok := projections[mode]
	if !ok {
		return Projection{}, credential.NewInvalidModeError(string(mode))
	}
	return p, nil
}

// Header returns a copy of the manifest header for mode.
func Header(mode credential.Mode) ([]string, error) {
	p, err := ProjectionFor(mode)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.Header...), nil
}

// Project converts one record to a manifest row for mode.
func Project(record *credential.Record, mode credential.Mode) (Row, error) {
	p, err := ProjectionFor(mode)
	if err != nil {
		return nil, err
	}
	return p.Project(record), nil
}

func projectCore(record *credential.Record) Row {
	if record == nil {
		record = &credential.Record{}
	}
	var username, privateType, privateData, realmKey, realmValue string
	if record.Public != nil {
		username = record.Public.Username
	}
	if record.Private != nil {
		privateType = record.Private.Type
		privateData = record.Private.Data
	}
	if record.Realm != nil {
		realmKey = record.Realm.Key
		realmValue = record.Realm.Value
	}

	return Row{
		{ColumnUsername, username},
		{ColumnPrivateType, privateType},
		{ColumnPrivateData, privateData},
		{ColumnRealmKey, realmKey},
		{ColumnRealmValue, realmValue},
	}
}

func projectLogin(record *credential.Record) Row {
	var hostAddress, port, name, protocol string
	if record == nil {
		record = &credential.Record{}
	}
	if svc := record.Service; svc != nil {
		hostAddress = svc.HostAddress
		if svc.Port > 0 {
			port = strconv.Itoa(svc.Port)
		}
		name = svc.Name
		protocol = svc.Protocol
	}

	return append(projectCore(record),
		Field{ColumnHostAddress, hostAddress},
		Field{ColumnServicePort, port},
		Field{ColumnServiceName, name},
		Field{ColumnServiceProtocol, protocol},
	)
}
