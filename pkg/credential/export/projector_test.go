package export

import (
	"errors"
	"testing"

	"mercator-hq/keyport/pkg/credential"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		mode credential.Mode
		want []string
	}{
		{
			mode: credential.ModeCore,
			want: []string{"username", "private_type", "private_data", "realm_key", "realm_value"},
		},
		{
			mode: credential.ModeLogin,
			want: []string{
				"username", "private_type", "private_data", "realm_key", "realm_value",
				"host_address", "service_port", "service_name", "service_protocol",
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got, err := Header(tt.mode)
			if err != nil {
				t.Fatalf("Header() error = %v", err)
			}
			if !equalStrings(got, tt.want) {
				t.Errorf("Header() = %v, want %v", got, tt.want)
			}

			got[0] = "mutated"
			again, _ := Header(tt.mode)
			if again[0] != "username" {
				t.Error("Header() must return a copy")
			}
		})
	}
}

func TestHeader_InvalidMode(t *testing.T) {
	_, err := Header("everything")
	var modeErr *credential.InvalidModeError
	if !errors.As(err, &modeErr) {
		t.Fatalf("expected InvalidModeError, got %v", err)
	}
	if modeErr.Mode != "everything" {
		t.Errorf("unexpected mode in error: %q", modeErr.Mode)
	}
}

func TestProject(t *testing.T) {
	full := withService(passwordCore("c1", "alice", "Winter2024!"), "l1", &credential.Service{
		HostAddress: "10.0.0.5",
		Port:        445,
		Name:        "smb",
		Protocol:    "tcp",
	})

	tests := []struct {
		name   string
		record *credential.Record
		mode   credential.Mode
		want   []string
	}{
		{
			name:   "core full",
			record: full,
			mode:   credential.ModeCore,
			want:   []string{"alice", "Password", "Winter2024!", "Active Directory Domain", "CORP"},
		},
		{
			name:   "login full",
			record: full,
			mode:   credential.ModeLogin,
			want: []string{
				"alice", "Password", "Winter2024!", "Active Directory Domain", "CORP",
				"10.0.0.5", "445", "smb", "tcp",
			},
		},
		{
			name:   "core without components",
			record: &credential.Record{ID: "c2"},
			mode:   credential.ModeCore,
			want:   []string{"", "", "", "", ""},
		},
		{
			name:   "login without service",
			record: passwordCore("c3", "bob", "pw"),
			mode:   credential.ModeLogin,
			want: []string{
				"bob", "Password", "pw", "Active Directory Domain", "CORP",
				"", "", "", "",
			},
		},
		{
			name: "login with missing service name and port",
			record: withService(passwordCore("c4", "carol", "pw"), "l4", &credential.Service{
				HostAddress: "db.internal",
				Protocol:    "tcp",
			}),
			mode: credential.ModeLogin,
			want: []string{
				"carol", "Password", "pw", "Active Directory Domain", "CORP",
				"db.internal", "", "", "tcp",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := Project(tt.record, tt.mode)
			if err != nil {
				t.Fatalf("Project() error = %v", err)
			}
			if !equalStrings(row.Values(), tt.want) {
				t.Errorf("Project() = %v, want %v", row.Values(), tt.want)
			}

			header, _ := Header(tt.mode)
			if !equalStrings(row.Names(), header) {
				t.Errorf("row names %v do not match header %v", row.Names(), header)
			}
		})
	}
}

func TestProject_LoginExtendsCore(t *testing.T) {
	record := withService(sshCore("c1", "root", "k1"), "l1", &credential.Service{HostAddress: "h", Port: 22})

	core, _ := Project(record, credential.ModeCore)
	login, _ := Project(record, credential.ModeLogin)

	if !equalStrings(login.Values()[:len(core)], core.Values()) {
		t.Errorf("login row %v does not start with core row %v", login.Values(), core.Values())
	}
}

func TestRow_SetDoesNotAddFields(t *testing.T) {
	row, _ := Project(&credential.Record{}, credential.ModeCore)

	if row.Set("unknown", "x") {
		t.Error("Set() reported success for an unknown field")
	}
	if len(row) != 5 {
		t.Errorf("row grew to %d fields", len(row))
	}
	if !row.Set(ColumnPrivateData, "file") || row.Get(ColumnPrivateData) != "file" {
		t.Error("Set() did not update private_data")
	}
}
