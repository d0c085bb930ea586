package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mercator-hq/keyport/pkg/cli"
	"mercator-hq/keyport/pkg/config"
	"mercator-hq/keyport/pkg/credential"
	"mercator-hq/keyport/pkg/credential/storage"
)

var credsFlags struct {
	workspace  string
	listScope  string
	coreID     string
	username   string
	privType   string
	dataFile   string
	realmKey   string
	realmValue string
	host       string
	port       int
	service    string
	protocol   string
	mode       string
}

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage stored credentials",
	Long: `Add and list credentials in the configured store.

Private data is read from a file so secrets stay out of shell history,
and it is never printed by "creds list".`,
}

var credsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a credential",
	Long: `Add a credential core, optionally with a login for a network service.

Passing --host stores a login: the credential core plus the service it is
used against. Use --core-id to attach a further login to an existing core.

Examples:
  # Store an SSH key
  keyport creds add --username root --type SSHKey --data-file ~/.ssh/id_ed25519

  # Store a password used against an SMB service
  keyport creds add --username admin --type Password --data-file pw.txt \
    --realm-key "Active Directory Domain" --realm-value CORP \
    --host 10.0.0.5 --port 445 --service smb

  # Read private data from stdin
  printf 'hunter2' | keyport creds add --username bob --data-file -`,
	RunE: runCredsAdd,
}

var credsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	Long: `List stored credentials without their private data.

Examples:
  keyport creds list --mode core
  keyport creds list --mode login --workspace default --output csv`,
	RunE: runCredsList,
}

func init() {
	rootCmd.AddCommand(credsCmd)
	credsCmd.AddCommand(credsAddCmd, credsListCmd)

	credsAddCmd.Flags().StringVarP(&credsFlags.workspace, "workspace", "w", "default", "workspace the credential belongs to")
	credsAddCmd.Flags().StringVar(&credsFlags.coreID, "core-id", "", "ID of the credential core (generated when empty)")
	credsAddCmd.Flags().StringVarP(&credsFlags.username, "username", "u", "", "public username")
	credsAddCmd.Flags().StringVarP(&credsFlags.privType, "type", "t", credential.TypePassword,
		"private type: SSHKey, Password, NTLMHash, NonreplayableHash")
	credsAddCmd.Flags().StringVarP(&credsFlags.dataFile, "data-file", "f", "", "file holding the private data, - for stdin")
	credsAddCmd.Flags().StringVar(&credsFlags.realmKey, "realm-key", "", "realm kind, e.g. \"Active Directory Domain\"")
	credsAddCmd.Flags().StringVar(&credsFlags.realmValue, "realm-value", "", "realm name")
	credsAddCmd.Flags().StringVar(&credsFlags.host, "host", "", "host address of the service the login is for")
	credsAddCmd.Flags().IntVar(&credsFlags.port, "port", 0, "service port")
	credsAddCmd.Flags().StringVar(&credsFlags.service, "service", "", "service name")
	credsAddCmd.Flags().StringVar(&credsFlags.protocol, "protocol", "tcp", "service protocol")

	credsListCmd.Flags().StringVarP(&credsFlags.mode, "mode", "m", "", "list mode: core, login (default from config)")
	credsListCmd.Flags().StringVarP(&credsFlags.listScope, "workspace", "w", "", "workspace to list (default all)")
}

func runCredsAdd(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	var data []byte
	if credsFlags.dataFile != "" {
		var err error
		data, err = readData(cmd.InOrStdin(), credsFlags.dataFile)
		if err != nil {
			return cli.NewCommandError("creds add", err)
		}
	}

	record, err := newRecord(string(data))
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return cli.NewCommandError("creds add", err)
	}
	defer store.Close()

	if err := store.Store(cmd.Context(), record); err != nil {
		return cli.NewCommandError("creds add", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), record.ID)
	return nil
}

// newRecord builds the record described by the add flags. IDs not given
// on the command line are random UUIDs.
func newRecord(data string) (*credential.Record, error) {
	if credsFlags.coreID == "" && credsFlags.username == "" && data == "" {
		return nil, cli.NewConfigError("username", "a username or private data is required")
	}
	if credsFlags.host == "" && (credsFlags.port != 0 || credsFlags.service != "") {
		return nil, cli.NewConfigError("host", "--port and --service require --host")
	}
	if credsFlags.port < 0 || credsFlags.port > 65535 {
		return nil, cli.NewConfigError("port", fmt.Sprintf("port %d out of range", credsFlags.port))
	}

	coreID := credsFlags.coreID
	if coreID == "" {
		coreID = uuid.NewString()
	}

	record := &credential.Record{
		ID:        coreID,
		CoreID:    coreID,
		Workspace: credsFlags.workspace,
	}
	if credsFlags.username != "" {
		record.Public = &credential.Public{ID: uuid.NewString(), Username: credsFlags.username}
	}
	if data != "" {
		record.Private = &credential.Private{ID: uuid.NewString(), Type: credsFlags.privType, Data: data}
	}
	if credsFlags.realmKey != "" || credsFlags.realmValue != "" {
		record.Realm = &credential.Realm{Key: credsFlags.realmKey, Value: credsFlags.realmValue}
	}
	if credsFlags.host != "" {
		record.ID = uuid.NewString()
		record.Service = &credential.Service{
			HostAddress: credsFlags.host,
			Port:        credsFlags.port,
			Name:        credsFlags.service,
			Protocol:    credsFlags.protocol,
		}
	}
	return record, nil
}

func readData(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, cli.NewConfigError("data-file", fmt.Sprintf("%s does not exist", path))
	}
	return data, err
}

func runCredsList(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()

	mode, err := credential.ParseMode(modeOr(credsFlags.mode, cfg.Export.Mode))
	if err != nil {
		return cli.NewCommandError("creds list", err)
	}
	out, err := formatter()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return cli.NewCommandError("creds list", err)
	}
	defer store.Close()

	records, err := store.Records(cmd.Context(), mode, credential.Scope{Workspace: credsFlags.listScope})
	if err != nil {
		return cli.NewCommandError("creds list", err)
	}

	if _, ok := out.(*cli.JSONFormatter); ok {
		return out.FormatTo(cmd.OutOrStdout(), records)
	}
	return out.FormatTo(cmd.OutOrStdout(), recordTable{mode: mode, records: records})
}

// recordTable lists records without their private data.
type recordTable struct {
	mode    credential.Mode
	records []*credential.Record
}

func (t recordTable) Header() []string {
	header := []string{"id", "workspace", "username", "private_type", "realm"}
	if t.mode == credential.ModeLogin {
		header = append(header, "host", "port", "service", "protocol")
	}
	return header
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.records))
	for _, r := range t.records {
		var username, privType, realm string
		if r.Public != nil {
			username = r.Public.Username
		}
		if r.Private != nil {
			privType = r.Private.Type
		}
		if r.Realm != nil && r.Realm.Value != "" {
			realm = r.Realm.Key + ": " + r.Realm.Value
		}
		row := []string{r.ID, r.Workspace, username, privType, realm}

		if t.mode == credential.ModeLogin {
			var host, port, service, protocol string
			if svc := r.Service; svc != nil {
				host, service, protocol = svc.HostAddress, svc.Name, svc.Protocol
				if svc.Port > 0 {
					port = strconv.Itoa(svc.Port)
				}
			}
			row = append(row, host, port, service, protocol)
		}
		rows = append(rows, row)
	}
	return rows
}
