package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"mercator-hq/keyport/pkg/credential"
)

// KeysDirName is the staging subdirectory holding extracted key files.
const KeysDirName = "keys"

const (
	keysDirPerm = 0o700
	keyFilePerm = 0o600
)

// keyOwner identifies the key a file name was assigned to.
type keyOwner struct {
	privateID string
	data      string
}

// keyNamer hands out key file names that are unique within one export.
// A name is shared only by records carrying the same private component,
// which happens when several logins reference one credential core.
type keyNamer struct {
	owners map[string]keyOwner
}

func newKeyNamer() *keyNamer {
	return &keyNamer{owners: make(map[string]keyOwner)}
}

// assign returns the file name for record's key and whether that name was
// already assigned to the same key. Colliding names for different keys get
// a numeric suffix.
func (n *keyNamer) assign(record *credential.Record) (string, bool) {
	owner := keyOwner{privateID: record.Private.ID, data: record.Private.Data}
	base := KeyFileName(record)
	name := base
	for i := 2; ; i++ {
		prev, taken := n.owners[name]
		if !taken {
			n.owners[name] = owner
			return name, false
		}
		if prev == owner {
			return name, true
		}
		name = base + "-" + strconv.Itoa(i)
	}
}

// KeyExtractor moves SSH private key payloads out of manifest rows and into
// files under <staging>/keys.
type KeyExtractor struct {
	dir     string
	names   *keyNamer
	written int
}

// NewKeyExtractor creates an extractor writing into stagingDir/keys.
// The directory is created on the first extracted key.
func NewKeyExtractor(stagingDir string) *KeyExtractor {
	return &KeyExtractor{
		dir:   filepath.Join(stagingDir, KeysDirName),
		names: newKeyNamer(),
	}
}

// Dir returns the keys directory path.
func (k *KeyExtractor) Dir() string {
	return k.dir
}

// Written returns the number of distinct key files written.
func (k *KeyExtractor) Written() int {
	return k.written
}

// Extract writes the record's key payload to a side file and points the
// row's private_data cell at it. Rows whose private type is not SSHKey are
// returned unchanged. Any filesystem failure is a *credential.KeyWriteError.
func (k *KeyExtractor) Extract(record *credential.Record, row Row) (Row, error) {
	if !record.IsSSHKey() {
		return row, nil
	}

	name, exists := k.names.assign(record)
	if !exists {
		path := filepath.Join(k.dir, name)
		if err := os.MkdirAll(k.dir, keysDirPerm); err != nil {
			return nil, credential.NewKeyWriteError(k.dir, err)
		}
		if err := writeKeyFile(path, []byte(record.Private.Data)); err != nil {
			return nil, credential.NewKeyWriteError(path, err)
		}
		k.written++
	}

	row.Set(ColumnPrivateData, name)
	return row, nil
}

// KeyFileName derives the base key file name <username>-<private_id>.
// Characters outside [A-Za-z0-9._-] are replaced with '_' so the name cannot
// escape the keys directory. Different keys can share a base name; the
// extractor suffixes later ones.
func KeyFileName(record *credential.Record) string {
	var username, privateID string
	if record.Public != nil {
		username = record.Public.Username
	}
	if record.Private != nil {
		privateID = record.Private.ID
	}
	return sanitizeFileName(username) + "-" + sanitizeFileName(privateID)
}

func sanitizeFileName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	result := b.String()
	if strings.Trim(result, ".") == "" {
		// "", "." and ".." are not usable path segments
		result = strings.Repeat("_", len(result))
	}
	return result
}

// writeKeyFile creates path exclusively, writes data verbatim and syncs it
// before returning so a manifest never references a key that did not reach
// disk.
func writeKeyFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, keyFilePerm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
