// Keyport exports credential records into portable zip archives.
//
// An archive holds a manifest.csv with one row per exported record and a
// keys/ directory with the SSH private keys those rows reference.
//
// Usage:
//
//	# Export every login in the default workspace
//	keyport export --workspace default
//
//	# Export two credential cores into a fixed directory
//	keyport export --mode core --id 3f2a... --id 9c1d... --output-dir ./exports
//
//	# Show the manifest an export would produce without writing anything
//	keyport export --dry-run
//
//	# Seed the credential store
//	keyport creds add --username root --type SSHKey --data-file ~/.ssh/id_ed25519
//
//	# Run scheduled exports with metrics and health endpoints
//	keyport serve --config keyport.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
