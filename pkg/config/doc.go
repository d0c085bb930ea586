// Package config loads and validates keyport configuration.
//
// Configuration is read from a YAML file, filled with defaults, overridden by
// KEYPORT_* environment variables and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("keyport.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// A minimal file:
//
//	storage:
//	  backend: sqlite
//	  sqlite:
//	    path: data/credentials.db
//	export:
//	  mode: login
//	  output_dir: /var/backups/keyport
//	schedule:
//	  cron: "0 3 * * *"
//	  keep_last: 7
//
// Initialize and GetConfig expose a process-wide instance for the CLI.
package config
