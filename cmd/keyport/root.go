package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/keyport/pkg/cli"
	"mercator-hq/keyport/pkg/config"
	"mercator-hq/keyport/pkg/telemetry"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string

	// Set by loadRuntime before any subcommand runs.
	tel *telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "keyport",
	Short: "Keyport - credential export tool",
	Long: `Keyport exports stored credentials into portable zip archives.

Each archive contains a manifest.csv describing the exported credentials
and a keys/ directory holding any SSH private keys they reference.

Exports run on demand with "keyport export" or on a cron schedule with
"keyport serve".`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadRuntime,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tel == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tel.Shutdown(ctx)
	},
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and KEYPORT_* variables when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text, json, csv")
}

// loadRuntime loads configuration into the global singleton and sets up
// telemetry from it.
func loadRuntime(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	config.SetConfig(cfg)

	tel, err = telemetry.Setup(&cfg.Telemetry)
	if err != nil {
		return cli.NewCommandError(cmd.Name(), err)
	}
	return nil
}

// formatter returns the formatter selected by --output.
func formatter() (cli.Formatter, error) {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewFormatter(format), nil
}
