package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mercator-hq/keyport/pkg/cli"
	"mercator-hq/keyport/pkg/config"
	"mercator-hq/keyport/pkg/credential"
	"mercator-hq/keyport/pkg/credential/export"
	"mercator-hq/keyport/pkg/credential/storage"
	"mercator-hq/keyport/pkg/telemetry/logging"
)

var exportFlags struct {
	mode          string
	workspace     string
	ids           []string
	outputDir     string
	stagingRoot   string
	removeStaging bool
	dryRun        bool
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export credentials into a zip archive",
	Long: `Export credentials from the store into a zip archive.

The export is staged in a directory named export-<unix-seconds> under the
staging root. The directory receives manifest.csv and, for SSH keys, one
file per key under keys/. It is then zipped into export-<unix-seconds>.zip
next to it.

Modes:
  core   one row per credential core (5 columns)
  login  one row per login, with host and service columns (9 columns)

Examples:
  # Export all logins in a workspace
  keyport export --workspace default

  # Export selected credential cores
  keyport export --mode core --id 3f2a... --id 9c1d...

  # Preview the manifest without writing files
  keyport export --mode core --dry-run`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.mode, "mode", "m", "", "export mode: core, login (default from config)")
	exportCmd.Flags().StringVarP(&exportFlags.workspace, "workspace", "w", "", "workspace to export (default from config)")
	exportCmd.Flags().StringSliceVar(&exportFlags.ids, "id", nil, "record ID to export; repeat to export several (default all)")
	exportCmd.Flags().StringVar(&exportFlags.outputDir, "output-dir", "", "move the finished archive into this directory")
	exportCmd.Flags().StringVar(&exportFlags.stagingRoot, "staging-root", "", "directory to stage the export in (default from config)")
	exportCmd.Flags().BoolVar(&exportFlags.removeStaging, "remove-staging", false, "delete the staging directory after archiving")
	exportCmd.Flags().BoolVar(&exportFlags.dryRun, "dry-run", false, "print the manifest instead of writing an archive")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := config.MustGetConfig()
	opts := exportOptions(cmd, cfg)

	mode, err := credential.ParseMode(modeOr(exportFlags.mode, cfg.Export.Mode))
	if err != nil {
		return cli.NewCommandError("export", err)
	}
	opts.Mode = mode

	out, err := formatter()
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Storage)
	if err != nil {
		return cli.NewCommandError("export", err)
	}
	defer store.Close()

	ctx := logging.WithRunID(cmd.Context(), uuid.NewString())
	ctx = logging.WithTrigger(ctx, "cli")
	ctx = logging.WithWorkspace(ctx, opts.Scope.Workspace)

	exp, err := export.New(store, opts)
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	if exportFlags.dryRun {
		n, err := exp.Preview(ctx, cmd.OutOrStdout())
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d record(s) would be exported to %s\n", n, exp.ArchivePath())
		return nil
	}

	result, err := exp.Export(ctx)
	if err != nil {
		return cli.NewCommandError("export", err)
	}

	if dir := outputDirOr(cmd, cfg.Export.OutputDir); dir != "" {
		moved, err := export.MoveArchive(result.ArchivePath(), dir)
		if err != nil {
			return cli.NewCommandError("export", err)
		}
		result.Archive.Path = moved
	}

	if _, ok := out.(*cli.JSONFormatter); ok {
		return out.FormatTo(cmd.OutOrStdout(), result)
	}
	return out.FormatTo(cmd.OutOrStdout(), resultTable{result})
}

// exportOptions merges flags over the configured export defaults.
func exportOptions(cmd *cobra.Command, cfg *config.Config) export.Options {
	opts := export.Options{
		Whitelist:     exportFlags.ids,
		Scope:         credential.Scope{Workspace: cfg.Export.Workspace},
		Root:          cfg.Export.StagingRoot,
		RemoveStaging: cfg.Export.RemoveStaging,
		Metrics:       tel.Metrics,
		Tracer:        tel.Tracer,
	}
	if cmd.Flags().Changed("workspace") {
		opts.Scope.Workspace = exportFlags.workspace
	}
	if cmd.Flags().Changed("staging-root") {
		opts.Root = exportFlags.stagingRoot
	}
	if cmd.Flags().Changed("remove-staging") {
		opts.RemoveStaging = exportFlags.removeStaging
	}
	return opts
}

func outputDirOr(cmd *cobra.Command, fallback string) string {
	if cmd.Flags().Changed("output-dir") {
		return exportFlags.outputDir
	}
	return fallback
}

func modeOr(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

// resultTable renders an export result as a single summary row.
type resultTable struct {
	result *export.Result
}

func (r resultTable) Header() []string {
	return []string{"archive", "mode", "rows", "key_files", "bytes", "sha256"}
}

func (r resultTable) Rows() [][]string {
	res := r.result
	return [][]string{{
		res.Archive.Path,
		string(res.Mode),
		strconv.Itoa(res.Rows),
		strconv.Itoa(res.KeyFiles),
		strconv.FormatInt(res.Archive.Size, 10),
		res.Archive.SHA256,
	}}
}
