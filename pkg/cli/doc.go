/*
Package cli provides helpers shared by the keyport command.

Output Formatting:

Results are rendered as text, JSON or CSV. Values implementing Table are
aligned in columns for text output and are the only values CSV output
accepts:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, listing); err != nil {
		return err
	}

Errors:

Commands wrap failures in CommandError, and bad flag or config values in
ConfigError. ExitCode maps the returned error to the process exit status.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
