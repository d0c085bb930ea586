// Package logging builds the process-wide slog logger.
//
// Loggers are configured from the telemetry.logging section and, when
// redaction is on, pass every attribute through a Redactor. Attributes whose
// key names a secret (password, private_key, private_data, ...) are replaced
// with [REDACTED]; other string values are scanned for PEM private-key blocks,
// password assignments, bearer tokens and LM:NT hash pairs.
//
// Components log through slog.Default().With("component", ...). Values stored
// with WithRunID, WithWorkspace and WithTrigger are appended to records logged
// with a context:
//
//	logger, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging))
//	ctx = logging.WithRunID(ctx, uuid.NewString())
//	logger.InfoContext(ctx, "export started")
package logging
