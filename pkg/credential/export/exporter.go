package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/keyport/pkg/credential"
	"mercator-hq/keyport/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrAlreadyExported is returned by Export on an exporter that already ran.
var ErrAlreadyExported = errors.New("exporter has already run")

// Export status values reported to the MetricsRecorder.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusEmpty   = "empty"
)

// MetricsRecorder receives one observation per export run.
type MetricsRecorder interface {
	RecordExport(mode, status string, duration time.Duration, rows, keyFiles int, archiveBytes int64)
}

type noopRecorder struct{}

func (noopRecorder) RecordExport(string, string, time.Duration, int, int, int64) {}

// Options configures an Exporter.
type Options struct {
	// Mode selects the record shape. Empty means credential.DefaultMode.
	Mode credential.Mode

	// Whitelist restricts the export to these record IDs. Empty exports
	// every record in scope.
	Whitelist []string

	// Scope selects the records visible to the export.
	Scope credential.Scope

	// Root is the directory the staging directory is created in.
	// Empty means os.TempDir().
	Root string

	// Clock names the staging directory and stamps archive entries.
	// Nil means SystemClock.
	Clock Clock

	// RemoveStaging deletes the staging directory after the archive is
	// written. By default it is kept and owned by the caller.
	RemoveStaging bool

	Logger  *slog.Logger
	Metrics MetricsRecorder
	Tracer  *tracing.Tracer
}

// Result describes a finished export.
type Result struct {
	Mode       credential.Mode `json:"mode"`
	StagingDir string          `json:"staging_dir"`
	Archive    *ArchiveInfo    `json:"archive"`
	Rows       int             `json:"rows"`
	KeyFiles   int             `json:"key_files"`
	Duration   time.Duration   `json:"duration"`
}

// ArchivePath returns the path of the produced archive.
func (r *Result) ArchivePath() string {
	return r.Archive.Path
}

// Exporter runs one export: select records, render the manifest and key
// files into a staging directory, and zip it. An Exporter is single use.
type Exporter struct {
	source        credential.Source
	projection    Projection
	whitelist     map[string]struct{}
	scope         credential.Scope
	staging       *Staging
	clock         Clock
	removeStaging bool

	logger  *slog.Logger
	metrics MetricsRecorder
	tracer  *tracing.Tracer

	mu   sync.Mutex
	done bool
}

// New creates an exporter over source. The mode is validated and the staging
// path fixed here; nothing touches the filesystem until Export.
func New(source credential.Source, opts Options) (*Exporter, error) {
	if source == nil {
		return nil, errors.New("record source is required")
	}

	mode := opts.Mode
	if mode == "" {
		mode = credential.DefaultMode
	}
	projection, err := ProjectionFor(mode)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics MetricsRecorder = noopRecorder{}
	if opts.Metrics != nil {
		metrics = opts.Metrics
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = tracing.Noop()
	}

	var whitelist map[string]struct{}
	if len(opts.Whitelist) > 0 {
		whitelist = make(map[string]struct{}, len(opts.Whitelist))
		for _, id := range opts.Whitelist {
			whitelist[id] = struct{}{}
		}
	}

	staging := NewStaging(opts.Root, clock)

	return &Exporter{
		source:        source,
		projection:    projection,
		whitelist:     whitelist,
		scope:         opts.Scope,
		staging:       staging,
		clock:         clock,
		removeStaging: opts.RemoveStaging,
		logger:        logger.With("component", "export", "mode", string(mode), "staging", staging.Name()),
		metrics:       metrics,
		tracer:        tracer,
	}, nil
}

// Mode returns the export mode.
func (e *Exporter) Mode() credential.Mode {
	return e.projection.Mode
}

// Header returns a copy of the manifest header for the export mode.
func (e *Exporter) Header() []string {
	return append([]string(nil), e.projection.Header...)
}

// StagingDir returns the staging directory path.
func (e *Exporter) StagingDir() string {
	return e.staging.Path()
}

// ArchivePath returns where the archive will be written.
func (e *Exporter) ArchivePath() string {
	return e.staging.ArchivePath()
}

// Data returns the records that would be exported: the source's records for
// the mode and scope, filtered by the whitelist, in source order. Nil
// entries from the source are skipped. It has no
// side effects and may be called any number of times.
func (e *Exporter) Data(ctx context.Context) ([]*credential.Record, error) {
	records, err := e.source.Records(ctx, e.projection.Mode, e.scope)
	if err != nil {
		var srcErr *credential.RecordSourceError
		if !errors.As(err, &srcErr) {
			err = credential.NewRecordSourceError("source", "records", err)
		}
		return nil, err
	}
	return filterWhitelist(dropNil(records), e.whitelist), nil
}

// dropNil removes nil entries a misbehaving source may return.
func dropNil(records []*credential.Record) []*credential.Record {
	for i, r := range records {
		if r != nil {
			continue
		}
		kept := append([]*credential.Record(nil), records[:i]...)
		for _, r := range records[i+1:] {
			if r != nil {
				kept = append(kept, r)
			}
		}
		return kept
	}
	return records
}

// FilterWhitelist returns the records whose ID is in ids, preserving order.
// An empty ids returns records unchanged.
func FilterWhitelist(records []*credential.Record, ids []string) []*credential.Record {
	if len(ids) == 0 {
		return records
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return filterWhitelist(records, set)
}

func filterWhitelist(records []*credential.Record, set map[string]struct{}) []*credential.Record {
	if set == nil {
		return records
	}
	filtered := make([]*credential.Record, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if _, ok := set[r.ID]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Export runs the pipeline and returns the archive description. A selection
// that yields no records produces no manifest, so archiving fails with an
// error wrapping credential.ErrEmptyStaging. The staging directory is kept
// on failure for inspection.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return nil, ErrAlreadyExported
	}
	e.done = true
	e.mu.Unlock()

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "export", trace.WithAttributes(
		attribute.String("export.mode", string(e.projection.Mode)),
		attribute.String("export.staging", e.staging.Path()),
	))
	defer span.End()

	result, err := e.run(ctx)
	tracing.SetStatus(span, err)

	duration := time.Since(start)
	if err != nil {
		status := statusError
		if errors.Is(err, credential.ErrEmptyStaging) {
			status = statusEmpty
		}
		e.metrics.RecordExport(string(e.projection.Mode), status, duration, 0, 0, 0)
		e.logger.ErrorContext(ctx, "export failed", "error", err, "duration", duration)
		return nil, err
	}

	result.Duration = duration
	span.SetAttributes(
		attribute.Int("export.rows", result.Rows),
		attribute.Int("export.key_files", result.KeyFiles),
		attribute.Int64("export.archive_bytes", result.Archive.Size),
	)
	e.metrics.RecordExport(string(e.projection.Mode), statusSuccess, duration, result.Rows, result.KeyFiles, result.Archive.Size)
	e.logger.InfoContext(ctx, "export complete",
		"archive", result.Archive.Path,
		"rows", result.Rows,
		"key_files", result.KeyFiles,
		"bytes", result.Archive.Size,
		"duration", duration,
	)
	return result, nil
}

func (e *Exporter) run(ctx context.Context) (*Result, error) {
	records, err := e.Data(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "records selected", "count", len(records))

	if err := e.staging.Prepare(); err != nil {
		return nil, err
	}
	defer func() {
		if err := e.staging.Release(); err != nil {
			e.logger.WarnContext(ctx, "failed to release staging lock", "error", err)
		}
	}()

	rows, keyFiles, err := e.render(ctx, records)
	if err != nil {
		return nil, err
	}

	info, err := e.archive(ctx)
	if err != nil {
		return nil, err
	}

	if e.removeStaging {
		if err := e.staging.Remove(); err != nil {
			e.logger.WarnContext(ctx, "failed to remove staging directory", "error", err)
		}
	}

	return &Result{
		Mode:       e.projection.Mode,
		StagingDir: e.staging.Path(),
		Archive:    info,
		Rows:       rows,
		KeyFiles:   keyFiles,
	}, nil
}

// render projects every record, extracts key material and writes the
// manifest. No manifest is written for an empty selection.
func (e *Exporter) render(ctx context.Context, records []*credential.Record) (int, int, error) {
	_, span := e.tracer.Start(ctx, "export.render")
	defer span.End()

	keys := NewKeyExtractor(e.staging.Path())
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row, err := keys.Extract(record, e.projection.Project(record))
		if err != nil {
			tracing.SetStatus(span, err)
			return 0, 0, err
		}
		rows = append(rows, row)
	}

	if len(rows) > 0 {
		if err := WriteManifest(e.staging.ManifestPath(), e.projection.Header, rows); err != nil {
			tracing.SetStatus(span, err)
			return 0, 0, err
		}
	}

	span.SetAttributes(attribute.Int("export.rows", len(rows)))
	tracing.SetStatus(span, nil)
	return len(rows), keys.Written(), nil
}

func (e *Exporter) archive(ctx context.Context) (*ArchiveInfo, error) {
	_, span := e.tracer.Start(ctx, "export.archive")
	defer span.End()

	assembler := &Assembler{ModTime: e.clock.Now()}
	info, err := assembler.Assemble(e.staging.Path())
	tracing.SetStatus(span, err)
	return info, err
}

// Preview writes the manifest the export would produce to w without touching
// the filesystem. SSH key rows show the key file name instead of the key.
// It returns the number of rows written.
func (e *Exporter) Preview(ctx context.Context, w io.Writer) (int, error) {
	records, err := e.Data(ctx)
	if err != nil {
		return 0, err
	}

	names := newKeyNamer()
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := e.projection.Project(record)
		if record.IsSSHKey() {
			name, _ := names.assign(record)
			row.Set(ColumnPrivateData, name)
		}
		rows = append(rows, row)
	}

	if err := Encode(w, e.projection.Header, rows); err != nil {
		return 0, fmt.Errorf("failed to render preview: %w", err)
	}
	return len(rows), nil
}
