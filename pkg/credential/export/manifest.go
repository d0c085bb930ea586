package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"mercator-hq/keyport/pkg/credential"
)

// ManifestFileName is the manifest's name at the archive root.
const ManifestFileName = "manifest.csv"

// Encode writes the header row followed by one CSV row per entry in rows.
// Every row must have exactly the header's fields in the header's order.
func Encode(w io.Writer, header []string, rows []Row) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}

	for i, row := range rows {
		if err := checkShape(header, row); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := writer.Write(row.Values()); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteManifest creates path exclusively and writes the manifest to it. The
// file is flushed, synced and closed before WriteManifest returns. Failures
// are reported as *credential.ManifestWriteError.
func WriteManifest(path string, header []string, rows []Row) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return credential.NewManifestWriteError(path, len(rows), err)
	}

	if err := Encode(f, header, rows); err != nil {
		f.Close()
		return credential.NewManifestWriteError(path, len(rows), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return credential.NewManifestWriteError(path, len(rows), err)
	}
	if err := f.Close(); err != nil {
		return credential.NewManifestWriteError(path, len(rows), err)
	}
	return nil
}

func checkShape(header []string, row Row) error {
	if len(row) != len(header) {
		return fmt.Errorf("has %d fields, header has %d", len(row), len(header))
	}
	for i, f := range row {
		if f.Name != header[i] {
			return fmt.Errorf("field %d is %q, header expects %q", i, f.Name, header[i])
		}
	}
	return nil
}
