package export

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mercator-hq/keyport/pkg/credential"
)

// ArchiveInfo describes an assembled archive.
type ArchiveInfo struct {
	// Path is the archive location, a sibling of the staging directory.
	Path string `json:"path"`

	// Entries lists in-archive names relative to the staging directory.
	Entries []string `json:"entries"`

	// Size is the archive size in bytes.
	Size int64 `json:"size"`

	// SHA256 is the hex-encoded digest of the archive file.
	SHA256 string `json:"sha256"`
}

// ArchivePath returns the archive location for stagingDir: the same path with
// ".zip" appended, so the archive sits next to the directory, not inside it.
func ArchivePath(stagingDir string) string {
	return filepath.Clean(stagingDir) + ".zip"
}

// Assembler packages a staging directory into a zip archive.
type Assembler struct {
	// ModTime is stamped on every entry. Zero uses each file's own mtime.
	// A fixed value makes archives byte-reproducible.
	ModTime time.Time
}

// Assemble writes every regular file under stagingDir into ArchivePath(stagingDir),
// in lexical order, using slash-separated paths relative to stagingDir as
// entry names. A staging directory without files is an error wrapping
// credential.ErrEmptyStaging. On failure the partial archive is removed and
// the staging directory is left untouched.
func (a *Assembler) Assemble(stagingDir string) (*ArchiveInfo, error) {
	files, err := listFiles(stagingDir)
	if err != nil {
		return nil, credential.NewArchiveError(stagingDir, err)
	}
	if len(files) == 0 {
		return nil, credential.NewArchiveError(stagingDir, credential.ErrEmptyStaging)
	}

	archivePath := ArchivePath(stagingDir)
	out, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, credential.NewArchiveError(stagingDir, fmt.Errorf("failed to create archive: %w", err))
	}

	info, err := a.write(out, stagingDir, files)
	if err != nil {
		out.Close()
		os.Remove(archivePath)
		return nil, credential.NewArchiveError(stagingDir, err)
	}
	return info, nil
}

func (a *Assembler) write(out *os.File, stagingDir string, files []string) (*ArchiveInfo, error) {

	hash := sha256.New()
	counter := &countingWriter{}
	zipWriter := zip.NewWriter(io.MultiWriter(out, hash, counter))

	entries := make([]string, 0, len(files))
	for _, rel := range files {
		name := filepath.ToSlash(rel)
		if err := a.addFile(zipWriter, filepath.Join(stagingDir, rel), name); err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", name, err)
		}
		entries = append(entries, name)
	}

	if err := zipWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	return &ArchiveInfo{
		Path:    out.Name(),
		Entries: entries,
		Size:    counter.n,
		SHA256:  hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

func (a *Assembler) addFile(zipWriter *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return err
	}

	modTime := a.ModTime
	if modTime.IsZero() {
		modTime = stat.ModTime()
	}

	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: modTime,
	}
	header.SetMode(stat.Mode().Perm())

	w, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// listFiles returns the regular files under root as paths relative to root,
// in lexical order.
func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("path %s escapes %s", path, root)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// MoveArchive moves the archive at src into dir, keeping its base name, and
// returns the new path. It falls back to copy and remove when a rename is
// not possible, e.g. across filesystems. An existing file at the
// destination is never replaced.
func MoveArchive(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	dst := filepath.Join(dir, filepath.Base(src))
	if filepath.Clean(dst) == filepath.Clean(src) {
		return src, nil
	}
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("failed to move archive: %s: %w", dst, fs.ErrExist)
	}

	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	if err := copyFile(src, dst); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to move archive: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return "", fmt.Errorf("failed to remove moved archive: %w", err)
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
