package schedule

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/keyport/pkg/credential/export"
)

var archiveName = regexp.MustCompile(`^` + regexp.QuoteMeta(export.StagingPrefix) + `(\d+)\.zip$`)

// Pruner keeps the newest export archives in a directory and removes the
// rest. Only files named export-<unix seconds>.zip are considered, so
// unrelated files are never touched. A staging directory left next to a
// removed archive is removed with it.
type Pruner struct {
	dir      string
	keepLast int
	logger   *slog.Logger
}

// NewPruner creates a pruner for dir. keepLast 0 disables pruning.
func NewPruner(dir string, keepLast int) *Pruner {
	return &Pruner{
		dir:      dir,
		keepLast: keepLast,
		logger:   slog.Default().With("component", "credential.schedule.pruner"),
	}
}

type archiveEntry struct {
	name  string
	epoch int64
}

// Archives returns the export archive names in dir, oldest first.
func (p *Pruner) Archives() ([]string, error) {
	entries, err := p.list()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

func (p *Pruner) list() ([]archiveEntry, error) {
	dirEntries, err := os.ReadDir(p.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var archives []archiveEntry
	for _, d := range dirEntries {
		if !d.Type().IsRegular() {
			continue
		}
		m := archiveName.FindStringSubmatch(d.Name())
		if m == nil {
			continue
		}
		epoch, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		archives = append(archives, archiveEntry{name: d.Name(), epoch: epoch})
	}

	sort.Slice(archives, func(i, j int) bool {
		if archives[i].epoch != archives[j].epoch {
			return archives[i].epoch < archives[j].epoch
		}
		return archives[i].name < archives[j].name
	})
	return archives, nil
}

// Prune removes the oldest archives beyond keepLast and returns how many
// were removed.
func (p *Pruner) Prune() (int, error) {
	if p.keepLast <= 0 {
		return 0, nil
	}

	archives, err := p.list()
	if err != nil {
		return 0, err
	}
	if len(archives) <= p.keepLast {
		p.logger.Debug("archive count within limit", "current", len(archives), "keep_last", p.keepLast)
		return 0, nil
	}

	removed := 0
	for _, a := range archives[:len(archives)-p.keepLast] {
		path := filepath.Join(p.dir, a.name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("failed to remove archive %s: %w", a.name, err)
		}
		removed++

		staging := filepath.Join(p.dir, strings.TrimSuffix(a.name, ".zip"))
		if info, err := os.Stat(staging); err == nil && info.IsDir() {
			if err := os.RemoveAll(staging); err != nil {
				p.logger.Warn("failed to remove staging directory", "path", staging, "error", err)
			}
		}
	}

	p.logger.Info("pruned export archives", "removed", removed, "keep_last", p.keepLast)
	return removed, nil
}
