package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Archive writes snapshots as JSON files, one per reading, for sharing or
// diffing outside the database.
type Archive struct {
	dir string
}

// archiveFile is the on-disk shape. Raw bytes are kept so the file can be
// re-decoded under another layout.
type archiveFile struct {
	*Snapshot
	Raw []byte `json:"raw"`
}

// NewArchive creates an archive rooted at dir.
func NewArchive(dir string) *Archive {
	return &Archive{dir: dir}
}

func archiveName(slot uint64, ts int64) string {
	return fmt.Sprintf("snapshot_%d_%d.json", slot, ts)
}

// Save writes snap to disk and returns the file path.
func (a *Archive) Save(snap *Snapshot) (string, error) {
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive dir: %w", err)
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}

	path := filepath.Join(a.dir, archiveName(snap.Slot, snap.CreatedAt.UnixMilli()))
	data, err := json.MarshalIndent(archiveFile{Snapshot: snap, Raw: snap.Raw}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Debug("Snapshot archived", slog.Uint64("slot", snap.Slot), slog.String("path", path))
	return path, nil
}

type archiveEntry struct {
	path string
	slot uint64
	ts   int64
}

// entries lists archive files, newest slot first.
func (a *Archive) entries() ([]archiveEntry, error) {
	dirEntries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive dir: %w", err)
	}

	var files []archiveEntry
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		var e archiveEntry
		if _, err := fmt.Sscanf(entry.Name(), "snapshot_%d_%d.json", &e.slot, &e.ts); err != nil {
			continue
		}
		e.path = filepath.Join(a.dir, entry.Name())
		files = append(files, e)
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].slot != files[j].slot {
			return files[i].slot > files[j].slot
		}
		return files[i].ts > files[j].ts
	})
	return files, nil
}

// LoadLatest reads the highest-slot file. Returns nil if the archive is
// empty.
func (a *Archive) LoadLatest() (*Snapshot, error) {
	files, err := a.entries()
	if err != nil || len(files) == 0 {
		return nil, err
	}

	data, err := os.ReadFile(files[0].path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	in := archiveFile{Snapshot: &Snapshot{}}
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	in.Snapshot.Raw = in.Raw
	return in.Snapshot, nil
}

// Cleanup removes all but the newest keepCount files.
func (a *Archive) Cleanup(keepCount int) error {
	files, err := a.entries()
	if err != nil {
		return err
	}
	if len(files) <= keepCount {
		return nil
	}

	for _, f := range files[keepCount:] {
		if err := os.Remove(f.path); err != nil {
			slog.Warn("Failed to remove old snapshot", slog.String("path", f.path), slog.Any("error", err))
		}
	}
	return nil
}
