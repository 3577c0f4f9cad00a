package snapshot

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/harrison/devscan/internal/filelock"
)

// DocumentPath returns where the snapshot for scanID is stored under dir.
func DocumentPath(dir, scanID string) string {
	return filepath.Join(dir, scanID+".json")
}

// Write persists snap atomically while holding the document's file lock.
func Write(path string, snap *Snapshot) error {
	if snap.Version == 0 {
		snap.Version = DocumentVersion
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := filelock.LockAndWrite(path, data); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// Read loads a snapshot document. Documents written by older or newer
// builds are accepted; unknown fields are ignored and missing slices are
// treated as empty.
func Read(path string) (*Snapshot, error) {
	data, err := filelock.LockAndRead(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	for _, root := range snap.Roots {
		normalize(root)
	}
	return &snap, nil
}

func normalize(d *DirectoryNode) {
	if d == nil {
		return
	}
	if d.Directories == nil {
		d.Directories = []*DirectoryNode{}
	}
	if d.Files == nil {
		d.Files = []*FileNode{}
	}
	for _, child := range d.Directories {
		normalize(child)
	}
}
