// Package snapshot walks a root directory into an in-memory tree, samples
// the leading lines of recognised text files, and persists the tree as the
// durable JSON document consumed by the classifiers.
package snapshot

import "time"

// DocumentVersion is the current snapshot document version. Readers accept
// any version and ignore fields they do not know.
const DocumentVersion = 1

// Snapshot is the result of one completed scan. It is not modified after
// the build pass returns.
type Snapshot struct {
	Version      int              `json:"version"`
	ScanID       string           `json:"scanId"`
	StartedAt    time.Time        `json:"startedAt"`
	FinishedAt   time.Time        `json:"finishedAt"`
	DepthLimit   *int             `json:"depthLimit,omitempty"`
	TotalFiles   *int64           `json:"totalFiles,omitempty"`
	FilesScanned int64            `json:"filesScanned"`
	Roots        []*DirectoryNode `json:"roots"`
}

// DirectoryNode is one directory in the walk. A directory beyond the depth
// limit appears with no children.
type DirectoryNode struct {
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	Directories []*DirectoryNode `json:"directories"`
	Files       []*FileNode      `json:"files"`
}

// FileNode is a regular file. Extension keeps its leading dot.
type FileNode struct {
	Name            string   `json:"name"`
	Path            string   `json:"path"`
	Extension       string   `json:"extension"`
	Size            int64    `json:"size"`
	SampleLines     []string `json:"sampleLines,omitempty"`
	SampleTruncated bool     `json:"sampleTruncated,omitempty"`
}

// FileCount returns the number of files in the subtree rooted at d.
func (d *DirectoryNode) FileCount() int {
	if d == nil {
		return 0
	}
	n := len(d.Files)
	for _, child := range d.Directories {
		n += child.FileCount()
	}
	return n
}
