package models

import (
	"fmt"
	"strings"
)

// ScanMode selects how a scan resolves the set of roots it walks.
type ScanMode int

const (
	// ModeRoots walks one specific stored root.
	ModeRoots ScanMode = iota
	// ModeWhole walks every ready, fixed local volume.
	ModeWhole
	// ModeChanged walks roots flagged dirty.
	ModeChanged
)

// String returns the wire name of the mode.
func (m ScanMode) String() string {
	switch m {
	case ModeRoots:
		return "roots"
	case ModeWhole:
		return "whole"
	case ModeChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// ParseScanMode converts a wire name into a ScanMode.
func ParseScanMode(s string) (ScanMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "roots", "root":
		return ModeRoots, nil
	case "whole":
		return ModeWhole, nil
	case "changed":
		return ModeChanged, nil
	default:
		return 0, fmt.Errorf("unknown scan mode %q", s)
	}
}

// ScanState is the lifecycle state of a single scan.
type ScanState int

const (
	StateQueued ScanState = iota
	StateCounting
	StateRunning
	StatePaused
	StateCompleted
	StateFailed
	StateStopped
)

// Queue reasons reported while a scan is blocked on a lock.
const (
	ReasonWaitingWhole  = "waiting for whole-computer scan"
	ReasonWaitingOthers = "waiting for other scans to finish"
	reasonDiskPrefix    = "waiting for disk "
)

// ReasonWaitingDisk returns the queue reason for a scan blocked on a disk lock.
func ReasonWaitingDisk(diskKey string) string {
	return reasonDiskPrefix + diskKey
}

// String returns the display name of the state.
func (s ScanState) String() string {
	switch s {
	case StateQueued:
		return "Queued"
	case StateCounting:
		return "Counting"
	case StateRunning:
		return "Running"
	case StatePaused:
		return "Paused"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ParseScanState converts a display name back into a ScanState.
func ParseScanState(s string) (ScanState, error) {
	for st := StateQueued; st <= StateStopped; st++ {
		if strings.EqualFold(st.String(), s) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown scan state %q", s)
}

// IsTerminal reports whether the state is final.
func (s ScanState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateStopped:
		return true
	default:
		return false
	}
}

// IsBlocking reports whether a scan in this state, with the given queue
// reason, prevents a whole-machine scan from proceeding. Scans queued
// behind the whole-machine lock itself do not block it.
func (s ScanState) IsBlocking(queueReason string) bool {
	switch s {
	case StateRunning, StateCounting, StatePaused:
		return true
	case StateQueued:
		return queueReason != ReasonWaitingWhole
	case StateCompleted, StateFailed, StateStopped:
		return false
	default:
		return false
	}
}

// ScanRequest is what a caller submits to start a scan.
type ScanRequest struct {
	Mode ScanMode
	// RootID references a stored root. Required for ModeRoots, optional
	// for ModeChanged (all dirty roots when zero), ignored for ModeWhole.
	RootID int64
	// DepthLimit bounds recursion; nil means unlimited.
	DepthLimit *int
}

// RootRecord is a stored scan root resolved to a filesystem location.
type RootRecord struct {
	ID      int64
	Path    string
	DiskKey string
	Dirty   bool
}

// ScanProgress is the progress/lifecycle event emitted for a scan.
type ScanProgress struct {
	ScanID       string
	Mode         ScanMode
	State        ScanState
	FilesScanned int64
	TotalFiles   *int64
	CurrentPath  string
	QueueReason  string
	DiskKey      string
	Error        string
}

// Percent returns completion in [0,100], or -1 when no total is known.
func (p ScanProgress) Percent() int {
	if p.TotalFiles == nil || *p.TotalFiles <= 0 {
		return -1
	}
	perc := int(p.FilesScanned * 100 / *p.TotalFiles)
	if perc > 100 {
		perc = 100
	}
	return perc
}
