// Package regression replays the project classifier over saved snapshot
// documents and compares its output with the operator's past decisions.
package regression

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/snapshot"
)

// Decision is one accepted or rejected project suggestion.
type Decision struct {
	Path   string
	Kind   models.SuggestionKind
	Status models.DecisionStatus
}

// ScanDecisions groups the decisions made on one scan's suggestions with
// the location of that scan's snapshot document.
type ScanDecisions struct {
	ScanID       string
	SnapshotPath string
	Decisions    []Decision
}

// Report compares one replayed scan with its decisions.
type Report struct {
	ScanID               string   `json:"scan_id"`
	SnapshotPath         string   `json:"snapshot_path"`
	AcceptedCount        int      `json:"accepted_count"`
	RejectedCount        int      `json:"rejected_count"`
	CandidateCount       int      `json:"candidate_count"`
	AcceptedMissingPaths []string `json:"accepted_missing_paths"`
	AcceptedMissingCount int      `json:"accepted_missing_count"`
	RejectedMissingPaths []string `json:"rejected_missing_paths"`
	RejectedMissingCount int      `json:"rejected_missing_count"`
	NewCandidateCount    int      `json:"new_candidate_count"`
}

// Skip records why a scan was not replayed.
type Skip struct {
	ScanID string `json:"scan_id"`
	Reason string `json:"reason"`
}

// Summary aggregates every report.
type Summary struct {
	Reports              []Report `json:"reports"`
	Skipped              []Skip   `json:"skipped"`
	ScansAnalyzed        int      `json:"scans_analyzed"`
	AcceptedMissingCount int      `json:"accepted_missing_count"`
	RejectedMissingCount int      `json:"rejected_missing_count"`
	NewCandidateCount    int      `json:"new_candidate_count"`
}

// HasRegressions reports whether any previously accepted project is no
// longer produced.
func (s *Summary) HasRegressions() bool {
	return s.AcceptedMissingCount > 0
}

// Classifier is the project classifier being checked.
type Classifier interface {
	Classify(roots []*snapshot.DirectoryNode) []models.ProjectSuggestion
}

// Logger receives warnings about unreadable snapshot documents.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// Analyzer replays a classifier over historical scans.
type Analyzer struct {
	classifier Classifier
	logger     Logger
}

// NewAnalyzer returns an analyzer for classifier. logger may be nil.
func NewAnalyzer(classifier Classifier, logger Logger) *Analyzer {
	return &Analyzer{classifier: classifier, logger: logger}
}

// Analyze replays every scan that has a readable snapshot and at least one
// accepted or rejected decision. Other scans are skipped, never failed.
// The only error is cancellation of ctx.
func (a *Analyzer) Analyze(ctx context.Context, scans []ScanDecisions) (*Summary, error) {
	summary := &Summary{
		Reports: make([]Report, 0, len(scans)),
		Skipped: make([]Skip, 0),
	}

	for _, scan := range scans {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled: %w", err)
		}

		decisions := decided(scan.Decisions)
		if len(decisions) == 0 {
			summary.Skipped = append(summary.Skipped, Skip{ScanID: scan.ScanID, Reason: "no decisions"})
			continue
		}

		snap, err := snapshot.Read(scan.SnapshotPath)
		if err != nil {
			reason := "snapshot unreadable"
			if errors.Is(err, fs.ErrNotExist) {
				reason = "snapshot missing"
			} else if a.logger != nil {
				a.logger.Warnf("Skipping scan %s: %v", scan.ScanID, err)
			}
			summary.Skipped = append(summary.Skipped, Skip{ScanID: scan.ScanID, Reason: reason})
			continue
		}

		report := compare(scan, decisions, a.classifier.Classify(snap.Roots))
		summary.Reports = append(summary.Reports, report)
		summary.ScansAnalyzed++
		summary.AcceptedMissingCount += report.AcceptedMissingCount
		summary.RejectedMissingCount += report.RejectedMissingCount
		summary.NewCandidateCount += report.NewCandidateCount
	}

	return summary, nil
}

// decided drops pending entries.
func decided(in []Decision) []Decision {
	out := make([]Decision, 0, len(in))
	for _, d := range in {
		if d.Status == models.StatusAccepted || d.Status == models.StatusRejected {
			out = append(out, d)
		}
	}
	return out
}

// compare matches replayed candidates to decisions by case-insensitive path.
func compare(scan ScanDecisions, decisions []Decision, candidates []models.ProjectSuggestion) Report {
	produced := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		produced[pathKey(c.Path)] = true
	}

	report := Report{
		ScanID:               scan.ScanID,
		SnapshotPath:         scan.SnapshotPath,
		CandidateCount:       len(produced),
		AcceptedMissingPaths: make([]string, 0),
		RejectedMissingPaths: make([]string, 0),
	}

	known := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		key := pathKey(d.Path)
		if known[key] {
			continue
		}
		known[key] = true

		switch d.Status {
		case models.StatusAccepted:
			report.AcceptedCount++
			if !produced[key] {
				report.AcceptedMissingPaths = append(report.AcceptedMissingPaths, d.Path)
			}
		case models.StatusRejected:
			report.RejectedCount++
			if !produced[key] {
				report.RejectedMissingPaths = append(report.RejectedMissingPaths, d.Path)
			}
		}
	}

	for key := range produced {
		if !known[key] {
			report.NewCandidateCount++
		}
	}

	sortPaths(report.AcceptedMissingPaths)
	sortPaths(report.RejectedMissingPaths)
	report.AcceptedMissingCount = len(report.AcceptedMissingPaths)
	report.RejectedMissingCount = len(report.RejectedMissingPaths)
	return report
}

func pathKey(path string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(path), `/\`))
}

func sortPaths(paths []string) {
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})
}
