package models

import (
	"fmt"
	"strings"
	"time"
)

// SuggestionKind classifies a detected project candidate.
type SuggestionKind string

const (
	KindProjectRoot           SuggestionKind = "ProjectRoot"
	KindSingleFileMiniProject SuggestionKind = "SingleFileMiniProject"
	KindCollection            SuggestionKind = "Collection"
)

// ParseSuggestionKind validates a stored kind string.
func ParseSuggestionKind(s string) (SuggestionKind, error) {
	switch SuggestionKind(s) {
	case KindProjectRoot, KindSingleFileMiniProject, KindCollection:
		return SuggestionKind(s), nil
	default:
		return "", fmt.Errorf("unknown suggestion kind %q", s)
	}
}

// ProjectSuggestion is a scored project candidate produced by the project
// classifier, before it is persisted.
type ProjectSuggestion struct {
	Name             string         `json:"name"`
	Path             string         `json:"path"`
	Kind             SuggestionKind `json:"kind"`
	Score            float64        `json:"score"` // 0-0.99
	Reason           string         `json:"reason"`
	ExtensionSummary string         `json:"extension_summary"`
	Markers          []string       `json:"markers"`
	TechHints        []string       `json:"tech_hints"`
	Fingerprint      string         `json:"fingerprint"`
	CreatedAt        time.Time      `json:"created_at"`
}

// TagSuggestionType says whether a tag suggestion targets an existing tag.
type TagSuggestionType string

const (
	TagAssignExisting TagSuggestionType = "AssignExisting"
	TagCreateNew      TagSuggestionType = "CreateNew"
)

// TagSource identifies the classifier that produced a tag suggestion.
type TagSource string

const (
	SourceHeuristic TagSource = "Heuristic"
	SourceAi        TagSource = "Ai"
)

// TagSuggestion is a scored tag candidate for a persisted project.
type TagSuggestion struct {
	TagID       *int64            `json:"tag_id,omitempty"`
	TagName     string            `json:"tag_name"`
	Type        TagSuggestionType `json:"type"`
	Source      TagSource         `json:"source"`
	Confidence  float64           `json:"confidence"` // 0-1
	Reason      string            `json:"reason"`
	Fingerprint string            `json:"fingerprint"`
	CreatedAt   time.Time         `json:"created_at"`
}

// DecisionStatus is the operator's verdict on a suggestion.
type DecisionStatus string

const (
	StatusPending  DecisionStatus = "Pending"
	StatusAccepted DecisionStatus = "Accepted"
	StatusRejected DecisionStatus = "Rejected"
)

// ParseDecisionStatus accepts any casing of a decision status.
func ParseDecisionStatus(s string) (DecisionStatus, error) {
	for _, st := range []DecisionStatus{StatusPending, StatusAccepted, StatusRejected} {
		if strings.EqualFold(string(st), strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown decision status %q", s)
}
