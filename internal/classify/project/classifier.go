// Package project classifies the directories of a snapshot into scored,
// fingerprinted project candidates.
package project

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/harrison/devscan/internal/fingerprint"
	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/snapshot"
)

// FingerprintVersion prefixes every project fingerprint.
const FingerprintVersion = "v1"

// Classifier turns snapshot trees into project suggestions. It holds no
// state between calls.
type Classifier struct {
	// Now stamps CreatedAt; defaults to time.Now.
	Now func() time.Time
}

// NewClassifier returns a Classifier using the wall clock.
func NewClassifier() *Classifier {
	return &Classifier{Now: time.Now}
}

// candidate is a suggestion under construction. Markers of suppressed
// module directories are folded into their solution's candidate before it
// is finalised.
type candidate struct {
	node    *snapshot.DirectoryNode
	kind    models.SuggestionKind
	reason  string
	markers map[string]bool
	hist    map[string]int
}

type walkState struct {
	out []*candidate
}

// Classify visits every directory bottom-up and returns the suggestions
// ordered by score, then case-insensitive path.
func (c *Classifier) Classify(roots []*snapshot.DirectoryNode) []models.ProjectSuggestion {
	st := &walkState{}
	for _, root := range roots {
		if root != nil {
			c.visit(root, nil, st)
		}
	}

	now := time.Now
	if c != nil && c.Now != nil {
		now = c.Now
	}
	created := now().UTC()

	suggestions := make([]models.ProjectSuggestion, 0, len(st.out))
	for _, cand := range st.out {
		suggestions = append(suggestions, cand.suggestion(created))
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return strings.ToLower(suggestions[i].Path) < strings.ToLower(suggestions[j].Path)
	})
	return suggestions
}

// visitResult is what a directory hands to its parent.
type visitResult struct {
	hist       map[string]int
	singleFile bool
}

// visit classifies d. boundary is the candidate of the nearest enclosing
// solution directory, or nil.
func (c *Classifier) visit(d *snapshot.DirectoryNode, boundary *candidate, st *walkState) visitResult {
	local := localMarkers(d)

	var self *candidate
	suppressed := false
	switch {
	case len(local) == 0:
	case boundary != nil && !local[markerSolution] && onlyModuleMarkers(local):
		suppressed = true
		for m := range local {
			boundary.markers[m] = true
		}
	default:
		self = &candidate{node: d, kind: models.KindProjectRoot, markers: local}
	}

	childBoundary := boundary
	if self != nil && local[markerSolution] {
		childBoundary = self
	}

	hist := localHistogram(d)
	singleFileChildren := 0
	for _, child := range d.Directories {
		if child.Name == markerGit {
			continue
		}
		res := c.visit(child, childBoundary, st)
		for ext, n := range res.hist {
			hist[ext] += n
		}
		if res.singleFile {
			singleFileChildren++
		}
	}

	result := visitResult{hist: hist}
	if self == nil && !suppressed && !skipsFallbacks(d.Name) {
		self = fallback(d, singleFileChildren)
		if self != nil && self.kind == models.KindSingleFileMiniProject {
			result.singleFile = true
		}
	}
	if self != nil {
		self.hist = hist
		if self.reason == "" {
			self.reason = "project markers: " + strings.Join(sortedKeys(self.markers), ", ")
		}
		st.out = append(st.out, self)
	}
	return result
}

// localMarkers detects markers among d's immediate children.
func localMarkers(d *snapshot.DirectoryNode) map[string]bool {
	markers := make(map[string]bool)
	for _, child := range d.Directories {
		if child.Name == markerGit {
			markers[markerGit] = true
		}
	}
	for _, f := range d.Files {
		if f.Name == markerGit {
			// worktrees and submodules use a .git file
			markers[markerGit] = true
			continue
		}
		if m, ok := markerForFile(f.Name); ok {
			markers[m] = true
		}
	}
	return markers
}

func onlyModuleMarkers(markers map[string]bool) bool {
	for m := range markers {
		if !moduleMarkers[m] {
			return false
		}
	}
	return true
}

func localHistogram(d *snapshot.DirectoryNode) map[string]int {
	hist := make(map[string]int)
	for _, f := range d.Files {
		if ext := fileExtension(f); ext != "" {
			hist[ext]++
		}
	}
	return hist
}

func fileExtension(f *snapshot.FileNode) string {
	return strings.TrimPrefix(strings.ToLower(f.Extension), ".")
}

// fallback applies the marker-less heuristics in order and returns at most
// one candidate.
func fallback(d *snapshot.DirectoryNode, singleFileChildren int) *candidate {
	local := localHistogram(d)

	if len(d.Files) == 1 && len(d.Directories) == 0 && singleFileExtensions[fileExtension(d.Files[0])] {
		return &candidate{
			node:    d,
			kind:    models.KindSingleFileMiniProject,
			reason:  fmt.Sprintf("single source file %s", d.Files[0].Name),
			markers: map[string]bool{markerSingleFile: true},
		}
	}

	if hasAny(local, nativeSourceExtensions) {
		if hasMainFile(d) {
			return &candidate{
				node:    d,
				kind:    models.KindProjectRoot,
				reason:  "native sources with a main entry point",
				markers: map[string]bool{markerMainSource: true},
			}
		}
		if hasAny(local, headerExtensions) {
			return &candidate{
				node:    d,
				kind:    models.KindProjectRoot,
				reason:  "native sources with headers",
				markers: map[string]bool{markerHeaders: true},
			}
		}
	}

	if isStaticSite(d, local) {
		return &candidate{
			node:    d,
			kind:    models.KindProjectRoot,
			reason:  "static site layout",
			markers: map[string]bool{markerIndexHTML: true},
		}
	}

	if singleFileChildren >= 2 {
		return &candidate{
			node:    d,
			kind:    models.KindCollection,
			reason:  fmt.Sprintf("collection of %d single-file projects", singleFileChildren),
			markers: map[string]bool{markerCollection: true},
		}
	}
	return nil
}

func hasAny(hist map[string]int, exts map[string]bool) bool {
	for ext := range hist {
		if exts[ext] {
			return true
		}
	}
	return false
}

func hasMainFile(d *snapshot.DirectoryNode) bool {
	for _, f := range d.Files {
		name := strings.ToLower(f.Name)
		if strings.HasPrefix(name, "main.") && nativeSourceExtensions[fileExtension(f)] {
			return true
		}
	}
	return false
}

func isStaticSite(d *snapshot.DirectoryNode, local map[string]int) bool {
	hasIndex := false
	for _, f := range d.Files {
		if strings.EqualFold(f.Name, "index.html") {
			hasIndex = true
			break
		}
	}
	if !hasIndex {
		return false
	}
	for _, child := range d.Directories {
		name := strings.ToLower(child.Name)
		if name == "css" || name == "js" {
			return true
		}
	}
	return local["html"]+local["htm"] >= 2
}

// suggestion finalises the candidate.
func (cand *candidate) suggestion(created time.Time) models.ProjectSuggestion {
	markers := sortedKeys(cand.markers)
	return models.ProjectSuggestion{
		Name:             cand.node.Name,
		Path:             cand.node.Path,
		Kind:             cand.kind,
		Score:            Score(markers),
		Reason:           cand.reason,
		ExtensionSummary: models.FormatExtensionSummary(cand.hist),
		Markers:          markers,
		TechHints:        TechHints(markers, cand.hist),
		Fingerprint:      Fingerprint(cand.kind, markers, cand.hist, cand.node),
		CreatedAt:        created,
	}
}

// Score is the base score plus each marker's weight, clamped and rounded
// to two decimals.
func Score(markers []string) float64 {
	score := baseScore
	for _, m := range markers {
		score += markerWeight(m)
	}
	if score > maxScore {
		score = maxScore
	}
	return math.Round(score*100) / 100
}

// TechHints derives the sorted hint vocabulary from markers and the
// extension histogram.
func TechHints(markers []string, hist map[string]int) []string {
	set := make(map[string]bool)
	for _, m := range markers {
		for _, h := range markerHints[m] {
			set[h] = true
		}
	}
	for ext, n := range hist {
		if h, ok := extensionHints[ext]; ok && n > 0 {
			set[h] = true
		}
	}
	return sortedKeys(set)
}

// Fingerprint hashes the structural inputs of a suggestion: kind, markers,
// extension counts, and the directory's immediate child names. File
// content never contributes.
func Fingerprint(kind models.SuggestionKind, markers []string, hist map[string]int, d *snapshot.DirectoryNode) string {
	exts := make([]string, 0, len(hist))
	for ext, n := range hist {
		exts = append(exts, ext+"="+strconv.Itoa(n))
	}
	files := make([]string, 0, len(d.Files))
	for _, f := range d.Files {
		files = append(files, f.Name)
	}
	dirs := make([]string, 0, len(d.Directories))
	for _, child := range d.Directories {
		dirs = append(dirs, child.Name)
	}

	return fingerprint.New(FingerprintVersion).
		Field(string(kind)).
		Set("m:", markers).
		Set("e:", exts).
		Field("df:" + strconv.Itoa(len(dirs))).
		Field("ff:" + strconv.Itoa(len(files))).
		Set("f:", files).
		Set("d:", dirs).
		Sum()
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
