package policy

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// DefaultIgnoreFile is the per-root file holding extra ignore patterns.
const DefaultIgnoreFile = ".devscanignore"

// Matcher applies gitignore-style patterns relative to a scan root.
// A nil Matcher ignores nothing.
type Matcher struct {
	root     string
	patterns *gitignore.GitIgnore
}

// LoadMatcher reads the ignore file inside root. A missing file yields a
// nil Matcher and no error.
func LoadMatcher(root, fileName string) (*Matcher, error) {
	if fileName == "" {
		fileName = DefaultIgnoreFile
	}
	path := filepath.Join(root, fileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ignore file %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}
	return NewMatcher(root, lines...), nil
}

// NewMatcher compiles the given patterns for paths under root.
func NewMatcher(root string, patterns ...string) *Matcher {
	return &Matcher{
		root:     root,
		patterns: gitignore.CompileIgnoreLines(patterns...),
	}
}

// Ignored reports whether the absolute path matches one of the patterns.
func (m *Matcher) Ignored(path string, isDir bool) bool {
	if m == nil || m.patterns == nil {
		return false
	}
	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir {
		// directory-only patterns ("build/") need the trailing slash
		return m.patterns.MatchesPath(rel) || m.patterns.MatchesPath(rel+"/")
	}
	return m.patterns.MatchesPath(rel)
}
