package project

import (
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/snapshot"
)

// tree builds a snapshot from slash-separated relative file paths. A path
// ending in "/" creates an empty directory.
func tree(rootPath string, paths ...string) *snapshot.DirectoryNode {
	root := &snapshot.DirectoryNode{Name: path.Base(rootPath), Path: rootPath, Directories: []*snapshot.DirectoryNode{}, Files: []*snapshot.FileNode{}}
	for _, p := range paths {
		parts := strings.Split(strings.TrimSuffix(p, "/"), "/")
		dir := root
		dirParts := parts[:len(parts)-1]
		if strings.HasSuffix(p, "/") {
			dirParts = parts
		}
		for _, part := range dirParts {
			var next *snapshot.DirectoryNode
			for _, child := range dir.Directories {
				if child.Name == part {
					next = child
				}
			}
			if next == nil {
				next = &snapshot.DirectoryNode{Name: part, Path: dir.Path + "/" + part, Directories: []*snapshot.DirectoryNode{}, Files: []*snapshot.FileNode{}}
				dir.Directories = append(dir.Directories, next)
			}
			dir = next
		}
		if strings.HasSuffix(p, "/") {
			continue
		}
		name := parts[len(parts)-1]
		ext := ""
		if i := strings.LastIndex(name, "."); i > 0 {
			ext = strings.ToLower(name[i:])
		}
		dir.Files = append(dir.Files, &snapshot.FileNode{Name: name, Path: dir.Path + "/" + name, Extension: ext, Size: 1})
	}
	return root
}

func fixedClassifier() *Classifier {
	return &Classifier{Now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }}
}

func byPath(suggestions []models.ProjectSuggestion) map[string]models.ProjectSuggestion {
	out := make(map[string]models.ProjectSuggestion, len(suggestions))
	for _, s := range suggestions {
		out[s.Path] = s
	}
	return out
}

func TestSolutionSuppressesModuleDirectories(t *testing.T) {
	root := tree("/src/root", "Api.sln", "Src/Api.csproj", "Src/Program.cs")

	got := fixedClassifier().Classify([]*snapshot.DirectoryNode{root})
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, "/src/root", s.Path)
	assert.Equal(t, models.KindProjectRoot, s.Kind)
	assert.Equal(t, []string{".csproj", ".sln"}, s.Markers)
	assert.Contains(t, s.TechHints, "csharp")
	assert.Contains(t, s.TechHints, ".net")
	assert.Equal(t, 0.90, s.Score)
	assert.Equal(t, "cs=1, csproj=1, sln=1", s.ExtensionSummary)
}

func TestNestedSolutionStartsNewBoundary(t *testing.T) {
	root := tree("/src/outer",
		"Outer.sln",
		"App/App.csproj",
		"Tools/Tools.sln",
		"Tools/Gen/Gen.vcxproj",
		"Tools/Gen/gen.cpp",
	)

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	require.Len(t, got, 2)
	assert.Equal(t, []string{".csproj", ".sln"}, got["/src/outer"].Markers, "inner module markers stay with the inner solution")
	assert.Equal(t, []string{".sln", ".vcxproj"}, got["/src/outer/Tools"].Markers)
	assert.Equal(t, "cpp=1, sln=1, vcxproj=1", got["/src/outer/Tools"].ExtensionSummary)
	assert.Equal(t, "sln=2, cpp=1, csproj=1, vcxproj=1", got["/src/outer"].ExtensionSummary, "histograms still aggregate upward")
}

func TestProjectOutsideSolutionIsNotSuppressed(t *testing.T) {
	root := tree("/src/lib", "Lib/Lib.csproj", "Lib/Class1.cs")

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	require.Contains(t, got, "/src/lib/Lib")
	assert.Equal(t, []string{".csproj"}, got["/src/lib/Lib"].Markers)
	assert.Equal(t, 0.70, got["/src/lib/Lib"].Score)
}

func TestModuleWithIndependentMarkerKeepsSuggestion(t *testing.T) {
	root := tree("/src/sol", "All.sln", "Web/Web.csproj", "Web/package.json")

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	require.Contains(t, got, "/src/sol/Web")
	assert.Equal(t, []string{".csproj", "package.json"}, got["/src/sol/Web"].Markers)
	assert.Equal(t, []string{".sln"}, got["/src/sol"].Markers)
}

func TestSingleFileCandidate(t *testing.T) {
	root := tree("/src/scripts", "tool/script.py")

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	s, ok := got["/src/scripts/tool"]
	require.True(t, ok)
	assert.Equal(t, models.KindSingleFileMiniProject, s.Kind)
	assert.Equal(t, []string{"single-source-file"}, s.Markers)
	assert.Equal(t, 0.62, s.Score)
	assert.Equal(t, []string{"python"}, s.TechHints)
}

func TestFallbackHeuristics(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		wantMarker string
		wantReason string
		wantScore  float64
	}{
		{"native with main", []string{"main.c", "util.c"}, "main-source", "native sources with a main entry point", 0.64},
		{"native with headers", []string{"engine.cpp", "engine.h"}, "native-headers", "native sources with headers", 0.56},
		{"static site with css dir", []string{"index.html", "css/site.css"}, "index.html", "static site layout", 0.60},
		{"static site with pages", []string{"index.html", "about.html"}, "index.html", "static site layout", 0.60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := tree("/p", tt.files...)
			got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
			s, ok := got["/p"]
			require.True(t, ok)
			assert.Equal(t, models.KindProjectRoot, s.Kind)
			assert.Equal(t, []string{tt.wantMarker}, s.Markers)
			assert.Equal(t, tt.wantReason, s.Reason)
			assert.Equal(t, tt.wantScore, s.Score)
		})
	}
}

func TestNoFallbackForSkippedDirectories(t *testing.T) {
	root := tree("/p", "_archive/old.py", ".history/main.c", ".history/x.h", "keep/a.txt")

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	assert.NotContains(t, got, "/p/_archive")
	assert.NotContains(t, got, "/p/.history")
}

func TestCollectionOfSingleFiles(t *testing.T) {
	root := tree("/p", "one/a.py", "two/b.go", "notes.txt")

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	require.Contains(t, got, "/p")
	assert.Equal(t, models.KindCollection, got["/p"].Kind)
	assert.Equal(t, []string{"collection"}, got["/p"].Markers)
	assert.Contains(t, got, "/p/one")
	assert.Contains(t, got, "/p/two")
}

func TestGitMarkerAndDirectoryContents(t *testing.T) {
	root := tree("/p", ".git/HEAD", ".git/hooks/pre-commit.sample", "Makefile", "main.c")

	got := byPath(fixedClassifier().Classify([]*snapshot.DirectoryNode{root}))
	require.Len(t, got, 1)
	s := got["/p"]
	assert.Equal(t, []string{".git", "Makefile"}, s.Markers)
	assert.Equal(t, 0.68, s.Score)
	assert.Equal(t, "c=1", s.ExtensionSummary, "repository internals are not counted")
}

func TestScoreClampAndRounding(t *testing.T) {
	assert.Equal(t, 0.52, Score(nil))
	assert.Equal(t, 0.99, Score([]string{".sln", ".csproj", "package.json", "CMakeLists.txt"}))
	assert.Equal(t, 0.56, Score([]string{"unknown-marker"}))
}

func TestOrderingByScoreThenPath(t *testing.T) {
	root := tree("/p", "b/x.py", "A/y.py", "c/App.csproj")

	got := fixedClassifier().Classify([]*snapshot.DirectoryNode{root})
	var paths []string
	for _, s := range got {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, []string{"/p/c", "/p/A", "/p/b", "/p"}, paths)
}

func TestFingerprintDeterminism(t *testing.T) {
	a := tree("/one/proj", "App.sln", "Src/App.csproj", "Src/Program.cs", "README.md")
	b := tree("/two/elsewhere/proj", "App.sln", "Src/App.csproj", "Src/Program.cs", "README.md")

	fa := fixedClassifier().Classify([]*snapshot.DirectoryNode{a})
	fb := fixedClassifier().Classify([]*snapshot.DirectoryNode{b})
	require.Len(t, fa, 1)
	require.Len(t, fb, 1)
	assert.Equal(t, fa[0].Fingerprint, fb[0].Fingerprint, "location and content do not affect fingerprints")

	variants := map[string]*snapshot.DirectoryNode{
		"extra file":      tree("/one/proj", "App.sln", "Src/App.csproj", "Src/Program.cs", "README.md", "LICENSE"),
		"renamed child":   tree("/one/proj", "App.sln", "Lib/App.csproj", "Lib/Program.cs", "README.md"),
		"extension count": tree("/one/proj", "App.sln", "Src/App.csproj", "Src/Program.cs", "Src/Util.cs", "README.md"),
		"marker set":      tree("/one/proj", "App.sln", "Src/App.vcxproj", "Src/Program.cs", "README.md"),
	}
	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			got := fixedClassifier().Classify([]*snapshot.DirectoryNode{v})
			require.NotEmpty(t, got)
			assert.NotEqual(t, fa[0].Fingerprint, byPath(got)["/one/proj"].Fingerprint)
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	root := tree("/p",
		"Game.sln", "Game/Game.vcxproj", "Game/main.cpp",
		"site/index.html", "site/css/a.css",
		"snips/a/a.py", "snips/b/b.rs",
		"web/package.json", "web/src/app.ts",
	)
	c := fixedClassifier()
	first := c.Classify([]*snapshot.DirectoryNode{root})
	second := c.Classify([]*snapshot.DirectoryNode{root})
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}
