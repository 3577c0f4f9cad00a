package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/devscan/internal/policy"
)

// recordingCursor counts checkpoints and visited files; it cancels once
// stopAfter checkpoints have passed when stopAfter > 0.
type recordingCursor struct {
	mu          sync.Mutex
	checkpoints int
	visited     []string
	stopAfter   int
}

func (c *recordingCursor) Checkpoint(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkpoints++
	if c.stopAfter > 0 && c.checkpoints > c.stopAfter {
		return context.Canceled
	}
	return ctx.Err()
}

func (c *recordingCursor) FileVisited(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visited = append(c.visited, path)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func collectPaths(d *DirectoryNode, out *[]string) {
	*out = append(*out, d.Path)
	for _, f := range d.Files {
		*out = append(*out, f.Path)
	}
	for _, child := range d.Directories {
		collectPaths(child, out)
	}
}

func intPtr(v int) *int { return &v }

func TestBuildSkipsIgnoredEntries(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app/Program.cs":              "class Program {}",
		"app/bin/Debug/app.dll":       "MZ",
		"app/obj/project.assets":      "{}",
		"web/node_modules/x/index.js": "module.exports = 1",
		"web/index.js":                "console.log(1)",
		"app/app.pdb":                 "pdb",
		".vs/settings.json":           "{}",
		"scratch/notes.txt":           "ignored by pattern",
	})

	b := NewBuilder(Options{Matcher: policy.NewMatcher(root, "scratch/")})
	tree, err := b.Build(context.Background(), root, &recordingCursor{})
	require.NoError(t, err)

	var paths []string
	collectPaths(tree, &paths)
	for _, p := range paths {
		base := strings.ToLower(filepath.Base(p))
		for _, bad := range []string{"bin", "obj", "node_modules", ".vs", "scratch", "app.pdb"} {
			assert.NotEqual(t, bad, base, "ignored entry %s present", p)
		}
		assert.NotContains(t, filepath.ToSlash(p), "/node_modules/")
	}
	assert.NotNil(t, findNode(tree, filepath.Join(root, "app")))
	assert.Equal(t, 2, tree.FileCount())
}

func TestCountMatchesBuild(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/main.c":       "int main(void) { return 0; }",
		"a/util.h":       "#pragma once",
		"a/obj/main.obj": "obj",
		"b/c/d/deep.py":  "print('x')",
		"README.md":      "# readme",
	})

	b := NewBuilder(Options{})
	cur := &recordingCursor{}
	count, err := b.Count(context.Background(), root, cur)
	require.NoError(t, err)
	assert.Empty(t, cur.visited, "count pass does not report visits")

	tree, err := b.Build(context.Background(), root, cur)
	require.NoError(t, err)
	assert.Equal(t, int64(tree.FileCount()), count)
	assert.Len(t, cur.visited, int(count))
}

func TestDepthLimitPlaceholders(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"top.txt":          "0",
		"l1/one.c":         "1",
		"l1/l2/two.c":      "2",
		"l1/l2/l3/three.c": "3",
	})

	tests := []struct {
		limit     int
		files     int
		leafDepth string
	}{
		{0, 1, "l1"},
		{1, 2, "l1/l2"},
		{2, 3, "l1/l2/l3"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			b := NewBuilder(Options{DepthLimit: intPtr(tt.limit)})
			tree, err := b.Build(context.Background(), root, &recordingCursor{})
			require.NoError(t, err)
			assert.Equal(t, tt.files, tree.FileCount())

			leaf := findNode(tree, filepath.Join(root, filepath.FromSlash(tt.leafDepth)))
			require.NotNil(t, leaf, "subdirectory beyond the limit must appear as a placeholder")
			assert.Empty(t, leaf.Files)
			assert.Empty(t, leaf.Directories)

			count, err := b.Count(context.Background(), root, &recordingCursor{})
			require.NoError(t, err)
			assert.Equal(t, int64(tt.files), count)
		})
	}
}

func TestSampleCaps(t *testing.T) {
	root := t.TempDir()
	var many strings.Builder
	for i := 0; i < 150; i++ {
		fmt.Fprintf(&many, "line %d\n", i)
	}
	writeTree(t, root, map[string]string{
		"short.c":   "int a;\nint b;\n",
		"many.c":    many.String(),
		"wide.c":    strings.Repeat("x", 10000) + "\nnext\n",
		"image.png": "not sampled",
	})

	b := NewBuilder(Options{})
	tree, err := b.Build(context.Background(), root, &recordingCursor{})
	require.NoError(t, err)

	byName := map[string]*FileNode{}
	for _, f := range tree.Files {
		byName[f.Name] = f
	}

	short := byName["short.c"]
	assert.Equal(t, []string{"int a;", "int b;"}, short.SampleLines)
	assert.False(t, short.SampleTruncated)
	assert.Equal(t, ".c", short.Extension)

	m := byName["many.c"]
	assert.Len(t, m.SampleLines, DefaultMaxSampleLines)
	assert.True(t, m.SampleTruncated)

	w := byName["wide.c"]
	total := 0
	for _, l := range w.SampleLines {
		total += len(l)
	}
	assert.LessOrEqual(t, total, DefaultMaxSampleChars)
	assert.True(t, w.SampleTruncated)

	assert.Nil(t, byName["image.png"].SampleLines)
}

func TestUnreadableFileYieldsEmptySample(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root bypasses permission checks")
	}
	root := t.TempDir()
	path := filepath.Join(root, "secret.c")
	require.NoError(t, os.WriteFile(path, []byte("int x;"), 0000))

	tree, err := NewBuilder(Options{}).Build(context.Background(), root, &recordingCursor{})
	require.NoError(t, err)
	require.Len(t, tree.Files, 1)
	assert.Empty(t, tree.Files[0].SampleLines)
	assert.False(t, tree.Files[0].SampleTruncated)
}

func TestBuildStopsOnCancellation(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{}
	for i := 0; i < 20; i++ {
		files[fmt.Sprintf("dir%d/file.c", i)] = "int x;"
	}
	writeTree(t, root, files)

	cur := &recordingCursor{stopAfter: 5}
	tree, err := NewBuilder(Options{}).Build(context.Background(), root, cur)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, tree)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewBuilder(Options{}).Count(ctx, root, &recordingCursor{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildMissingRoot(t *testing.T) {
	tree, err := NewBuilder(Options{}).Build(context.Background(), filepath.Join(t.TempDir(), "gone"), &recordingCursor{})
	require.NoError(t, err)
	assert.Empty(t, tree.Files)
	assert.Empty(t, tree.Directories)
}

func findNode(d *DirectoryNode, path string) *DirectoryNode {
	if d == nil {
		return nil
	}
	if d.Path == path {
		return d
	}
	for _, child := range d.Directories {
		if found := findNode(child, path); found != nil {
			return found
		}
	}
	return nil
}
