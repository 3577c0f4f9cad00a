package snapshot

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrison/devscan/internal/policy"
)

const (
	DefaultMaxSampleLines = 100
	DefaultMaxSampleChars = 8192
)

// Cursor is the walk's view of the owning scan. Checkpoint is called before
// every directory or file entry and before each sampled line; it blocks
// while the scan is paused and returns an error once it is cancelled.
// FileVisited is called for every file included by the build pass.
type Cursor interface {
	Checkpoint(ctx context.Context) error
	FileVisited(path string)
}

// Options controls both passes.
type Options struct {
	// DepthLimit bounds recursion; nil walks the whole tree. The root is
	// depth 0.
	DepthLimit     *int
	MaxSampleLines int
	MaxSampleChars int
	// Matcher adds per-root ignore patterns on top of the fixed policy.
	Matcher *policy.Matcher
}

// Builder runs the count and build passes over a root directory.
type Builder struct {
	opts Options
}

// NewBuilder returns a Builder, filling unset sample caps with defaults.
func NewBuilder(opts Options) *Builder {
	if opts.MaxSampleLines <= 0 {
		opts.MaxSampleLines = DefaultMaxSampleLines
	}
	if opts.MaxSampleChars <= 0 {
		opts.MaxSampleChars = DefaultMaxSampleChars
	}
	return &Builder{opts: opts}
}

// Count returns the number of files the build pass would include.
func (b *Builder) Count(ctx context.Context, root string, cur Cursor) (int64, error) {
	if err := cur.Checkpoint(ctx); err != nil {
		return 0, err
	}
	return b.walk(ctx, root, 0, nil, cur)
}

// Build walks root into a directory tree. Only cancellation aborts the
// walk; unreadable directories and files are left out or left unsampled.
func (b *Builder) Build(ctx context.Context, root string, cur Cursor) (*DirectoryNode, error) {
	if err := cur.Checkpoint(ctx); err != nil {
		return nil, err
	}
	node := newDirectoryNode(root)
	if _, err := b.walk(ctx, root, 0, node, cur); err != nil {
		return nil, err
	}
	return node, nil
}

// walk visits one directory. With a nil node it only counts files.
func (b *Builder) walk(ctx context.Context, dir string, depth int, node *DirectoryNode, cur Cursor) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, nil
	}

	var count int64
	for _, entry := range entries {
		if err := cur.Checkpoint(ctx); err != nil {
			return count, err
		}

		name := entry.Name()
		path := filepath.Join(dir, name)
		mode := entry.Type()

		switch {
		case mode&fs.ModeSymlink != 0:
			continue

		case entry.IsDir():
			if policy.ShouldSkipDirectory(name) || b.opts.Matcher.Ignored(path, true) {
				continue
			}
			var child *DirectoryNode
			if node != nil {
				child = newDirectoryNode(path)
				node.Directories = append(node.Directories, child)
			}
			if !b.withinDepth(depth) {
				continue
			}
			n, err := b.walk(ctx, path, depth+1, child, cur)
			count += n
			if err != nil {
				return count, err
			}

		case mode.IsRegular():
			ext := dottedExtension(name)
			if policy.ShouldSkipFile(name, ext) || b.opts.Matcher.Ignored(path, false) {
				continue
			}
			count++
			if node == nil {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				// vanished between ReadDir and Info
				count--
				continue
			}
			file := &FileNode{
				Name:      name,
				Path:      path,
				Extension: ext,
				Size:      info.Size(),
			}
			cur.FileVisited(path)
			if policy.ShouldSample(name, ext) {
				lines, truncated, err := readSample(ctx, path, b.opts.MaxSampleLines, b.opts.MaxSampleChars, cur)
				if err != nil {
					return count, err
				}
				file.SampleLines = lines
				file.SampleTruncated = truncated
			}
			node.Files = append(node.Files, file)
		}
	}
	return count, nil
}

func (b *Builder) withinDepth(depth int) bool {
	return b.opts.DepthLimit == nil || depth < *b.opts.DepthLimit
}

// dottedExtension follows policy.Extension, so ".gitignore" has none.
func dottedExtension(name string) string {
	if ext := policy.Extension(name); ext != "" {
		return "." + ext
	}
	return ""
}

func newDirectoryNode(path string) *DirectoryNode {
	name := filepath.Base(path)
	if name == string(filepath.Separator) || name == "." {
		name = path
	}
	return &DirectoryNode{
		Name:        name,
		Path:        path,
		Directories: []*DirectoryNode{},
		Files:       []*FileNode{},
	}
}
