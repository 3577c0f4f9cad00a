package tag

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrison/devscan/internal/policy"
)

const (
	DefaultSizeMaxFiles = 2500
	sizeMaxFileBytes    = 4 * 1024 * 1024
	sizeLineCap         = 100_000
	sizeConfidence      = 0.90
)

type sizeBucket struct {
	upper int // exclusive; 0 means unbounded
	tag   string
}

// sizeBuckets are ordered and non-overlapping.
var sizeBuckets = []sizeBucket{
	{100, "lines-lt-100"},
	{500, "lines-100-500"},
	{1_000, "lines-500-1k"},
	{5_000, "lines-1k-5k"},
	{10_000, "lines-5k-10k"},
	{50_000, "lines-10k-50k"},
	{sizeLineCap + 1, "lines-50k-100k"},
	{0, "lines-gt-100k"},
}

// bucketFor returns the size tag for a line total.
func bucketFor(lines int) string {
	for _, b := range sizeBuckets {
		if b.upper == 0 || lines < b.upper {
			return b.tag
		}
	}
	return sizeBuckets[len(sizeBuckets)-1].tag
}

// countSourceLines totals newline-delimited lines across the sampleable
// source files under root. Counting stops once the total passes the line
// cap and reports cap+1, which places the project in the top bucket. ok is
// false when root cannot be read.
func countSourceLines(ctx context.Context, root string, maxFiles int) (lines int, ok bool, err error) {
	if maxFiles <= 0 {
		maxFiles = DefaultSizeMaxFiles
	}
	if _, statErr := os.ReadDir(root); statErr != nil {
		return 0, false, nil
	}

	files := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && (policy.ShouldSkipDirectory(d.Name()) || d.Name() == ".git") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !policy.ShouldSample(d.Name(), "") {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil || info.Size() > sizeMaxFileBytes {
			return nil
		}

		files++
		lines += countLines(path)
		if lines > sizeLineCap || files >= maxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return lines, true, err
	}
	if lines > sizeLineCap {
		lines = sizeLineCap + 1
	}
	return lines, true, nil
}

// countLines counts lines in one file; a final line without a trailing
// newline still counts. Unreadable files count as empty.
func countLines(path string) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 32*1024)
	buf := make([]byte, 32*1024)
	count := 0
	var last byte
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return count
		}
	}
	if last != 0 && last != '\n' {
		count++
	}
	return count
}
