package tag

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-enry/go-enry/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/harrison/devscan/internal/policy"
)

const (
	DefaultContentMaxFiles = 120
	contentMaxFileSize     = 512 * 1024
	contentMaxLines        = 120
	contentMaxLineLength   = 512
	binarySniffBytes       = 8000
	DefaultCacheEntries    = 4096
)

// contentSignal is one regex-detected property of source text.
type contentSignal uint8

const (
	signalHelloWorld contentSignal = 1 << iota
	signalLoremIpsum
	signalPointers
	signalInlineAsm
	signalWinMain

	allContentSignals = signalHelloWorld | signalLoremIpsum | signalPointers | signalInlineAsm | signalWinMain
)

type contentRule struct {
	signal     contentSignal
	pattern    *regexp.Regexp
	tag        string
	confidence float64
	label      string
}

var contentRules = []contentRule{
	{signalHelloWorld, regexp.MustCompile(`(?i)hello,?\s*world`), "beginner", 0.80, "content:hello-world"},
	{signalLoremIpsum, regexp.MustCompile(`(?i)lorem\s+ipsum`), "placeholder-text", 0.76, "content:lorem-ipsum"},
	{signalPointers, regexp.MustCompile(`\b[A-Za-z_]\w*\s*\*+\s*[A-Za-z_]\w*\s*(?:=|;|,|\)|\[)|\w\s*->\s*[A-Za-z_]`), "pointers", 0.74, "content:pointers"},
	{signalInlineAsm, regexp.MustCompile(`\b__asm__\b|\b__asm\b|\b_asm\b|\basm\s*(?:volatile\s*|__volatile__\s*)?[({]`), "inline-assembly", 0.82, "content:inline-asm"},
	{signalWinMain, regexp.MustCompile(`\b(?:wWinMain|WinMain)\b`), "winapi", 0.86, "content:winmain"},
}

// ContentScanner searches a project's source files for the content
// signals. Per-file results are cached by path, size and modification time.
type ContentScanner struct {
	maxFiles int
	cache    *lru.Cache[string, contentSignal]
}

// NewContentScanner creates a scanner reading at most maxFiles files per
// project and caching up to cacheEntries file results.
func NewContentScanner(maxFiles, cacheEntries int) (*ContentScanner, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultContentMaxFiles
	}
	if cacheEntries <= 0 {
		cacheEntries = DefaultCacheEntries
	}
	cache, err := lru.New[string, contentSignal](cacheEntries)
	if err != nil {
		return nil, fmt.Errorf("create content cache: %w", err)
	}
	return &ContentScanner{maxFiles: maxFiles, cache: cache}, nil
}

// Scan returns the union of signals found under root. It stops once every
// signal has fired or the file budget is spent.
func (s *ContentScanner) Scan(ctx context.Context, root string) (contentSignal, error) {
	var found contentSignal
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped
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
		info, err := d.Info()
		if err != nil || info.Size() > contentMaxFileSize {
			return nil
		}

		files++
		found |= s.scanFile(path, info)
		if found == allContentSignals || files >= s.maxFiles {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return found, err
	}
	return found, nil
}

func (s *ContentScanner) scanFile(path string, info fs.FileInfo) contentSignal {
	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}
	signals := scanContent(path)
	s.cache.Add(key, signals)
	return signals
}

// scanContent applies every rule to the leading lines of one file.
// Binary and unreadable files yield no signals.
func scanContent(path string) contentSignal {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head, _ := r.Peek(binarySniffBytes)
	if enry.IsBinary(head) {
		return 0
	}

	var found contentSignal
	for i := 0; i < contentMaxLines; i++ {
		line, err := readBoundedLine(r, contentMaxLineLength)
		for _, rule := range contentRules {
			if found&rule.signal == 0 && rule.pattern.MatchString(line) {
				found |= rule.signal
			}
		}
		if err != nil || found == allContentSignals {
			break
		}
	}
	return found
}

// readBoundedLine returns at most limit bytes of the next line and skips
// the remainder of it.
func readBoundedLine(r *bufio.Reader, limit int) (string, error) {
	buf := make([]byte, 0, 128)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			if err == io.EOF && len(buf) > 0 {
				return string(buf), nil
			}
			return string(buf), err
		}
		if room := limit - len(buf); room > 0 {
			if len(chunk) > room {
				chunk = chunk[:room]
			}
			buf = append(buf, chunk...)
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}
