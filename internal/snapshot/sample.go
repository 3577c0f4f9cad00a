package snapshot

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// readSample reads the leading lines of path. It stops at maxLines lines or
// maxChars bytes of line content, whichever comes first, and reports
// truncated when content remained. A file that cannot be opened or read
// yields an empty sample; only a Checkpoint error is returned.
func readSample(ctx context.Context, path string, maxLines, maxChars int, cur Cursor) ([]string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var lines []string
	used := 0

	for {
		if err := cur.Checkpoint(ctx); err != nil {
			return nil, false, err
		}

		if len(lines) >= maxLines || used >= maxChars {
			return lines, hasMore(r), nil
		}

		line, overflow, err := readLine(r, maxChars-used)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if errors.Is(err, io.EOF) && line == "" && !overflow {
			return lines, false, nil
		}

		lines = append(lines, line)
		used += len(line)
		if overflow {
			return lines, true, nil
		}
		if errors.Is(err, io.EOF) {
			return lines, false, nil
		}
	}
}

// readLine reads one line without its terminator, keeping at most limit
// bytes. overflow is set when the line was longer than limit; the rest of
// it is discarded.
func readLine(r *bufio.Reader, limit int) (string, bool, error) {
	var sb strings.Builder
	overflow := false
	for {
		chunk, isPrefix, err := r.ReadLine()
		if err != nil {
			return sb.String(), overflow, err
		}
		if !overflow {
			room := limit - sb.Len()
			if len(chunk) > room {
				sb.WriteString(cutUTF8(string(chunk), room))
				overflow = true
			} else {
				sb.Write(chunk)
			}
		}
		if !isPrefix {
			return sb.String(), overflow, nil
		}
	}
}

func hasMore(r *bufio.Reader) bool {
	_, err := r.Peek(1)
	return err == nil
}

// cutUTF8 shortens s to at most n bytes without splitting a rune.
func cutUTF8(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
