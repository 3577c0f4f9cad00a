package tag

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	readmeConfidence = 0.62
	readmeMaxBytes   = 256 * 1024
)

var readmeNames = []string{"README.md", "readme.md", "Readme.md", "README.markdown", "README"}

// readmeFenceTags returns the tags named by the info strings of fenced code
// blocks in the project's README. Unknown languages are ignored.
func readmeFenceTags(root string) []string {
	src := readReadme(root)
	if len(src) == 0 {
		return nil
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	seen := make(map[string]bool)
	var tags []string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		lang := strings.ToLower(strings.TrimSpace(string(block.Language(src))))
		if tag, ok := readmeLanguages[lang]; ok && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
		return ast.WalkSkipChildren, nil
	})
	return tags
}

func readReadme(root string) []byte {
	for _, name := range readmeNames {
		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || info.Size() > readmeMaxBytes {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return data
	}
	return nil
}
