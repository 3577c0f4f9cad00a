// Package policy decides which directories and files a scan skips and which
// files have their leading lines sampled.
//
// The predicates are pure and stateless. Matcher adds optional
// operator-supplied ignore patterns on top of the fixed lists.
package policy

import (
	"strings"
)

var skippedDirectories = map[string]bool{
	"bin":          true,
	"obj":          true,
	".vs":          true,
	".idea":        true,
	"node_modules": true,
}

var skippedExtensions = map[string]bool{
	".pdb":  true,
	".obj":  true,
	".tlog": true,
	".exe":  true,
	".suo":  true,
}

var sampledExtensions = map[string]bool{
	".c": true, ".h": true, ".cpp": true, ".cc": true, ".cxx": true, ".hpp": true, ".hh": true, ".hxx": true,
	".cs": true, ".vb": true, ".fs": true,
	".java": true, ".kt": true, ".scala": true, ".groovy": true,
	".js": true, ".mjs": true, ".cjs": true, ".jsx": true, ".ts": true, ".tsx": true,
	".py": true, ".rb": true, ".php": true, ".pl": true, ".lua": true,
	".go": true, ".rs": true, ".swift": true, ".m": true, ".mm": true,
	".asm": true, ".s": true,
	".sh": true, ".bash": true, ".ps1": true, ".bat": true, ".cmd": true,
	".html": true, ".htm": true, ".css": true, ".scss": true, ".vue": true, ".svelte": true,
	".json": true, ".xml": true, ".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".md": true, ".txt": true, ".sql": true, ".gradle": true, ".cmake": true,
	".sln": true, ".csproj": true, ".vcxproj": true, ".vcproj": true, ".props": true,
}

var sampledNames = map[string]bool{
	"makefile":       true,
	"cmakelists.txt": true,
}

// ShouldSkipDirectory reports whether a directory with this name is a
// build or tooling directory. Matching is case-insensitive.
func ShouldSkipDirectory(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	return skippedDirectories[strings.ToLower(name)]
}

// ShouldSkipFile reports whether a file is a known build artifact.
// The extension includes the leading dot; when empty it is derived from name.
func ShouldSkipFile(name, extension string) bool {
	ext := normalizeExtension(name, extension)
	if ext == "" {
		return false
	}
	return skippedExtensions[ext]
}

// ShouldSample reports whether a file's leading lines are worth reading.
func ShouldSample(name, extension string) bool {
	if sampledNames[strings.ToLower(strings.TrimSpace(name))] {
		return true
	}
	ext := normalizeExtension(name, extension)
	if ext == "" {
		return false
	}
	return sampledExtensions[ext]
}

// Extension returns the lower-cased extension of name without its dot,
// the form used by extension histograms.
func Extension(name string) string {
	return strings.TrimPrefix(normalizeExtension(name, ""), ".")
}

func normalizeExtension(name, extension string) string {
	ext := strings.ToLower(strings.TrimSpace(extension))
	if ext == "" {
		name = strings.TrimSpace(name)
		idx := strings.LastIndex(name, ".")
		if idx <= 0 || idx == len(name)-1 {
			// no extension, or a dotfile such as ".gitignore"
			return ""
		}
		ext = strings.ToLower(name[idx:])
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
