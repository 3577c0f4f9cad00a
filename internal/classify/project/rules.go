package project

import "strings"

const (
	baseScore = 0.52
	maxScore  = 0.99

	markerGit        = ".git"
	markerSolution   = ".sln"
	markerMainSource = "main-source"
	markerSingleFile = "single-source-file"
	markerHeaders    = "native-headers"
	markerIndexHTML  = "index.html"
	markerCollection = "collection"
)

// fileMarkers are exact (case-insensitive) file names, mapped to the
// marker label they produce.
var fileMarkers = map[string]string{
	"package.json":   "package.json",
	"cmakelists.txt": "CMakeLists.txt",
	"makefile":       "Makefile",
	"pom.xml":        "pom.xml",
	"build.gradle":   "build.gradle",
}

// suffixMarkers are project and solution file suffixes.
var suffixMarkers = []string{".sln", ".csproj", ".vcxproj", ".vcproj"}

// moduleMarkers belong to a solution; a directory holding only these is
// folded into its enclosing solution.
var moduleMarkers = map[string]bool{
	".csproj":  true,
	".vcxproj": true,
	".vcproj":  true,
}

var markerWeights = map[string]float64{
	".sln":           0.20,
	".csproj":        0.18,
	".vcxproj":       0.18,
	".vcproj":        0.18,
	"package.json":   0.16,
	"CMakeLists.txt": 0.15,
	"pom.xml":        0.16,
	"build.gradle":   0.16,
	"Makefile":       0.10,
	markerIndexHTML:  0.08,
	markerMainSource: 0.12,
	markerSingleFile: 0.10,
	markerGit:        0.06,
}

const defaultMarkerWeight = 0.04

// markerHints feed the tag classifier; ".net" there becomes the dotnet tag.
var markerHints = map[string][]string{
	".csproj":        {"csharp", ".net"},
	".vcxproj":       {"cpp", "native"},
	".vcproj":        {"cpp", "native"},
	"package.json":   {"node", "javascript"},
	"CMakeLists.txt": {"cmake", "cpp"},
	"Makefile":       {"native"},
	"pom.xml":        {"java"},
	"build.gradle":   {"java"},
}

var extensionHints = map[string]string{
	"ts":  "typescript",
	"tsx": "typescript",
	"py":  "python",
	"go":  "go",
	"rs":  "rust",
}

// singleFileExtensions are languages where one file can be a whole
// program.
var singleFileExtensions = map[string]bool{
	"c": true, "cpp": true, "cc": true, "cxx": true, "cs": true,
	"py": true, "js": true, "ts": true, "go": true, "rs": true,
	"java": true, "kt": true, "rb": true, "php": true, "lua": true,
	"pl": true, "sh": true, "ps1": true, "bat": true, "swift": true,
	"scala": true, "hs": true, "jl": true, "dart": true, "r": true,
	"asm": true, "pas": true, "vb": true, "html": true,
}

var nativeSourceExtensions = map[string]bool{"c": true, "cpp": true, "cc": true, "cxx": true}

var headerExtensions = map[string]bool{"h": true, "hpp": true, "hh": true, "hxx": true}

// markerForFile returns the marker a file name carries, if any.
func markerForFile(name string) (string, bool) {
	lower := strings.ToLower(name)
	if m, ok := fileMarkers[lower]; ok {
		return m, true
	}
	for _, suffix := range suffixMarkers {
		if strings.HasSuffix(lower, suffix) && len(lower) > len(suffix) {
			return suffix, true
		}
	}
	return "", false
}

func markerWeight(marker string) float64 {
	if w, ok := markerWeights[marker]; ok {
		return w
	}
	return defaultMarkerWeight
}

// skipsFallbacks reports directories that never get a heuristic
// suggestion of their own.
func skipsFallbacks(name string) bool {
	return strings.HasPrefix(name, "_") || name == ".history"
}
