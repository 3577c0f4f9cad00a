package tag

import (
	"regexp"
	"strings"
)

type weightedTag struct {
	tag        string
	confidence float64
}

var markerTags = map[string][]weightedTag{
	".sln":               {{"vs-solution", 0.93}},
	".csproj":            {{"vs-project", 0.91}, {"csharp", 0.82}, {"dotnet", 0.82}},
	".vcxproj":           {{"vs-project", 0.91}, {"cpp", 0.84}, {"native", 0.80}},
	".vcproj":            {{"vs-project", 0.88}, {"cpp", 0.82}, {"native", 0.80}},
	"package.json":       {{"node", 0.88}, {"javascript", 0.80}},
	"CMakeLists.txt":     {{"cmake", 0.90}, {"cpp", 0.78}},
	"Makefile":           {{"make", 0.85}, {"native", 0.66}},
	"pom.xml":            {{"maven", 0.90}, {"java", 0.84}},
	"build.gradle":       {{"gradle", 0.90}, {"java", 0.80}},
	".git":               {{"git", 0.75}},
	"index.html":         {{"web", 0.72}, {"html", 0.70}},
	"single-source-file": {{"mini-project", 0.70}},
	"main-source":        {{"native", 0.70}},
}

var hintTags = map[string]weightedTag{
	"csharp":     {"csharp", 0.84},
	".net":       {"dotnet", 0.80},
	"cpp":        {"cpp", 0.80},
	"native":     {"native", 0.74},
	"node":       {"node", 0.80},
	"javascript": {"javascript", 0.78},
	"typescript": {"typescript", 0.82},
	"python":     {"python", 0.82},
	"go":         {"go", 0.82},
	"rust":       {"rust", 0.82},
	"java":       {"java", 0.80},
	"cmake":      {"cmake", 0.80},
}

// extensionRule scales confidence with the number of files:
// min(cap, base + count*step).
type extensionRule struct {
	tag  string
	base float64
	step float64
	cap  float64
}

func (r extensionRule) confidence(count int) float64 {
	c := r.base + float64(count)*r.step
	if c > r.cap {
		return r.cap
	}
	return c
}

var extensionRules = map[string]extensionRule{
	"cs":    {"csharp", 0.60, 0.02, 0.80},
	"cpp":   {"cpp", 0.60, 0.02, 0.80},
	"cc":    {"cpp", 0.60, 0.02, 0.80},
	"cxx":   {"cpp", 0.60, 0.02, 0.80},
	"hpp":   {"cpp", 0.56, 0.02, 0.74},
	"c":     {"c", 0.60, 0.02, 0.80},
	"py":    {"python", 0.60, 0.02, 0.80},
	"js":    {"javascript", 0.58, 0.02, 0.78},
	"mjs":   {"javascript", 0.58, 0.02, 0.78},
	"ts":    {"typescript", 0.60, 0.02, 0.80},
	"tsx":   {"typescript", 0.60, 0.02, 0.80},
	"go":    {"go", 0.62, 0.02, 0.82},
	"rs":    {"rust", 0.62, 0.02, 0.82},
	"java":  {"java", 0.60, 0.02, 0.80},
	"kt":    {"kotlin", 0.60, 0.02, 0.80},
	"html":  {"html", 0.55, 0.01, 0.72},
	"htm":   {"html", 0.55, 0.01, 0.72},
	"css":   {"css", 0.55, 0.01, 0.70},
	"asm":   {"assembly", 0.62, 0.02, 0.80},
	"s":     {"assembly", 0.58, 0.02, 0.76},
	"lua":   {"lua", 0.60, 0.02, 0.80},
	"rb":    {"ruby", 0.60, 0.02, 0.80},
	"php":   {"php", 0.60, 0.02, 0.80},
	"sh":    {"shell", 0.55, 0.01, 0.70},
	"ps1":   {"powershell", 0.58, 0.02, 0.76},
	"glsl":  {"shaders", 0.62, 0.02, 0.80},
	"hlsl":  {"shaders", 0.62, 0.02, 0.80},
	"sql":   {"sql", 0.56, 0.01, 0.72},
	"swift": {"swift", 0.62, 0.02, 0.82},
}

// fallbackExtensionRule applies to languages identified by extension only.
var fallbackExtensionRule = extensionRule{base: 0.50, step: 0.02, cap: 0.70}

// pathRule fires when a keyword appears anywhere in the lower-cased path or
// name, or when a whole path token matches the token pattern. Short
// abbreviations like "hw3" only match as whole tokens.
type pathRule struct {
	keyword    string
	substrings []string
	token      *regexp.Regexp
	tags       []weightedTag
}

var pathRules = []pathRule{
	{"winapi", []string{"winapi", "win32"}, nil, []weightedTag{{"winapi", 0.80}, {"native", 0.66}}},
	{"opengl", []string{"opengl", "glfw"}, regexp.MustCompile(`^gl\d$`), []weightedTag{{"opengl", 0.80}, {"graphics", 0.66}}},
	{"directx", []string{"directx", "direct3d"}, regexp.MustCompile(`^d3d\d*$`), []weightedTag{{"directx", 0.80}, {"graphics", 0.66}}},
	{"unity", []string{"unity"}, nil, []weightedTag{{"unity", 0.78}, {"gamedev", 0.66}}},
	{"tutorial", []string{"tutorial", "lesson"}, nil, []weightedTag{{"learning", 0.70}}},
	{"coursework", []string{"homework", "assignment"}, regexp.MustCompile(`^hw\d+$|^lab\d*$`), []weightedTag{{"coursework", 0.70}}},
	{"game", []string{"game"}, nil, []weightedTag{{"gamedev", 0.66}}},
}

func (r pathRule) matches(text string, tokens []string) bool {
	for _, sub := range r.substrings {
		if strings.Contains(text, sub) {
			return true
		}
	}
	if r.token == nil {
		return false
	}
	for _, tok := range tokens {
		if r.token.MatchString(tok) {
			return true
		}
	}
	return false
}

// pathTokens splits a path into lower-case alphanumeric tokens.
func pathTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

var helloWorldPattern = regexp.MustCompile(`(?i)hello[\s_\-]*world`)

// nativeMarkers, nativeHints and nativeExtensions give the pointer signal
// its C/C++ context.
var (
	nativeMarkers    = map[string]bool{".vcxproj": true, ".vcproj": true, "CMakeLists.txt": true, "Makefile": true, "main-source": true, "native-headers": true}
	nativeHints      = map[string]bool{"cpp": true, "native": true}
	nativeExtensions = map[string]bool{"c": true, "cpp": true, "cc": true, "cxx": true, "h": true, "hpp": true}
)

// readmeLanguages maps fenced code block info strings to tags.
var readmeLanguages = map[string]string{
	"c#": "csharp", "cs": "csharp", "csharp": "csharp",
	"c++": "cpp", "cpp": "cpp", "cxx": "cpp", "c": "c",
	"js": "javascript", "javascript": "javascript", "jsx": "javascript",
	"ts": "typescript", "typescript": "typescript", "tsx": "typescript",
	"py": "python", "python": "python", "python3": "python",
	"go": "go", "golang": "go",
	"rust": "rust", "rs": "rust",
	"java": "java", "kotlin": "kotlin", "kt": "kotlin",
	"sh": "shell", "bash": "shell", "shell": "shell", "zsh": "shell",
	"powershell": "powershell", "ps1": "powershell",
	"html": "html", "css": "css", "sql": "sql",
	"lua": "lua", "ruby": "ruby", "rb": "ruby", "php": "php",
	"asm": "assembly", "nasm": "assembly", "glsl": "shaders", "hlsl": "shaders",
}

var gitHosts = map[string]string{
	"github.com":    "github",
	"gitlab.com":    "gitlab",
	"bitbucket.org": "bitbucket",
}
