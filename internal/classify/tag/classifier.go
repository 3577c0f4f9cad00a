package tag

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-enry/go-enry/v2"

	"github.com/harrison/devscan/internal/fingerprint"
	"github.com/harrison/devscan/internal/models"
)

const (
	FingerprintVersion   = "v1"
	DefaultMinConfidence = 0.55
	helloWorldConfidence = 0.78
)

// History answers whether the operator already rejected a tag for a
// project with the same evidence fingerprint.
type History interface {
	IsTagRejected(ctx context.Context, projectID int64, tagName, fingerprint string) (bool, error)
}

// Options tunes the classifier. Zero values take the defaults.
type Options struct {
	MinConfidence   float64
	ContentMaxFiles int
	SizeMaxFiles    int
	CacheEntries    int
}

// Classifier suggests catalog tags for accepted projects.
type Classifier struct {
	opts    Options
	history History
	content *ContentScanner

	// Now stamps CreatedAt; defaults to time.Now.
	Now func() time.Time
}

// NewClassifier builds a classifier. history may be nil, in which case no
// suggestion is suppressed.
func NewClassifier(opts Options, history History) (*Classifier, error) {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	if opts.ContentMaxFiles <= 0 {
		opts.ContentMaxFiles = DefaultContentMaxFiles
	}
	if opts.SizeMaxFiles <= 0 {
		opts.SizeMaxFiles = DefaultSizeMaxFiles
	}
	content, err := NewContentScanner(opts.ContentMaxFiles, opts.CacheEntries)
	if err != nil {
		return nil, err
	}
	return &Classifier{
		opts:    opts,
		history: history,
		content: content,
		Now:     time.Now,
	}, nil
}

// Suggest returns tag suggestions for project restricted to catalog,
// ordered by confidence descending then tag name. Tags already assigned to
// the project and previously rejected evidence combinations are omitted.
func (c *Classifier) Suggest(ctx context.Context, project models.ProjectRecord, catalog []models.Tag) ([]models.TagSuggestion, error) {
	acc, err := c.Collect(ctx, project)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]models.Tag, len(catalog))
	for _, t := range catalog {
		byName[normalizeTag(t.Name)] = t
	}
	assigned := make(map[string]bool, len(project.AssignedTags))
	for _, name := range project.AssignedTags {
		assigned[normalizeTag(name)] = true
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	var out []models.TagSuggestion
	for _, name := range acc.Tags() {
		tag, ok := byName[name]
		if !ok || assigned[name] {
			continue
		}
		confidence := acc.Confidence(name)
		if confidence < c.opts.MinConfidence {
			continue
		}

		labels := acc.Evidence(name)
		fp := Fingerprint(project.ID, name, labels)
		if c.history != nil {
			rejected, err := c.history.IsTagRejected(ctx, project.ID, name, fp)
			if err != nil {
				return nil, fmt.Errorf("check rejected tag %s for project %d: %w", name, project.ID, err)
			}
			if rejected {
				continue
			}
		}

		id := tag.ID
		out = append(out, models.TagSuggestion{
			TagID:       &id,
			TagName:     tag.Name,
			Type:        models.TagAssignExisting,
			Source:      models.SourceHeuristic,
			Confidence:  confidence,
			Reason:      strings.Join(labels, "; "),
			Fingerprint: fp,
			CreatedAt:   now(),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return strings.ToLower(out[i].TagName) < strings.ToLower(out[j].TagName)
	})
	return out, nil
}

// Collect runs every signal source against project and returns the
// accumulated evidence without catalog or threshold filtering.
func (c *Classifier) Collect(ctx context.Context, project models.ProjectRecord) (*Accumulator, error) {
	acc := NewAccumulator()
	hist := models.ParseExtensionSummary(project.ExtensionSummary)

	addMarkerEvidence(acc, project.Markers)
	addHintEvidence(acc, project.TechHints)
	addExtensionEvidence(acc, hist)
	addPathEvidence(acc, project)
	addHelloWorldEvidence(acc, project)

	root := project.Path
	if !readableDir(root) {
		return acc, nil
	}

	signals, err := c.content.Scan(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("scan content of %s: %w", root, err)
	}
	addContentEvidence(acc, signals, nativeContext(project, hist))

	lines, ok, err := countSourceLines(ctx, root, c.opts.SizeMaxFiles)
	if err != nil {
		return nil, fmt.Errorf("count lines of %s: %w", root, err)
	}
	if ok {
		bucket := bucketFor(lines)
		acc.Add(bucket, sizeConfidence, "size:"+bucket)
	}

	for _, tag := range readmeFenceTags(root) {
		acc.Add(tag, readmeConfidence, "readme:"+tag)
	}
	for _, host := range gitRemoteHosts(root) {
		acc.Add(host, gitHostConfidence, "git:"+host)
	}
	return acc, nil
}

// Fingerprint hashes the project id, tag name and sorted evidence labels.
func Fingerprint(projectID int64, tagName string, labels []string) string {
	return fingerprint.New(FingerprintVersion).
		Field(strconv.FormatInt(projectID, 10)).
		Field(normalizeTag(tagName)).
		Set("", labels).
		Sum()
}

func addMarkerEvidence(acc *Accumulator, markers []string) {
	for _, m := range markers {
		for _, wt := range markerTags[m] {
			acc.Add(wt.tag, wt.confidence, "marker:"+m)
		}
	}
}

func addHintEvidence(acc *Accumulator, hints []string) {
	for _, h := range hints {
		if wt, ok := hintTags[strings.ToLower(h)]; ok {
			acc.Add(wt.tag, wt.confidence, "hint:"+strings.ToLower(h))
		}
	}
}

// addExtensionEvidence scores each histogram entry with its rule, falling
// back to the linguist language table for extensions without one.
func addExtensionEvidence(acc *Accumulator, hist map[string]int) {
	for ext, count := range hist {
		label := "ext:" + ext + "=" + strconv.Itoa(count)
		if rule, ok := extensionRules[ext]; ok {
			acc.Add(rule.tag, rule.confidence(count), label)
			continue
		}
		lang, safe := enry.GetLanguageByExtension("file." + ext)
		if !safe || lang == "" {
			continue
		}
		acc.Add(languageTag(lang), fallbackExtensionRule.confidence(count), label)
	}
}

// languageTag turns a linguist language name such as "Visual Basic .NET"
// into a tag name.
func languageTag(lang string) string {
	return strings.Join(strings.Fields(strings.ToLower(lang)), "-")
}

func addPathEvidence(acc *Accumulator, project models.ProjectRecord) {
	text := strings.ToLower(project.Path + "\n" + project.Name)
	tokens := append(pathTokens(project.Path), pathTokens(project.Name)...)
	for _, rule := range pathRules {
		if !rule.matches(text, tokens) {
			continue
		}
		for _, wt := range rule.tags {
			acc.Add(wt.tag, wt.confidence, "path:"+rule.keyword)
		}
	}
}

func addHelloWorldEvidence(acc *Accumulator, project models.ProjectRecord) {
	for _, s := range []string{project.Name, project.Path, project.Reason} {
		if helloWorldPattern.MatchString(s) {
			acc.Add("beginner", helloWorldConfidence, "path:hello-world")
			return
		}
	}
}

func addContentEvidence(acc *Accumulator, signals contentSignal, native bool) {
	for _, rule := range contentRules {
		if signals&rule.signal == 0 {
			continue
		}
		if rule.signal == signalPointers && !native {
			continue
		}
		acc.Add(rule.tag, rule.confidence, rule.label)
	}
}

// nativeContext reports whether markers, hints or extensions already point
// at a C or C++ project.
func nativeContext(project models.ProjectRecord, hist map[string]int) bool {
	for _, m := range project.Markers {
		if nativeMarkers[m] {
			return true
		}
	}
	for _, h := range project.TechHints {
		if nativeHints[strings.ToLower(h)] {
			return true
		}
	}
	for ext := range hist {
		if nativeExtensions[ext] {
			return true
		}
	}
	return false
}

func readableDir(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
