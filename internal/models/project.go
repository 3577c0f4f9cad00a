package models

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// ProjectRecord is an accepted project as stored by the persistence layer.
type ProjectRecord struct {
	ID               int64
	Name             string
	Path             string
	Reason           string
	Markers          []string
	TechHints        []string
	ExtensionSummary string
	// AssignedTags holds lower-cased names of tags already on the project.
	AssignedTags []string
}

// Tag is an entry in the tag catalog.
type Tag struct {
	ID   int64
	Name string
}

// ExtensionCount is one entry of an extension histogram.
type ExtensionCount struct {
	Extension string
	Count     int
}

// FormatExtensionSummary renders a histogram as "cs=12, json=1", ordered by
// count descending then extension ascending.
func FormatExtensionSummary(hist map[string]int) string {
	counts := make([]ExtensionCount, 0, len(hist))
	for ext, n := range hist {
		if ext == "" || n <= 0 {
			continue
		}
		counts = append(counts, ExtensionCount{Extension: ext, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Extension < counts[j].Extension
	})

	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = c.Extension + "=" + strconv.Itoa(c.Count)
	}
	return strings.Join(parts, ", ")
}

// ParseExtensionSummary is the inverse of FormatExtensionSummary. Malformed
// entries are dropped rather than reported.
func ParseExtensionSummary(summary string) map[string]int {
	hist := make(map[string]int)
	for _, part := range strings.FieldsFunc(summary, func(r rune) bool { return r == ',' || r == ';' }) {
		ext, count, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if ext == "" || err != nil || n <= 0 {
			continue
		}
		hist[ext] += n
	}
	return hist
}

// ParseStringList decodes a JSON string array stored by the persistence
// layer. Anything that is not a JSON array of strings yields an empty list.
func ParseStringList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []string{}
	}
	out := items[:0]
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// EncodeStringList is the inverse of ParseStringList.
func EncodeStringList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}
