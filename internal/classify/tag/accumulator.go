// Package tag infers topical tags for an accepted project by accumulating
// evidence from markers, hints, extensions, paths, and sampled content.
package tag

import (
	"math"
	"sort"
	"strings"
)

const (
	boostPerEvidence = 0.03
	maxBoost         = 0.12
	maxConfidence    = 0.99
)

type tagEvidence struct {
	peak   float64
	labels map[string]bool
}

// Accumulator collects evidence per lower-cased tag name. A tag's
// confidence is its strongest single signal plus 0.03 for every further
// distinct evidence label, with the boost capped at 0.12 and the total at
// 0.99.
type Accumulator struct {
	tags map[string]*tagEvidence
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{tags: make(map[string]*tagEvidence)}
}

// Add records one piece of evidence. Repeating a label does not boost.
func (a *Accumulator) Add(tag string, confidence float64, label string) {
	tag = normalizeTag(tag)
	if tag == "" || confidence <= 0 {
		return
	}
	ev, ok := a.tags[tag]
	if !ok {
		ev = &tagEvidence{labels: make(map[string]bool)}
		a.tags[tag] = ev
	}
	if confidence > ev.peak {
		ev.peak = confidence
	}
	if label != "" {
		ev.labels[label] = true
	}
}

// Has reports whether any evidence was recorded for tag.
func (a *Accumulator) Has(tag string) bool {
	_, ok := a.tags[normalizeTag(tag)]
	return ok
}

// Confidence returns the boosted confidence for tag, rounded to two
// decimals, or 0 when there is no evidence.
func (a *Accumulator) Confidence(tag string) float64 {
	ev, ok := a.tags[normalizeTag(tag)]
	if !ok {
		return 0
	}
	boost := 0.0
	if n := len(ev.labels); n > 1 {
		boost = math.Min(maxBoost, boostPerEvidence*float64(n-1))
	}
	return math.Round(math.Min(maxConfidence, ev.peak+boost)*100) / 100
}

// Evidence returns the sorted evidence labels for tag.
func (a *Accumulator) Evidence(tag string) []string {
	ev, ok := a.tags[normalizeTag(tag)]
	if !ok {
		return nil
	}
	labels := make([]string, 0, len(ev.labels))
	for l := range ev.labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// Tags returns every tag with evidence, sorted.
func (a *Accumulator) Tags() []string {
	tags := make([]string, 0, len(a.tags))
	for t := range a.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
