// Package fingerprint produces stable, content-independent hashes for
// suggestions so that semantically equal candidates match across re-scans.
package fingerprint

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// Builder accumulates the canonical fingerprint input. Components are
// written in a fixed order; sets are sorted before they are appended.
type Builder struct {
	sb strings.Builder
}

// New starts a fingerprint input with a version prefix such as "v1".
func New(version string) *Builder {
	b := &Builder{}
	b.sb.WriteString(version)
	b.sb.WriteByte('|')
	return b
}

// Field appends a single value.
func (b *Builder) Field(value string) *Builder {
	b.sb.WriteString(value)
	b.sb.WriteByte('|')
	return b
}

// Set appends every value with the given prefix, in sorted order.
func (b *Builder) Set(prefix string, values []string) *Builder {
	items := make([]string, len(values))
	for i, v := range values {
		items[i] = prefix + v
	}
	sort.Strings(items)
	for _, item := range items {
		b.Field(item)
	}
	return b
}

// String returns the canonical input string.
func (b *Builder) String() string {
	return b.sb.String()
}

// Sum hashes the canonical input.
func (b *Builder) Sum() string {
	return Hash(b.sb.String())
}

// Hash returns the hex-encoded 128-bit xxh3 digest of s.
func Hash(s string) string {
	sum := xxh3.HashString128(s).Bytes()
	return hex.EncodeToString(sum[:])
}
