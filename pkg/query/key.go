package query

import (
	"fmt"
	"sort"
	"strings"
)

// Key is the canonical cache key for a query. It is an opaque string; the
// only guarantee is that logically identical queries produce equal keys.
type Key string

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }

// Normalize validates q and derives its canonical cache key.
// Format: mars:<rover>[:camera=<camera>]:sol=<sol>|earth_date=<date>:page=<page>
//
// Segments appear in a fixed order and identifiers are lowercased, so key
// equality is independent of input casing, whitespace, and whether the page
// was defaulted or given explicitly.
//
// Example:
//
//	mars:curiosity:camera=navcam:sol=1000:page=1
func Normalize(q Query) (Key, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}

	c := q.Canonical()
	parts := []string{"mars", c.Rover}

	if c.Camera != "" {
		parts = append(parts, fmt.Sprintf("camera=%s", c.Camera))
	}

	if c.Sol != nil {
		parts = append(parts, fmt.Sprintf("sol=%d", *c.Sol))
	} else {
		parts = append(parts, fmt.Sprintf("earth_date=%s", c.EarthDate))
	}

	parts = append(parts, fmt.Sprintf("page=%d", c.Page))

	return Key(strings.Join(parts, ":")), nil
}

// sortedKeys returns the map keys in lexical order for deterministic output.
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
