// Package strings cleans up free-text lists submitted by members.
package strings

import (
	"strings"

	"golang.org/x/text/cases"
)

// DedupeAndTrim trims each value, collapses inner runs of whitespace and
// drops empties and exact repeats. Order is preserved.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, func(s string) string { return s })
}

// DedupeFold is DedupeAndTrim with case-insensitive matching. The first
// spelling seen is kept, so "Wellington Town Hall" survives a later
// "wellington town hall".
func DedupeFold(values []string) []string {
	fold := cases.Fold()
	return dedupe(values, fold.String)
}

func dedupe(values []string, key func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		clean := strings.Join(strings.Fields(v), " ")
		if clean == "" {
			continue
		}
		k := key(clean)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, clean)
	}
	return result
}
