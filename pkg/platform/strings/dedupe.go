// Package strings holds small string slice helpers shared by config parsing
// and token tooling.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops empties and repeats, keeping
// first-seen order.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// SplitList splits a comma separated list and applies DedupeAndTrim.
// An empty input yields nil.
func SplitList(s string) []string {
	out := DedupeAndTrim(strings.Split(s, ","))
	if len(out) == 0 {
		return nil
	}
	return out
}
