// Package strings normalizes operator-supplied identifier lists.
package strings

import "strings"

// NormalizeIdentifiers trims and lowercases each value, dropping blanks and
// repeats. First-seen order is kept so batch reports line up with input.
func NormalizeIdentifiers(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
