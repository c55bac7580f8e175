// Package strings normalises free-text lists typed by users, such as a
// comma-separated organ selection.
package strings

import (
	"strings"
)

// SplitList splits s on sep and returns the distinct, trimmed, lower-cased
// items in first-seen order. Blank items are dropped.
//
// Example:
//
//	SplitList(" Kidney, liver,,kidney ", ",")
//	// Returns: []string{"kidney", "liver"}
func SplitList(s, sep string) []string {
	seen := make(map[string]struct{})
	var result []string
	for part := range strings.SplitSeq(s, sep) {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; !ok {
			seen[item] = struct{}{}
			result = append(result, item)
		}
	}
	return result
}
