// Package dedupe removes repeated elements while keeping first-seen order.
package dedupe

import "strings"

// Ordered returns values with later repeats dropped. The input is not modified.
//
//	Ordered([]int{3, 1, 3, 2, 1}) // []int{3, 1, 2}
func Ordered[T comparable](values []T) []T {
	if values == nil {
		return nil
	}
	seen := make(map[T]struct{}, len(values))
	result := make([]T, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// Trimmed trims whitespace, drops empty strings, then dedupes.
//
//	Trimmed([]string{"  a ", "b", "a", "", "  "}) // []string{"a", "b"}
func Trimmed(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return Ordered(out)
}
