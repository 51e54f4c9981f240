package reasoning

import "strings"

// FindBoundary returns the index in haystack where needle starts, or where a
// trailing fragment of haystack could still grow into needle once more input
// arrives. A full match anywhere wins over a partial one. Among partial
// matches the lowest index is returned, so the longest possible overlap is
// held back. It returns -1 when needle is empty or nothing matches.
func FindBoundary(haystack, needle string) int {
	if needle == "" {
		return -1
	}
	if idx := strings.Index(haystack, needle); idx >= 0 {
		return idx
	}
	// A partial match is a proper prefix of needle, so only the last
	// len(needle)-1 bytes can hold one.
	start := max(len(haystack)-len(needle)+1, 0)
	for i := start; i < len(haystack); i++ {
		if strings.HasPrefix(needle, haystack[i:]) {
			return i
		}
	}
	return -1
}

// isFullMatch reports whether needle occurs in full at haystack[idx:].
func isFullMatch(haystack, needle string, idx int) bool {
	return idx >= 0 && strings.HasPrefix(haystack[idx:], needle)
}
