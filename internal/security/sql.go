// Package security provides security-related utilities for the upfronts service
package security

import (
	"strings"
)

// EscapeLikePattern escapes special characters in LIKE patterns so user
// input is matched literally.
func EscapeLikePattern(pattern string) string {
	// Escape the special characters used in SQL LIKE: %, _, and \
	pattern = strings.ReplaceAll(pattern, `\`, `\\`)
	pattern = strings.ReplaceAll(pattern, `%`, `\%`)
	pattern = strings.ReplaceAll(pattern, `_`, `\_`)
	return pattern
}

// ContainsPattern builds the case-folded LIKE pattern for a substring
// search on the given term.
func ContainsPattern(term string) string {
	return "%" + EscapeLikePattern(strings.ToLower(term)) + "%"
}
