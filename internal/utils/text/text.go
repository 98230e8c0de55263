// Package text holds the string helpers shared by the adapters and sinks.
package text

import (
	"strings"
	"unicode/utf8"
)

// Ellipsis is appended by Truncate.
const Ellipsis = "..."

// CountRunes counts Unicode characters, not bytes.
func CountRunes(s string) int {
	return utf8.RuneCountInString(s)
}

// Collapse trims s and replaces every run of whitespace with one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most maxBytes bytes, ending in Ellipsis when
// something was removed. It never splits a rune.
func Truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := max(maxBytes-len(Ellipsis), 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + Ellipsis
}
