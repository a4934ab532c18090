// Package textutil trims free text to storage and log limits without
// splitting UTF-8 sequences.
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s cut to at most maxRunes runes.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i]
		}
		n++
	}
	return s
}

// Excerpt is a trimmed, bounded view of a response body for log lines.
// An ellipsis marks a cut.
func Excerpt(body []byte, maxRunes int) string {
	s := strings.ToValidUTF8(strings.TrimSpace(string(body)), "�")
	cut := Truncate(s, maxRunes)
	if len(cut) < len(s) {
		return cut + "…"
	}
	return cut
}
