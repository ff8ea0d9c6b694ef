package analysis

import (
	"strings"
	"unicode/utf8"
)

// clipRunes trims s and cuts it to at most maxRunes runes.
func clipRunes(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}

// ellipsize shortens s to at most maxRunes runes, marking the cut with "…".
func ellipsize(s string, maxRunes int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return strings.TrimRight(clipRunes(s, maxRunes), " \t") + "…"
}
