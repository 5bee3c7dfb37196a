package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Truncate safely truncates a string to max runes (not bytes) to preserve UTF-8.
// If the string is longer than max, it appends "..." to indicate truncation.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

const filenamePunctuation = "!@#$%^&'`.=+{}~()[]-"

// SanitizeFilename turns a display name into something usable as a file or
// directory name. Different names may sanitize to the same string.
func SanitizeFilename(s string) string {
	clean := norm.NFKC.String(strings.TrimSpace(s))
	clean = strings.TrimLeft(clean, ".#")
	clean = strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(filenamePunctuation, r) {
			return r
		}
		return '_'
	}, clean)
	return strings.TrimRight(clean, "_")
}
