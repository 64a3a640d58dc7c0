package httpserver

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var tabIDChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeTabID strips characters that must never reach the rate limiter or
// session keys. Tab ids come from the browser extension and are not trusted.
func SanitizeTabID(tabID string) string {
	tabID = tabIDChars.ReplaceAllString(tabID, "")
	if len(tabID) > 100 {
		tabID = tabID[:100]
	}
	return tabID
}

// SanitizeString removes null bytes and control characters, trims whitespace
// and caps length.
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)
	if len(input) > 1000 {
		input = input[:1000]
	}
	if !utf8.ValidString(input) {
		input = strings.ToValidUTF8(input, "")
	}
	return input
}
