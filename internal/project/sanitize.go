package project

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxTitleLength = 100
	untitled       = "untitled"
)

var (
	unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	dashRuns         = regexp.MustCompile(`-+`)
)

// SanitizeTitle maps a user title onto the safe form used as a directory
// name and record key. Accents are folded ("Café" -> "Cafe"), every other
// unsafe character becomes "-", runs of "-" collapse and the ends are
// trimmed. It never returns an empty string and SanitizeTitle(SanitizeTitle(s))
// equals SanitizeTitle(s).
func SanitizeTitle(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	s := unsafeTitleChars.ReplaceAllString(folded, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxTitleLength {
		s = strings.TrimRight(s[:maxTitleLength], "-")
	}
	if s == "" {
		return untitled
	}
	return s
}
