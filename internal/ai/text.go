package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var spaceRe = regexp.MustCompile(`\s+`)

// CleanText flattens line breaks and collapses runs of whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// SplitParagraphs splits on line breaks and drops blank lines.
func SplitParagraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r", "\n")
	var out []string
	for _, p := range strings.Split(s, "\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
