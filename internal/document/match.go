package document

import (
	"regexp"
	"strings"
	"unicode"
)

var corporateSuffixes = map[string]bool{
	"inc": true, "corp": true, "corporation": true, "ltd": true, "limited": true, "co": true,
	"company": true, "plc": true, "llc": true, "holdings": true, "group": true, "the": true,
	"and": true, "sa": true, "ag": true, "nv": true,
}

// MatchesCompany reports whether text looks like it is about the company:
// the ticker as a word, the full name, or any distinctive name token longer
// than two characters as a word, all case-insensitive.
func MatchesCompany(text, symbol, companyName string) bool {
	lower := strings.ToLower(text)
	if sym := strings.ToLower(strings.TrimSpace(symbol)); sym != "" {
		if containsWord(lower, sym) {
			return true
		}
		if base, _, ok := strings.Cut(sym, "."); ok && len(base) > 2 && containsWord(lower, base) {
			return true
		}
	}
	name := strings.ToLower(strings.TrimSpace(companyName))
	if name == "" {
		return false
	}
	if strings.Contains(lower, name) {
		return true
	}
	for _, tok := range nameTokens(name) {
		if containsWord(lower, tok) {
			return true
		}
	}
	return false
}

func nameTokens(name string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	}) {
		tok := strings.TrimFunc(f, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if len([]rune(tok)) > 2 && !corporateSuffixes[tok] {
			out = append(out, tok)
		}
	}
	return out
}

func containsWord(text, word string) bool {
	re, err := regexp.Compile(`(^|[^\pL\pN])` + regexp.QuoteMeta(word) + `($|[^\pL\pN])`)
	if err != nil {
		return strings.Contains(text, word)
	}
	return re.MatchString(text)
}
