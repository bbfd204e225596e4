package identification

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var folder = cases.Fold()

// foldKey produces a comparison key: accents removed, case folded and
// whitespace collapsed.
func foldKey(value string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), value)
	if err != nil {
		stripped = value
	}
	return collapseWhitespace(folder.String(stripped))
}

// compactKey is foldKey without any whitespace, punctuation kept.
func compactKey(value string) string {
	return strings.ReplaceAll(foldKey(value), " ", "")
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func stripWhitespace(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
}

func digitsOnly(value string) string {
	var builder strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

func hasLetter(value string) bool {
	for _, r := range value {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// longestDigitRun returns the length of the longest run of consecutive digits.
func longestDigitRun(value string) int {
	longest, current := 0, 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			current++
			if current > longest {
				longest = current
			}
			continue
		}
		current = 0
	}
	return longest
}

// containsFold reports case-insensitive containment in either direction.
func containsFold(a, b string) bool {
	a, b = foldKey(a), foldKey(b)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
