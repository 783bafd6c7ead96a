package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CleanText collapses runs of whitespace (including NBSP) to single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// TitleCase canonicalises casing for names and streets. A Caser holds state,
// so each call builds its own.
func TitleCase(s string) string {
	return cases.Title(language.English).String(CleanText(s))
}

// NormalizeName canonicalises a business name for display.
func NormalizeName(s string) string {
	return CleanText(s)
}

var streetAbbrev = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"road":      "rd",
	"drive":     "dr",
	"boulevard": "blvd",
	"crescent":  "cres",
	"highway":   "hwy",
	"hiway":     "hwy",
	"court":     "ct",
	"place":     "pl",
	"lane":      "ln",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
	"and":       "&",
}

// keyPart lowercases, drops punctuation and folds common street words so
// that "123 Main Street" and "123 main st." compare equal.
func keyPart(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '&':
			return r
		}
		return ' '
	}, s)
	words := strings.Fields(s)
	for i, w := range words {
		if a, ok := streetAbbrev[w]; ok {
			words[i] = a
		}
	}
	return strings.Join(words, " ")
}
