// Package matching holds the pure text primitives used to compare titles
// across catalogs: normalization, similarity and metadata heuristics.
package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var disallowedRE = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)

var articles = map[string]struct{}{"the": {}, "a": {}, "an": {}}

// Normalize canonicalizes a title for comparison: diacritics folded,
// lowercased, everything but letters/digits/whitespace/hyphen stripped,
// standalone English articles removed and whitespace collapsed.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(title string) string {
	s := foldDiacritics(title)
	// Casers carry state and must not be shared across goroutines.
	s = cases.Lower(language.Und).String(s)
	s = disallowedRE.ReplaceAllString(s, "")

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if _, ok := articles[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
