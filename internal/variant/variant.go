// Package variant derives normalized lexical forms of entity names for
// substring matching against article text.
package variant

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining marks, so "Jiménez"
// normalizes to "jimenez".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips diacritics and punctuation, and collapses
// whitespace. Everything that is not a letter or a digit becomes a word
// separator.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NameVariants expands a display name into the lexical forms used for mention
// detection: the full normalized name, each token, the tokens concatenated,
// the initials (for multi-token names) and adjacent token bigrams.
// The result is sorted so repeated calls yield identical slices.
func NameVariants(name string) []string {
	base := Normalize(name)
	if base == "" {
		return nil
	}

	set := map[string]struct{}{base: {}}
	tokens := strings.Fields(base)
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	set[strings.Join(tokens, "")] = struct{}{}

	if len(tokens) > 1 {
		var initials strings.Builder
		for _, t := range tokens {
			initials.WriteRune([]rune(t)[0])
		}
		set[initials.String()] = struct{}{}
	}
	for i := 0; i+1 < len(tokens); i++ {
		set[tokens[i]+" "+tokens[i+1]] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
