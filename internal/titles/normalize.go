package titles

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// numberTokens maps whole-word cardinals and roman numerals to digits.
// A lone "i" is not mapped.
var numberTokens = map[string]string{
	"zero":  "0",
	"one":   "1",
	"two":   "2",
	"three": "3",
	"four":  "4",
	"five":  "5",
	"six":   "6",
	"seven": "7",
	"eight": "8",
	"nine":  "9",
	"ii":    "2",
	"iii":   "3",
	"iv":    "4",
	"v":     "5",
	"vi":    "6",
	"vii":   "7",
	"viii":  "8",
	"ix":    "9",
	"x":     "10",
}

var romanNumerals = map[string]struct{}{
	"ii": {}, "iii": {}, "iv": {}, "v": {}, "vi": {}, "vii": {}, "viii": {}, "ix": {}, "x": {},
}

// stopWords are articles, prepositions and edition qualifiers ignored when
// comparing titles.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "from": {},
	"special": {}, "deluxe": {}, "remastered": {}, "edition": {}, "collectors": {},
	"collector": {}, "definitive": {}, "ultimate": {}, "complete": {}, "goty": {}, "hd": {},
}

// Normalize canonicalizes a free-text title for comparison. It never fails and
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(input string) string {
	folded := foldDiacritics(strings.ToLower(input))

	fields := strings.FieldsFunc(folded, isSeparator)
	out := fields[:0]
	for _, token := range fields {
		if digit, ok := numberTokens[token]; ok {
			token = digit
		}
		if _, stop := stopWords[token]; stop {
			continue
		}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// IsSeriesToken reports whether a normalized token marks a sequel number.
func IsSeriesToken(token string) bool {
	if token == "" {
		return false
	}
	if _, ok := romanNumerals[token]; ok {
		return true
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BaseName returns every token of a normalized title up to, but excluding,
// the first sequel-number token.
func BaseName(normalized string) string {
	tokens := strings.Fields(normalized)
	for i, token := range tokens {
		if IsSeriesToken(token) {
			return strings.Join(tokens[:i], " ")
		}
	}
	return strings.Join(tokens, " ")
}

// SeriesIndicator returns the first sequel-number token of a normalized title,
// or "" when it has none.
func SeriesIndicator(normalized string) string {
	for _, token := range strings.Fields(normalized) {
		if IsSeriesToken(token) {
			return token
		}
	}
	return ""
}
