package artwork

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes text and removes combining marks, so "Beyoncé"
// normalizes the same as "Beyonce"
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// multi-artist credit separators, matched case-insensitively; text before the
// first one is the primary artist
var artistSeparators = []string{",", " & ", " feat.", " ft.", " featuring ", " x "}

// minTokenRunes is the matching threshold below which tokens are considered
// noise ("a", "of", "to"). Tuning knob, not a load-bearing constant.
const minTokenRunes = 2

// normalizeText lowercases, strips diacritics and punctuation, and collapses
// whitespace. Used for query candidates, cache keys and fuzzy matching.
func normalizeText(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// primaryArtist truncates a multi-artist credit at the first separator,
// keeping only the text before it
func primaryArtist(artist string) string {
	lower := strings.ToLower(artist)
	cut := len(artist)
	for _, sep := range artistSeparators {
		if idx := strings.Index(lower, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(artist[:cut])
}

// tokens splits normalized text into words longer than minTokenRunes
func tokens(normalized string) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) > minTokenRunes {
			out = append(out, tok)
		}
	}
	return out
}
