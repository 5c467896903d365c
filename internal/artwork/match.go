package artwork

import (
	"strings"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
)

// matches decides whether a search result plausibly is the expected track.
// Deliberately permissive: stylized titles, remaster suffixes and reordered
// artist credits should still match, at the cost of occasional false-positive
// artwork.
//
// Artist matches when no artist was expected, when either normalized artist
// string contains the other, or when any significant token of the result
// artist appears inside the expected artist. Title matches on shared
// significant tokens or substring containment in either direction. The
// overall match requires both.
func matches(result domain.ArtCandidate, expectedTitle, expectedArtist string) bool {
	resultTitle := normalizeText(result.Title)
	resultArtist := normalizeText(result.Artist)
	wantTitle := normalizeText(expectedTitle)
	wantArtist := normalizeText(expectedArtist)

	return artistMatches(resultArtist, wantArtist) && titleMatches(resultTitle, wantTitle)
}

func artistMatches(resultArtist, wantArtist string) bool {
	if wantArtist == "" {
		return true
	}
	if resultArtist == "" {
		return false
	}
	if strings.Contains(resultArtist, wantArtist) || strings.Contains(wantArtist, resultArtist) {
		return true
	}
	for _, tok := range tokens(resultArtist) {
		if strings.Contains(wantArtist, tok) {
			return true
		}
	}
	return false
}

func titleMatches(resultTitle, wantTitle string) bool {
	if resultTitle == "" || wantTitle == "" {
		return false
	}
	want := make(map[string]struct{})
	for _, tok := range tokens(wantTitle) {
		want[tok] = struct{}{}
	}
	for _, tok := range tokens(resultTitle) {
		if _, ok := want[tok]; ok {
			return true
		}
	}
	return strings.Contains(resultTitle, wantTitle) || strings.Contains(wantTitle, resultTitle)
}
