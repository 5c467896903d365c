package artwork

import (
	"context"
	"strings"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// CachingResolver produces a best-guess artwork URL for a track by running a
// ladder of query candidates through the search providers in order and
// scoring every result with the match predicate. Outcomes, including
// "nothing found", are memoized for the process lifetime; stale artwork for a
// re-released track is an accepted trade-off.
type CachingResolver struct {
	logger    *zap.Logger
	providers []domain.SearchProvider
	verifier  *Verifier
	// results maps (normalized title, normalized artist) to an entry;
	// entries never expire
	results *cache.Cache
}

type entry struct {
	url   string
	found bool
}

// NewResolver creates a resolver querying the given providers in order
func NewResolver(logger *zap.Logger, providers []domain.SearchProvider, verifier *Verifier) domain.Resolver {
	return &CachingResolver{
		logger:    logger,
		providers: providers,
		verifier:  verifier,
		results:   cache.New(cache.NoExpiration, 0),
	}
}

// Resolve returns an artwork URL for the track, or found=false when every
// candidate came up empty. Provider failures are swallowed per call; they
// only mean "no result from this provider for this candidate".
func (r *CachingResolver) Resolve(ctx context.Context, title, artist string) (string, bool) {
	key := cacheKey(title, artist)
	if cached, ok := r.results.Get(key); ok {
		e := cached.(entry)
		return e.url, e.found
	}

	for _, query := range queryCandidates(title, artist) {
		for _, provider := range r.providers {
			results, err := provider.Search(ctx, query)
			if err != nil {
				r.logger.Debug("Artwork search failed",
					zap.String("provider", provider.Name()),
					zap.String("query", query),
					zap.Error(err))
				continue
			}

			for _, result := range results {
				if result.ArtworkURL == "" || !matches(result, title, artist) {
					continue
				}
				if r.verifier != nil {
					if err := r.verifier.Verify(ctx, result.ArtworkURL); err != nil {
						r.logger.Debug("Artwork URL rejected",
							zap.String("url", result.ArtworkURL),
							zap.Error(err))
						continue
					}
				}

				r.logger.Info("Artwork resolved",
					zap.String("title", title),
					zap.String("provider", provider.Name()),
					zap.String("query", query))
				r.results.Set(key, entry{url: result.ArtworkURL, found: true}, cache.NoExpiration)
				return result.ArtworkURL, true
			}
		}
	}

	r.logger.Info("No artwork found",
		zap.String("title", title),
		zap.String("artist", artist))
	r.results.Set(key, entry{}, cache.NoExpiration)
	return "", false
}

// queryCandidates builds the ordered query ladder, from most specific and
// raw to most generic and normalized, deduplicated and with empties dropped
func queryCandidates(title, artist string) []string {
	normTitle := normalizeText(title)
	normArtist := normalizeText(artist)
	normPrimary := normalizeText(primaryArtist(artist))

	raw := []string{
		strings.TrimSpace(title + " " + artist),
		strings.TrimSpace(title),
		strings.TrimSpace(normTitle + " " + normArtist),
		strings.TrimSpace(normTitle + " " + normPrimary),
		normTitle,
		normPrimary,
	}

	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, q := range raw {
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}

func cacheKey(title, artist string) string {
	return normalizeText(title) + "\x00" + normalizeText(artist)
}
