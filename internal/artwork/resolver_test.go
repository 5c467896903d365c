package artwork

import (
	"fmt"
	"testing"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain/mocks"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

func TestResolveFirstProviderWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockSearchProvider(ctrl)
	second := mocks.NewMockSearchProvider(ctrl)

	// The very first candidate query hits on the first provider; the second
	// provider must never be consulted.
	first.EXPECT().Search(gomock.Any(), "Let It Be The Beatles").
		Return([]domain.ArtCandidate{
			{Title: "Let It Be (Remastered)", Artist: "The Beatles", ArtworkURL: "https://img/cover.jpg"},
		}, nil)

	r := NewResolver(zap.NewNop(), []domain.SearchProvider{first, second}, nil)

	url, found := r.Resolve(t.Context(), "Let It Be", "The Beatles")
	if !found || url != "https://img/cover.jpg" {
		t.Fatalf("Resolve = (%q, %v), want match", url, found)
	}
}

func TestResolveFallsThroughProvidersAndCandidates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	first := mocks.NewMockSearchProvider(ctrl)
	second := mocks.NewMockSearchProvider(ctrl)
	first.EXPECT().Name().Return("deezer").AnyTimes()
	second.EXPECT().Name().Return("itunes").AnyTimes()

	// Provider errors and non-matching results are swallowed per call; the
	// ladder keeps descending until the generic normalized query hits.
	first.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("http 503")).
		AnyTimes()
	second.EXPECT().Search(gomock.Any(), "Halo Beyoncé").
		Return([]domain.ArtCandidate{
			{Title: "Completely Different", Artist: "Someone Else", ArtworkURL: "https://img/wrong.jpg"},
		}, nil)
	second.EXPECT().Search(gomock.Any(), "Halo").
		Return(nil, fmt.Errorf("http 500"))
	second.EXPECT().Search(gomock.Any(), "halo beyonce").
		Return([]domain.ArtCandidate{
			{Title: "Halo", Artist: "Beyoncé", ArtworkURL: "https://img/halo.jpg"},
		}, nil)

	r := NewResolver(zap.NewNop(), []domain.SearchProvider{first, second}, nil)

	url, found := r.Resolve(t.Context(), "Halo", "Beyoncé")
	if !found || url != "https://img/halo.jpg" {
		t.Fatalf("Resolve = (%q, %v), want halo.jpg", url, found)
	}
}

func TestResolveMemoizesOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockSearchProvider(ctrl)
	provider.EXPECT().Search(gomock.Any(), "Song Artist").
		Return([]domain.ArtCandidate{
			{Title: "Song", Artist: "Artist", ArtworkURL: "https://img/1.jpg"},
		}, nil).
		Times(1)

	r := NewResolver(zap.NewNop(), []domain.SearchProvider{provider}, nil)

	for i := 0; i < 3; i++ {
		url, found := r.Resolve(t.Context(), "Song", "Artist")
		if !found || url != "https://img/1.jpg" {
			t.Fatalf("call %d: Resolve = (%q, %v)", i, url, found)
		}
	}
}

func TestResolveCachesNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockSearchProvider(ctrl)
	provider.EXPECT().Name().Return("deezer").AnyTimes()

	// Every candidate in the ladder fails once, and only once: the negative
	// outcome is cached too.
	provider.EXPECT().Search(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("offline")).
		Times(len(queryCandidates("Obscurity", "Nobody")))

	r := NewResolver(zap.NewNop(), []domain.SearchProvider{provider}, nil)

	for i := 0; i < 2; i++ {
		url, found := r.Resolve(t.Context(), "Obscurity", "Nobody")
		if found || url != "" {
			t.Fatalf("call %d: Resolve = (%q, %v), want not found", i, url, found)
		}
	}
}

func TestResolveSkipsResultsWithoutArtwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	provider := mocks.NewMockSearchProvider(ctrl)
	provider.EXPECT().Search(gomock.Any(), "Song Artist").
		Return([]domain.ArtCandidate{
			{Title: "Song", Artist: "Artist"},
			{Title: "Song", Artist: "Artist", ArtworkURL: "https://img/2.jpg"},
		}, nil)

	r := NewResolver(zap.NewNop(), []domain.SearchProvider{provider}, nil)

	url, found := r.Resolve(t.Context(), "Song", "Artist")
	if !found || url != "https://img/2.jpg" {
		t.Fatalf("Resolve = (%q, %v), want second result", url, found)
	}
}
