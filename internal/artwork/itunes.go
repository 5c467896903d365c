package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

const itunesBaseURL = "https://itunes.apple.com/search"

// ITunesProvider searches the iTunes Store catalog. Queried second, as the
// fallback with the larger mainstream coverage.
type ITunesProvider struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
}

type itunesResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackName     string `json:"trackName"`
		ArtistName    string `json:"artistName"`
		ArtworkURL100 string `json:"artworkUrl100"`
	} `json:"results"`
}

// NewITunesProvider creates the iTunes search client
func NewITunesProvider(logger *zap.Logger) *ITunesProvider {
	return &ITunesProvider{
		logger:  logger,
		client:  &http.Client{Timeout: providerTimeout},
		baseURL: itunesBaseURL,
	}
}

// Name identifies the provider in logs
func (p *ITunesProvider) Name() string {
	return "itunes"
}

// Search returns up to maxProviderHits ranked candidates for a free-text query
func (p *ITunesProvider) Search(ctx context.Context, query string) ([]domain.ArtCandidate, error) {
	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("limit", fmt.Sprintf("%d", maxProviderHits))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", providerUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var parsed itunesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	candidates := make([]domain.ArtCandidate, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		candidates = append(candidates, domain.ArtCandidate{
			Title:      item.TrackName,
			Artist:     item.ArtistName,
			ArtworkURL: upscaleArtwork(item.ArtworkURL100),
		})
	}
	return candidates, nil
}

// upscaleArtwork swaps the 100x100 thumbnail variant for the 600x600 one
func upscaleArtwork(artworkURL string) string {
	return strings.Replace(artworkURL, "100x100bb", "600x600bb", 1)
}
