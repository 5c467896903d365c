package artwork

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

const (
	deezerBaseURL     = "https://api.deezer.com/search"
	providerTimeout   = 5 * time.Second
	maxProviderHits   = 10
	providerUserAgent = "telegram-music-presence/1.0"
)

// DeezerProvider searches the Deezer catalog. Queried first: its catalog
// covers more regional and independent releases than iTunes.
type DeezerProvider struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
}

type deezerResponse struct {
	Data []struct {
		Title  string `json:"title"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Album struct {
			Cover       string `json:"cover"`
			CoverMedium string `json:"cover_medium"`
			CoverBig    string `json:"cover_big"`
			CoverXL     string `json:"cover_xl"`
		} `json:"album"`
	} `json:"data"`
}

// NewDeezerProvider creates the Deezer search client
func NewDeezerProvider(logger *zap.Logger) *DeezerProvider {
	return &DeezerProvider{
		logger:  logger,
		client:  &http.Client{Timeout: providerTimeout},
		baseURL: deezerBaseURL,
	}
}

// Name identifies the provider in logs
func (p *DeezerProvider) Name() string {
	return "deezer"
}

// Search returns up to maxProviderHits ranked candidates for a free-text query
func (p *DeezerProvider) Search(ctx context.Context, query string) ([]domain.ArtCandidate, error) {
	params := url.Values{}
	params.Set("q", query)
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

	var parsed deezerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("malformed payload: %w", err)
	}

	candidates := make([]domain.ArtCandidate, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		candidates = append(candidates, domain.ArtCandidate{
			Title:      item.Title,
			Artist:     item.Artist.Name,
			ArtworkURL: firstNonEmpty(item.Album.CoverXL, item.Album.CoverBig, item.Album.CoverMedium, item.Album.Cover),
		})
	}
	return candidates, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
