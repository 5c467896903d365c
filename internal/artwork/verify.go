package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const _maxArtworkSize = 10 * 1024 * 1024 // 10 MB

// Verifier confirms that a resolved artwork URL actually serves an image
// before the URL is cached and shipped inside a presence payload. A dead or
// mislabeled URL downgrades the candidate to no-match.
type Verifier struct {
	logger *zap.Logger
	client *http.Client
}

// NewVerifier creates an artwork URL verifier
func NewVerifier(logger *zap.Logger) *Verifier {
	return &Verifier{
		logger: logger,
		client: &http.Client{
			Timeout: providerTimeout,
		},
	}
}

// Verify fetches the URL and checks it responds with an image
func (v *Verifier) Verify(ctx context.Context, artworkURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", providerUserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return fmt.Errorf("url is not an image: %s", resp.Header.Get("Content-Type"))
	}

	// Drain a bounded amount so the connection can be reused
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, _maxArtworkSize))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	v.logger.Debug("Artwork URL verified",
		zap.String("url", artworkURL),
		zap.Int64("bytes", n))
	return nil
}
