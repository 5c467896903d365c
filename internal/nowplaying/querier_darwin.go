//go:build darwin
// +build darwin

package nowplaying

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

// ExecQuerier shells out to a MediaRemote adapter helper that prints the
// current now-playing state as a single JSON object keyed by the canonical
// raw keys. The helper is configured via PRESENCE_MEDIA_ADAPTER.
type ExecQuerier struct {
	logger  *zap.Logger
	command []string
}

// NewQuerier creates the platform now-playing querier (adapter implementation)
func NewQuerier(logger *zap.Logger, cfg domain.Config) domain.Querier {
	return &ExecQuerier{
		logger:  logger,
		command: cfg.AdapterCommand(),
	}
}

// Query runs the adapter and decodes its JSON output.
// Exec failures and malformed output surface as errors; the snapshot
// normalizer treats both as "nothing playing".
func (q *ExecQuerier) Query(ctx context.Context) (map[string]any, error) {
	if len(q.command) == 0 {
		return nil, fmt.Errorf("no media adapter configured")
	}

	cmd := exec.CommandContext(ctx, q.command[0], q.command[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("media adapter failed: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("malformed media adapter output: %w", err)
	}

	// Some adapter builds use "playing" for the reported-playing flag
	if _, ok := raw[domain.RawKeyIsPlaying]; !ok {
		if playing, ok := raw["playing"].(bool); ok {
			raw[domain.RawKeyIsPlaying] = playing
		}
	}

	q.logger.Debug("Media adapter query complete", zap.Int("fields", len(raw)))
	return raw, nil
}
