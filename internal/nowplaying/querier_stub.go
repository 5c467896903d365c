//go:build !linux && !darwin
// +build !linux,!darwin

package nowplaying

import (
	"context"
	"fmt"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

// StubQuerier stands in on platforms without a now-playing backend
type StubQuerier struct {
	logger *zap.Logger
}

// NewQuerier creates a stub querier that reports an unsupported platform
func NewQuerier(logger *zap.Logger, _ domain.Config) domain.Querier {
	return &StubQuerier{logger: logger}
}

// Query always fails; the snapshot normalizer treats this as nothing playing
func (q *StubQuerier) Query(ctx context.Context) (map[string]any, error) {
	return nil, fmt.Errorf("now-playing queries are only supported on darwin and linux")
}
