//go:build linux
// +build linux

package nowplaying

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"

	propMetadata       = "org.mpris.MediaPlayer2.Player.Metadata"
	propPlaybackStatus = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	propPosition       = "org.mpris.MediaPlayer2.Player.Position"
	propRate           = "org.mpris.MediaPlayer2.Player.Rate"
	propDesktopEntry   = "org.mpris.MediaPlayer2.DesktopEntry"
)

// MprisQuerier polls the session bus for the most relevant MPRIS player and
// maps its properties onto the canonical raw now-playing keys. The bus
// connection is established lazily and kept for the process lifetime.
type MprisQuerier struct {
	logger  *zap.Logger
	client  DBusClient
	connect func() (DBusClient, error)
}

// NewQuerier creates the platform now-playing querier (MPRIS implementation)
func NewQuerier(logger *zap.Logger, _ domain.Config) domain.Querier {
	return &MprisQuerier{
		logger: logger,
		connect: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Query returns the raw now-playing state of the preferred player.
// Returns an error when no player is on the bus or the bus is unreachable;
// the snapshot normalizer treats both as "nothing playing".
func (q *MprisQuerier) Query(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if q.client == nil {
		client, err := q.connect()
		if err != nil {
			return nil, fmt.Errorf("session bus connection failed: %w", err)
		}
		q.client = client
	}

	names, err := q.client.ListNames()
	if err != nil {
		// Force a fresh connection on the next tick
		_ = q.client.Close()
		q.client = nil
		return nil, fmt.Errorf("failed to list bus names: %w", err)
	}

	player, status, ok := q.pickPlayer(names)
	if !ok {
		return nil, fmt.Errorf("no media players on the session bus")
	}

	raw := map[string]any{
		domain.RawKeyIsPlaying: status == "Playing",
		domain.RawKeyBundleID:  strings.TrimPrefix(player, mprisPrefix),
	}

	if metaVar, err := q.client.GetProperty(player, mprisObjectPath, propMetadata); err == nil {
		if metadata, ok := metaVar.Value().(map[string]dbus.Variant); ok {
			q.applyMetadata(raw, metadata)
		}
	}

	if posVar, err := q.client.GetProperty(player, mprisObjectPath, propPosition); err == nil {
		if micros, ok := asInt64(posVar.Value()); ok && micros >= 0 {
			raw[domain.RawKeyElapsedTime] = float64(micros) / 1e6
			// Position is read right now, so the sample instant is now
			raw[domain.RawKeyTimestamp] = float64(time.Now().UnixMilli())
		}
	}

	if rateVar, err := q.client.GetProperty(player, mprisObjectPath, propRate); err == nil {
		if rate, ok := asFloat64(rateVar.Value()); ok {
			raw[domain.RawKeyPlaybackRate] = rate
		}
	}

	if entryVar, err := q.client.GetProperty(player, mprisObjectPath, propDesktopEntry); err == nil {
		if entry, ok := entryVar.Value().(string); ok && entry != "" {
			raw[domain.RawKeyParentBundleID] = entry
		}
	}

	if pid, err := q.client.GetConnectionUnixProcessID(player); err == nil && pid > 0 {
		raw[domain.RawKeyProcessID] = float64(pid)
	} else if err != nil {
		q.logger.Debug("Failed to resolve player pid",
			zap.String("player", player),
			zap.Error(err))
	}

	return raw, nil
}

// pickPlayer chooses the first actively playing MPRIS player, falling back
// to the first player found
func (q *MprisQuerier) pickPlayer(names []string) (player, status string, ok bool) {
	var fallback, fallbackStatus string
	for _, name := range names {
		if !strings.HasPrefix(name, mprisPrefix) {
			continue
		}
		s := "Stopped"
		if statusVar, err := q.client.GetProperty(name, mprisObjectPath, propPlaybackStatus); err == nil {
			if v, isStr := statusVar.Value().(string); isStr {
				s = v
			}
		}
		if s == "Playing" {
			return name, s, true
		}
		if fallback == "" {
			fallback, fallbackStatus = name, s
		}
	}
	if fallback == "" {
		return "", "", false
	}
	return fallback, fallbackStatus, true
}

// applyMetadata copies the xesam/mpris fields the normalizer consumes
func (q *MprisQuerier) applyMetadata(raw map[string]any, metadata map[string]dbus.Variant) {
	if titleVar, ok := metadata["xesam:title"]; ok {
		if title, ok := titleVar.Value().(string); ok {
			raw[domain.RawKeyTitle] = title
		}
	}

	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			if len(artists) > 0 {
				raw[domain.RawKeyArtist] = strings.Join(artists, ", ")
			}
		case string:
			raw[domain.RawKeyArtist] = artists
		default:
			q.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", artistVar.Value())))
		}
	}

	if albumVar, ok := metadata["xesam:album"]; ok {
		if album, ok := albumVar.Value().(string); ok {
			raw[domain.RawKeyAlbum] = album
		}
	}

	if lengthVar, ok := metadata["mpris:length"]; ok {
		if micros, ok := asInt64(lengthVar.Value()); ok && micros > 0 {
			raw[domain.RawKeyDuration] = float64(micros) / 1e6
		}
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
