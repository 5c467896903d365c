package snapshot

import (
	"encoding/json"
	"time"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

// Normalizer converts the raw, loosely-typed now-playing query result into a
// canonical NowPlayingSnapshot. Unknown or malformed fields become absent,
// never placeholder values.
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new snapshot normalizer
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize builds a snapshot from one poll's query result.
// A query error is an expected condition (player closed, OS denied access,
// transient failure): it is logged and mapped to an all-absent snapshot with
// IsReportedPlaying = false, never raised.
func (n *Normalizer) Normalize(raw map[string]any, qerr error) domain.NowPlayingSnapshot {
	if qerr != nil {
		n.logger.Debug("Now-playing query failed, treating as nothing playing", zap.Error(qerr))
		return domain.NowPlayingSnapshot{}
	}
	if raw == nil {
		return domain.NowPlayingSnapshot{}
	}

	snap := domain.NowPlayingSnapshot{
		Title:             stringField(raw, domain.RawKeyTitle),
		Artist:            stringField(raw, domain.RawKeyArtist),
		Album:             stringField(raw, domain.RawKeyAlbum),
		DurationSeconds:   nonNegativeField(raw, domain.RawKeyDuration),
		ElapsedSeconds:    nonNegativeField(raw, domain.RawKeyElapsedTime),
		SampledAt:         timeField(raw, domain.RawKeyTimestamp),
		PlaybackRate:      numberField(raw, domain.RawKeyPlaybackRate),
		IsReportedPlaying: boolField(raw, domain.RawKeyIsPlaying),
	}

	bundle := stringField(raw, domain.RawKeyBundleID)
	parent := stringField(raw, domain.RawKeyParentBundleID)
	pid := pidField(raw, domain.RawKeyProcessID)
	if bundle != nil || parent != nil || pid != nil {
		snap.Source = &domain.SourceIdentity{
			BundleID:       deref(bundle),
			ParentBundleID: deref(parent),
			ProcessID:      pid,
		}
	}

	return snap
}

// stringField returns the value as *string, or nil when absent, not a string,
// or empty. An empty string carries no information the absent case doesn't.
func stringField(raw map[string]any, key string) *string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// numberField tolerates the numeric types different query backends produce
func numberField(raw map[string]any, key string) *float64 {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int:
		f := float64(n)
		return &f
	case int32:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case uint32:
		f := float64(n)
		return &f
	case uint64:
		f := float64(n)
		return &f
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func nonNegativeField(raw map[string]any, key string) *float64 {
	f := numberField(raw, key)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

// timeField accepts epoch milliseconds or an RFC 3339 string
func timeField(raw map[string]any, key string) *time.Time {
	if f := numberField(raw, key); f != nil {
		if *f <= 0 {
			return nil
		}
		t := time.UnixMilli(int64(*f))
		return &t
	}
	s := stringField(raw, key)
	if s == nil {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil
	}
	return &t
}

func boolField(raw map[string]any, key string) bool {
	b, ok := raw[key].(bool)
	return ok && b
}

func pidField(raw map[string]any, key string) *int32 {
	f := numberField(raw, key)
	if f == nil || *f <= 0 {
		return nil
	}
	pid := int32(*f)
	return &pid
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
