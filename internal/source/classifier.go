package source

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// identityTTL bounds how often a single process' command line is
	// re-inspected for the ambiguous web-app loader
	identityTTL      = 30 * time.Second
	identityJanitor  = time.Minute

	// webAppLoaderBundleID is the generic wrapper process shared by every
	// Safari web app; the bundle id alone cannot tell YouTube Music apart
	// from any other installed web app
	webAppLoaderBundleID = "com.apple.webkit.gpu"

	// youtubeMusicMarker distinguishes the YouTube Music web app in the
	// loader's command line
	youtubeMusicMarker = "music.youtube.com"
)

// Bundle identifiers matched case-insensitively against the effective bundle
// id of the reporting process.
var (
	telegramBundleIDs = map[string]struct{}{
		"ru.keepcoder.telegram": {},
		"org.telegram.desktop":  {},
	}
	youtubeMusicBundleIDs = map[string]struct{}{
		"com.github.th-ch.youtube-music": {},
	}
)

// Classifier decides, per poll, whether the active media source is one of the
// supported players. Classification is stateless apart from the auxiliary
// lookup cache; it never consults a previous tick's result.
type Classifier struct {
	logger    *zap.Logger
	inspector domain.ProcessInspector
	// identities caches the per-pid web-app lookup result for identityTTL
	identities *cache.Cache
}

// NewClassifier creates a classifier backed by the given process inspector
func NewClassifier(logger *zap.Logger, inspector domain.ProcessInspector) domain.Classifier {
	return &Classifier{
		logger:     logger,
		inspector:  inspector,
		identities: cache.New(identityTTL, identityJanitor),
	}
}

// Classify maps a snapshot's source identity to a MediaSource.
// Lookup failures degrade to SourceNone for this tick; they never abort
// polling.
func (c *Classifier) Classify(ctx context.Context, snap domain.NowPlayingSnapshot) domain.MediaSource {
	if snap.Source == nil {
		return domain.SourceNone
	}

	effective := snap.Source.ParentBundleID
	if effective == "" {
		effective = snap.Source.BundleID
	}
	if effective == "" {
		return domain.SourceNone
	}
	key := strings.ToLower(effective)

	if _, ok := telegramBundleIDs[key]; ok {
		return domain.SourceTelegram
	}
	if _, ok := youtubeMusicBundleIDs[key]; ok {
		return domain.SourceYouTubeMusic
	}

	if key == webAppLoaderBundleID && snap.Source.ProcessID != nil {
		if c.isYouTubeMusicProcess(ctx, *snap.Source.ProcessID) {
			return domain.SourceYouTubeMusic
		}
	}

	return domain.SourceNone
}

// isYouTubeMusicProcess inspects the loader process' command line, caching
// the boolean result per pid. Inspection failures are treated as non-match
// and left uncached so a transient failure can recover on a later tick.
func (c *Classifier) isYouTubeMusicProcess(ctx context.Context, pid int32) bool {
	cacheKey := strconv.Itoa(int(pid))
	if cached, ok := c.identities.Get(cacheKey); ok {
		return cached.(bool)
	}

	cmdline, err := c.inspector.Cmdline(ctx, pid)
	if err != nil {
		c.logger.Debug("Process inspection failed, treating as non-match",
			zap.Int32("pid", pid),
			zap.Error(err))
		return false
	}

	match := strings.Contains(strings.ToLower(cmdline), youtubeMusicMarker)
	c.identities.Set(cacheKey, match, cache.DefaultExpiration)

	if match {
		c.logger.Debug("Web-app loader identified as YouTube Music", zap.Int32("pid", pid))
	}
	return match
}
