package controller

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/presence"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/progress"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/snapshot"
	"go.uber.org/zap"
)

// tickTimeout bounds a whole tick, including the media query and any search
// provider calls, so a hung external call cannot stall the loop forever
const tickTimeout = 15 * time.Second

// QuitFunc requests application shutdown (wired to fx.Shutdowner in main)
type QuitFunc func()

// Controller is the presence lifecycle state machine and polling loop.
//
// Everything runs on one goroutine: poll ticks, tray actions and
// connectivity events are all serialized through a single select, so the
// caches and bookkeeping below need no locks.
type Controller struct {
	logger     *zap.Logger
	clock      clock.Clock
	cfg        domain.Config
	querier    domain.Querier
	normalizer *snapshot.Normalizer
	classifier domain.Classifier
	resolver   domain.Resolver
	presence   domain.PresenceClient
	progress   *progress.Reconstructor
	actions    <-chan domain.TrayAction
	quit       QuitFunc

	// paused suppresses ticks entirely; toggled from the tray
	paused bool
	// active tracks whether a presence is currently pushed
	active bool
	// lastTrack detects track changes by exact identity
	lastTrack domain.TrackIdentity
	hasTrack  bool
}

// New creates the lifecycle controller
func New(
	logger *zap.Logger,
	clk clock.Clock,
	cfg domain.Config,
	querier domain.Querier,
	normalizer *snapshot.Normalizer,
	classifier domain.Classifier,
	resolver domain.Resolver,
	client domain.PresenceClient,
	reconstructor *progress.Reconstructor,
	actions <-chan domain.TrayAction,
	quit QuitFunc,
) *Controller {
	return &Controller{
		logger:     logger,
		clock:      clk,
		cfg:        cfg,
		querier:    querier,
		normalizer: normalizer,
		classifier: classifier,
		resolver:   resolver,
		presence:   client,
		progress:   reconstructor,
		actions:    actions,
		quit:       quit,
	}
}

// Run drives the polling loop until the context is cancelled.
// One tick fully completes before the next is considered; ticks are never
// pipelined.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("Presence controller started", zap.Duration("pollInterval", c.cfg.PollInterval()))

	ticker := c.clock.Ticker(c.cfg.PollInterval())
	defer ticker.Stop()

	c.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Presence controller stopped")
			return

		case <-ticker.C:
			c.tick(ctx)

		case action := <-c.actions:
			c.handleAction(action)

		case connected := <-c.presence.Events():
			if connected {
				c.logger.Info("Presence connection established")
			} else {
				c.logger.Warn("Presence connection lost, pushes suppressed until reconnect")
			}
		}
	}
}

// tick runs one full poll cycle
func (c *Controller) tick(parent context.Context) {
	if c.paused {
		return
	}

	ctx, cancel := context.WithTimeout(parent, tickTimeout)
	defer cancel()

	// Lazy reconnect: at most one attempt per tick
	if !c.presence.Connected() {
		if err := c.presence.Connect(); err != nil {
			c.logger.Debug("Presence reconnect attempt failed", zap.Error(err))
		}
	}

	raw, err := c.querier.Query(ctx)
	snap := c.normalizer.Normalize(raw, err)
	src := c.classifier.Classify(ctx, snap)

	if src == domain.SourceNone || snap.Title == nil || !snap.ActivelyPlaying() {
		c.clearIfActive()
		return
	}

	identity := snap.Identity()
	if !c.hasTrack || identity != c.lastTrack {
		c.progress.Reset()
		c.lastTrack = identity
		c.hasTrack = true
		c.logger.Info("Now playing",
			zap.String("title", identity.Title),
			zap.String("artist", identity.Artist),
			zap.Stringer("source", src))
	}

	c.push(ctx, snap, src)
}

// push assembles and sends the presence payload. Re-pushing an unchanged
// activity is idempotent and simpler than diffing.
func (c *Controller) push(ctx context.Context, snap domain.NowPlayingSnapshot, src domain.MediaSource) {
	title := *snap.Title
	artist := strDeref(snap.Artist)
	album := strDeref(snap.Album)

	artURL, found := c.resolver.Resolve(ctx, title, artist)
	largeImage := artURL
	if !found {
		// Fall back to the source's static icon asset
		largeImage = src.AssetKey()
	}

	subtitle := album
	if artist != "" {
		subtitle = "by " + artist
	}
	largeText := album
	if largeText == "" {
		largeText = title
	}

	start, end := c.progress.Window(snap)

	activity := domain.Activity{
		Title:      presence.ClampLabel(title, presence.MaxDetailsLen),
		Subtitle:   presence.ClampLabel(subtitle, presence.MaxStateLen),
		Start:      start,
		End:        end,
		LargeImage: largeImage,
		LargeText:  presence.ClampLabel(largeText, presence.MaxDetailsLen),
		SmallImage: src.AssetKey(),
		SmallText:  presence.ClampLabel(src.String(), presence.MaxStateLen),
	}

	if err := c.presence.SetActivity(activity); err != nil {
		c.logger.Warn("Failed to push presence", zap.Error(err))
		return
	}
	c.active = true
}

// clearIfActive issues a single clear per Active -> Cleared transition.
// Cleared -> Cleared is a strict no-op.
func (c *Controller) clearIfActive() {
	if !c.active {
		return
	}

	if err := c.presence.ClearActivity(); err != nil {
		c.logger.Warn("Failed to clear presence", zap.Error(err))
	} else {
		c.logger.Info("Presence cleared")
	}
	c.active = false
	c.hasTrack = false
	c.lastTrack = domain.TrackIdentity{}
	c.progress.Reset()
}

// handleAction applies a tray action. Actions are idempotent: pausing while
// paused or resuming while running is a no-op.
func (c *Controller) handleAction(action domain.TrayAction) {
	switch action {
	case domain.TrayActionPause:
		if c.paused {
			return
		}
		c.paused = true
		c.clearIfActive()
		c.logger.Info("Presence updates paused")

	case domain.TrayActionResume:
		if !c.paused {
			return
		}
		c.paused = false
		c.logger.Info("Presence updates resumed")

	case domain.TrayActionQuit:
		c.logger.Info("Quit requested from tray")
		if c.quit != nil {
			c.quit()
		}
	}
}

func strDeref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
