package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/getlantern/systray"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/artwork"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/config"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/controller"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/nowplaying"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/presence"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/progress"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/snapshot"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/source"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/tray"
)

const (
	connectAttempts = 5
	connectDelay    = 5 * time.Second
)

// AppOptions is the full dependency graph, shared with tests
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		config.New,
		func(c *config.AppConfig) domain.Config { return c },
		func() clock.Clock { return clock.New() },
		nowplaying.NewQuerier,
		snapshot.NewNormalizer,
		source.NewInspector,
		func(i *source.PSInspector) domain.ProcessInspector { return i },
		source.NewClassifier,
		newSearchProviders,
		artwork.NewVerifier,
		artwork.NewResolver,
		progress.NewReconstructor,
		presence.NewClient,
		tray.New,
		func(t *tray.Tray) <-chan domain.TrayAction { return t.Actions() },
		newQuitFunc,
		controller.New,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	// Optional .env for the client id and tuning knobs
	_ = godotenv.Load()

	var trayHandle *tray.Tray
	app := fx.New(AppOptions, fx.Populate(&trayHandle))

	if config.ModeFromEnv() == config.ModePlain {
		runPlain(app)
		return
	}
	runTray(app, trayHandle)
}

// runPlain starts the app without a tray; a failed presence connection at
// startup is fatal here.
func runPlain(app *fx.App) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runTray hands the main thread to the tray library, which the platform
// requires, and runs the app from its callbacks
func runTray(app *fx.App, trayHandle *tray.Tray) {
	systray.Run(func() {
		if err := app.Start(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, err)
			systray.Quit()
			return
		}
		trayHandle.Init()

		go func() {
			// Fires on Quit action or on SIGINT/SIGTERM
			<-app.Done()
			_ = app.Stop(context.Background())
			systray.Quit()
		}()
	}, func() {})
}

// newLogger creates the zap logger; PRESENCE_LOG_LEVEL overrides the level
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if raw := strings.TrimSpace(os.Getenv("PRESENCE_LOG_LEVEL")); raw != "" {
		level, err := zap.ParseAtomicLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PRESENCE_LOG_LEVEL %q: %w", raw, err)
		}
		cfg.Level = level
	}
	return cfg.Build()
}

// newSearchProviders orders the artwork providers: Deezer first for catalog
// breadth, iTunes second for mainstream coverage
func newSearchProviders(logger *zap.Logger) []domain.SearchProvider {
	return []domain.SearchProvider{
		artwork.NewDeezerProvider(logger),
		artwork.NewITunesProvider(logger),
	}
}

func newQuitFunc(sh fx.Shutdowner) controller.QuitFunc {
	return func() { _ = sh.Shutdown() }
}

// registerHooks ties the presence connection and the polling loop to the
// application lifecycle
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	cfg domain.Config,
	client domain.PresenceClient,
	ctrl *controller.Controller,
) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := connectPresence(logger, cfg, client); err != nil {
				return err
			}

			var runCtx context.Context
			runCtx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				ctrl.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
				<-done
			}
			// Leave no stale presence behind, then release the socket
			if err := client.ClearActivity(); err != nil {
				logger.Warn("Failed to clear presence on shutdown", zap.Error(err))
			}
			return client.Close()
		},
	})
}

// connectPresence establishes the initial presence connection.
// In plain mode a failure is fatal; in tray mode connection attempts retry
// in the background and the controller keeps reconnecting lazily afterwards.
func connectPresence(logger *zap.Logger, cfg domain.Config, client domain.PresenceClient) error {
	if cfg.Mode() == config.ModePlain {
		return client.Connect()
	}

	go func() {
		for attempt := 1; attempt <= connectAttempts; attempt++ {
			err := client.Connect()
			if err == nil {
				return
			}
			logger.Warn("Initial presence connection failed",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", connectAttempts),
				zap.Error(err))
			time.Sleep(connectDelay)
		}
		logger.Warn("Giving up on initial presence connection, will retry per tick")
	}()
	return nil
}
