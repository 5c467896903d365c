package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// ModeTray runs the long-lived tray application
	ModeTray = "tray"
	// ModePlain runs without a tray; a failed presence connection is fatal
	ModePlain = "plain"

	defaultPollInterval = 5 * time.Second
	minPollInterval     = time.Second

	// defaultAdapterCommand is the darwin helper that prints the current
	// now-playing state as a single JSON object
	defaultAdapterCommand = "media-control get"
)

// AppConfig holds the validated application configuration.
// It is read once at startup, before the polling loop begins.
type AppConfig struct {
	clientID       string
	mode           string
	pollInterval   time.Duration
	adapterCommand []string
}

// New reads configuration from environment variables.
// DISCORD_CLIENT_ID is required; everything else has a default.
func New(logger *zap.Logger) (*AppConfig, error) {
	clientID := strings.TrimSpace(os.Getenv("DISCORD_CLIENT_ID"))
	if clientID == "" {
		return nil, fmt.Errorf("DISCORD_CLIENT_ID is required")
	}

	mode := ModeFromEnv()
	if mode != ModeTray && mode != ModePlain {
		return nil, fmt.Errorf("PRESENCE_MODE must be %q or %q, got %q", ModeTray, ModePlain, mode)
	}

	interval := defaultPollInterval
	if raw := os.Getenv("PRESENCE_POLL_INTERVAL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PRESENCE_POLL_INTERVAL %q: %w", raw, err)
		}
		if parsed < minPollInterval {
			parsed = minPollInterval
		}
		interval = parsed
	}

	adapter := strings.Fields(os.Getenv("PRESENCE_MEDIA_ADAPTER"))
	if len(adapter) == 0 {
		adapter = strings.Fields(defaultAdapterCommand)
	}

	logger.Info("Configuration loaded",
		zap.String("mode", mode),
		zap.Duration("pollInterval", interval),
		zap.String("adapter", strings.Join(adapter, " ")))

	return &AppConfig{
		clientID:       clientID,
		mode:           mode,
		pollInterval:   interval,
		adapterCommand: adapter,
	}, nil
}

// ModeFromEnv returns the run mode without full validation.
// main needs it before the dependency graph is built, because the tray
// library must own the main thread in tray mode.
func ModeFromEnv() string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("PRESENCE_MODE")))
	if mode == "" {
		return ModeTray
	}
	return mode
}

// ClientID returns the presence protocol application credential
func (c *AppConfig) ClientID() string {
	return c.clientID
}

// Mode returns "tray" or "plain"
func (c *AppConfig) Mode() string {
	return c.mode
}

// PollInterval returns the delay between now-playing polls
func (c *AppConfig) PollInterval() time.Duration {
	return c.pollInterval
}

// AdapterCommand returns the darwin media query helper invocation
func (c *AppConfig) AdapterCommand() []string {
	return c.adapterCommand
}
