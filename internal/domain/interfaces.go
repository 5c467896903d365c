package domain

import (
	"context"
	"time"
)

// Querier is the OS "now playing" collaborator.
// Implementations return a semi-structured map keyed by the Raw* constants;
// any subset of keys may be absent. A failed query returns an error that the
// snapshot normalizer treats as "nothing is playing".
//
//go:generate mockgen -destination=mocks/domain_mocks.go -package=mocks github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain Querier,ProcessInspector,SearchProvider,PresenceClient,Classifier,Resolver
type Querier interface {
	Query(ctx context.Context) (map[string]any, error)
}

// Keys of the raw now-playing result consumed by the snapshot normalizer.
// Platform queriers map their native fields onto these names.
const (
	RawKeyTitle          = "title"
	RawKeyArtist         = "artist"
	RawKeyAlbum          = "album"
	RawKeyDuration       = "duration"
	RawKeyElapsedTime    = "elapsedTime"
	RawKeyTimestamp      = "timestamp"
	RawKeyPlaybackRate   = "playbackRate"
	RawKeyIsPlaying      = "isPlaying"
	RawKeyBundleID       = "bundleIdentifier"
	RawKeyParentBundleID = "parentApplicationBundleIdentifier"
	RawKeyProcessID      = "processIdentifier"
)

// ProcessInspector resolves a process id to its command line.
// Used to disambiguate web-app wrapper processes that share a bundle id.
type ProcessInspector interface {
	Cmdline(ctx context.Context, pid int32) (string, error)
}

// Classifier decides which supported media source a snapshot belongs to.
// Classification is a pure function of the snapshot plus the auxiliary
// process lookup; it never consults a previous tick's result.
type Classifier interface {
	Classify(ctx context.Context, snap NowPlayingSnapshot) MediaSource
}

// SearchProvider is one external artwork search API.
// A non-success response or malformed payload surfaces as an error that the
// resolver treats as "no results from this provider".
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string) ([]ArtCandidate, error)
}

// Resolver produces a best-guess artwork URL for a track, memoized for the
// process lifetime. found is false when every query candidate came up empty.
type Resolver interface {
	Resolve(ctx context.Context, title, artist string) (url string, found bool)
}

// PresenceClient is the presence protocol collaborator.
// SetActivity and ClearActivity silently succeed while disconnected; the
// lifecycle controller re-pushes on later ticks once reconnected.
type PresenceClient interface {
	Connect() error
	SetActivity(a Activity) error
	ClearActivity() error
	Close() error
	Connected() bool
	// Events emits true on connect and false on connection loss
	Events() <-chan bool
}

// Config exposes the validated process configuration
type Config interface {
	// ClientID is the presence protocol application credential
	ClientID() string
	// Mode is "tray" or "plain"
	Mode() string
	PollInterval() time.Duration
	// AdapterCommand is the darwin media query helper invocation
	AdapterCommand() []string
}
