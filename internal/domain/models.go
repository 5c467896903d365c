package domain

import "time"

// MediaSource identifies which supported application is reporting playback
type MediaSource string

const (
	// SourceNone means the reporting application is not one we track
	SourceNone MediaSource = ""
	// SourceTelegram is the Telegram desktop client's built-in music player
	SourceTelegram MediaSource = "Telegram"
	// SourceYouTubeMusic is YouTube Music, either the desktop app or a
	// web-app wrapper resolved through the process inspector
	SourceYouTubeMusic MediaSource = "YouTube Music"
)

// AssetKey returns the static presence asset key for the source's icon
func (s MediaSource) AssetKey() string {
	switch s {
	case SourceTelegram:
		return "telegram"
	case SourceYouTubeMusic:
		return "youtube-music"
	default:
		return ""
	}
}

func (s MediaSource) String() string {
	if s == SourceNone {
		return "none"
	}
	return string(s)
}

// SourceIdentity describes the process reporting playback to the OS media layer
type SourceIdentity struct {
	// BundleID is the reporting process' own bundle identifier
	BundleID string
	// ParentBundleID, when set, identifies the hosting application of a
	// helper process and takes precedence over BundleID
	ParentBundleID string
	// ProcessID is the reporting process id, when known
	ProcessID *int32
}

// NowPlayingSnapshot is one poll's normalized view of what is currently
// playing. Every field that the OS layer may omit is a pointer; nil means
// "unknown", which is distinct from a zero value.
//
// Snapshots are constructed fresh every tick and never mutated.
type NowPlayingSnapshot struct {
	Title  *string
	Artist *string
	Album  *string

	// DurationSeconds is the track length, when reported
	DurationSeconds *float64
	// ElapsedSeconds is valid only as of SampledAt
	ElapsedSeconds *float64
	// SampledAt is the instant ElapsedSeconds was measured; without it
	// elapsed time cannot be extrapolated
	SampledAt *time.Time
	// PlaybackRate > 0 signals active playback, 0 signals paused
	PlaybackRate *float64

	Source *SourceIdentity

	// IsReportedPlaying is the OS layer's own playing flag, independent
	// of PlaybackRate
	IsReportedPlaying bool
}

// ActivelyPlaying reports whether the snapshot describes media that is
// actually advancing right now
func (s NowPlayingSnapshot) ActivelyPlaying() bool {
	return s.IsReportedPlaying && s.PlaybackRate != nil && *s.PlaybackRate > 0
}

// Identity returns the exact-equality key used to detect track changes
func (s NowPlayingSnapshot) Identity() TrackIdentity {
	return TrackIdentity{
		Title:  strVal(s.Title),
		Artist: strVal(s.Artist),
		Album:  strVal(s.Album),
	}
}

// TrackIdentity is the (title, artist, album) triple compared by exact string
// equality. Fuzzy matching is reserved for artwork lookup, never for track
// change detection.
type TrackIdentity struct {
	Title  string
	Artist string
	Album  string
}

// ArtCandidate is a single ranked result from a search provider
type ArtCandidate struct {
	Title      string
	Artist     string
	ArtworkURL string
}

// Activity is the externally visible presence payload
type Activity struct {
	// Title is the first presence line (the track name)
	Title string
	// Subtitle is the second presence line ("by <artist>")
	Subtitle string
	// Start anchors the progress display
	Start time.Time
	// End, when known, closes the progress display
	End *time.Time
	// LargeImage is an artwork URL or a static asset key
	LargeImage string
	LargeText  string
	// SmallImage is the source badge asset key
	SmallImage string
	SmallText  string
}

// TrayAction is a discrete user action coming from the tray menu
type TrayAction int

const (
	TrayActionPause TrayAction = iota
	TrayActionResume
	TrayActionQuit
)

func (a TrayAction) String() string {
	switch a {
	case TrayActionPause:
		return "pause"
	case TrayActionResume:
		return "resume"
	case TrayActionQuit:
		return "quit"
	default:
		return "unknown"
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
