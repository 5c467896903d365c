package presence

import (
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
)

// Discord activity field length limits. The first presence line tolerates
// 128 characters; the second line and small-image hover text lose one to the
// protocol's terminator.
const (
	MaxDetailsLen = 128
	MaxStateLen   = 127

	// minLabelLen is the protocol's lower bound for visible text fields
	minLabelLen = 2

	// activityTypeListening renders the native "Listening to" badge
	activityTypeListening = 2
)

// ClampLabel fits a label into the protocol's [2, max] length window: a
// single-character label is padded with a trailing space, an overlong one is
// truncated. Empty labels pass through and are omitted from the payload.
func ClampLabel(s string, max int) string {
	runes := []rune(s)
	switch {
	case len(runes) == 0:
		return ""
	case len(runes) < minLabelLen:
		return s + " "
	case len(runes) > max:
		return string(runes[:max])
	default:
		return s
	}
}

// Wire representation of a SET_ACTIVITY command.

type commandFrame struct {
	Cmd   string      `json:"cmd"`
	Args  commandArgs `json:"args"`
	Nonce string      `json:"nonce"`
}

type commandArgs struct {
	Pid int `json:"pid"`
	// Activity nil clears the presence
	Activity *activityPayload `json:"activity"`
}

type activityPayload struct {
	Type       int                `json:"type"`
	Details    string             `json:"details,omitempty"`
	State      string             `json:"state,omitempty"`
	Timestamps *timestampsPayload `json:"timestamps,omitempty"`
	Assets     *assetsPayload     `json:"assets,omitempty"`
}

type timestampsPayload struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

type assetsPayload struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// buildActivity maps the domain activity onto the wire payload
func buildActivity(a domain.Activity) *activityPayload {
	payload := &activityPayload{
		Type:    activityTypeListening,
		Details: a.Title,
		State:   a.Subtitle,
	}

	if !a.Start.IsZero() {
		ts := &timestampsPayload{Start: a.Start.UnixMilli()}
		if a.End != nil {
			ts.End = a.End.UnixMilli()
		}
		payload.Timestamps = ts
	}

	if a.LargeImage != "" || a.SmallImage != "" {
		payload.Assets = &assetsPayload{
			LargeImage: a.LargeImage,
			LargeText:  a.LargeText,
			SmallImage: a.SmallImage,
			SmallText:  a.SmallText,
		}
	}

	return payload
}
