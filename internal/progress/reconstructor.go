package progress

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
)

// Reconstructor converts a possibly-stale elapsed/timestamp pair into a
// stable start/end window for the presence progress display.
//
// The OS media layer reports elapsed time as of some earlier sample instant,
// so the true elapsed time at this tick is the reported value plus however
// long ago it was sampled. When the source reports no elapsed time at all,
// the wall-clock time this track was first seen playing stands in for the
// start.
type Reconstructor struct {
	clock clock.Clock
	// trackStart is the local fallback anchor; zero means unset
	trackStart time.Time
}

// NewReconstructor creates a reconstructor on the given clock
func NewReconstructor(clk clock.Clock) *Reconstructor {
	return &Reconstructor{clock: clk}
}

// Reset forgets the locally recorded start time. Must be called on every
// track change, before Window.
func (r *Reconstructor) Reset() {
	r.trackStart = time.Time{}
}

// Window derives (start, end) for the snapshot at the current tick.
// end is nil when the track duration is unknown (open-ended display).
func (r *Reconstructor) Window(snap domain.NowPlayingSnapshot) (time.Time, *time.Time) {
	now := r.clock.Now()

	var start time.Time
	if snap.ElapsedSeconds != nil && snap.SampledAt != nil {
		actualElapsed := time.Duration(*snap.ElapsedSeconds*float64(time.Second)) + now.Sub(*snap.SampledAt)
		start = now.Add(-actualElapsed)
	} else {
		if r.trackStart.IsZero() {
			// Process started mid-track, or first sighting of this track
			r.trackStart = now
		}
		start = r.trackStart
	}

	if snap.DurationSeconds == nil {
		return start, nil
	}
	end := start.Add(time.Duration(*snap.DurationSeconds * float64(time.Second)))
	return start, &end
}
