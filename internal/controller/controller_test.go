package controller

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain/mocks"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/progress"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/snapshot"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

type stubConfig struct{}

func (stubConfig) ClientID() string            { return "123456" }
func (stubConfig) Mode() string                { return "plain" }
func (stubConfig) PollInterval() time.Duration { return 5 * time.Second }
func (stubConfig) AdapterCommand() []string    { return nil }

type harness struct {
	controller *Controller
	clock      *clock.Mock
	querier    *mocks.MockQuerier
	classifier *mocks.MockClassifier
	resolver   *mocks.MockResolver
	client     *mocks.MockPresenceClient
	actions    chan domain.TrayAction
	quits      int
}

func newHarness(t *testing.T, ctrl *gomock.Controller) *harness {
	t.Helper()

	h := &harness{
		clock:      clock.NewMock(),
		querier:    mocks.NewMockQuerier(ctrl),
		classifier: mocks.NewMockClassifier(ctrl),
		resolver:   mocks.NewMockResolver(ctrl),
		client:     mocks.NewMockPresenceClient(ctrl),
		actions:    make(chan domain.TrayAction, 4),
	}

	logger := zap.NewNop()
	h.controller = New(
		logger,
		h.clock,
		stubConfig{},
		h.querier,
		snapshot.NewNormalizer(logger),
		h.classifier,
		h.resolver,
		h.client,
		progress.NewReconstructor(h.clock),
		h.actions,
		func() { h.quits++ },
	)
	return h
}

func playingRaw(title, artist string) map[string]any {
	return map[string]any{
		domain.RawKeyTitle:        title,
		domain.RawKeyArtist:       artist,
		domain.RawKeyAlbum:        "Some Album",
		domain.RawKeyDuration:     200.0,
		domain.RawKeyElapsedTime:  10.0,
		domain.RawKeyTimestamp:    float64(time.Now().UnixMilli()),
		domain.RawKeyPlaybackRate: 1.0,
		domain.RawKeyIsPlaying:    true,
		domain.RawKeyBundleID:     "ru.keepcoder.telegram",
	}
}

func TestTickPushesPresence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)

	h.client.EXPECT().Connected().Return(true)
	h.querier.EXPECT().Query(gomock.Any()).Return(playingRaw("Let It Be", "The Beatles"), nil)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceTelegram)
	h.resolver.EXPECT().Resolve(gomock.Any(), "Let It Be", "The Beatles").
		Return("https://img/cover.jpg", true)

	var pushed domain.Activity
	h.client.EXPECT().SetActivity(gomock.Any()).
		DoAndReturn(func(a domain.Activity) error {
			pushed = a
			return nil
		})

	h.controller.tick(t.Context())

	if pushed.Title != "Let It Be" {
		t.Errorf("title = %q", pushed.Title)
	}
	if pushed.Subtitle != "by The Beatles" {
		t.Errorf("subtitle = %q, want artist line", pushed.Subtitle)
	}
	if pushed.LargeImage != "https://img/cover.jpg" {
		t.Errorf("large image = %q, want resolved artwork", pushed.LargeImage)
	}
	if pushed.SmallImage != "telegram" {
		t.Errorf("small image = %q", pushed.SmallImage)
	}
	if pushed.End == nil {
		t.Fatal("end missing despite known duration")
	}
	if got := pushed.End.Sub(pushed.Start); got != 200*time.Second {
		t.Errorf("window length = %v, want 200s", got)
	}
}

func TestTickFallsBackToSourceIcon(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)

	h.client.EXPECT().Connected().Return(true)
	h.querier.EXPECT().Query(gomock.Any()).Return(playingRaw("Obscure Track", "Nobody"), nil)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceYouTubeMusic)
	h.resolver.EXPECT().Resolve(gomock.Any(), "Obscure Track", "Nobody").Return("", false)

	var pushed domain.Activity
	h.client.EXPECT().SetActivity(gomock.Any()).
		DoAndReturn(func(a domain.Activity) error {
			pushed = a
			return nil
		})

	h.controller.tick(t.Context())

	if pushed.LargeImage != "youtube-music" {
		t.Errorf("large image = %q, want static source asset", pushed.LargeImage)
	}
}

func TestClearHappensOncePerActivePhase(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)
	h.client.EXPECT().Connected().Return(true).AnyTimes()

	// One playing tick, then a run of idle ticks. Exactly one clear.
	gomock.InOrder(
		h.querier.EXPECT().Query(gomock.Any()).Return(playingRaw("Let It Be", "The Beatles"), nil),
		h.querier.EXPECT().Query(gomock.Any()).Return(nil, nil).Times(3),
	)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, snap domain.NowPlayingSnapshot) domain.MediaSource {
			if snap.Title == nil {
				return domain.SourceNone
			}
			return domain.SourceTelegram
		}).
		AnyTimes()
	h.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return("", false)
	h.client.EXPECT().SetActivity(gomock.Any()).Return(nil)
	h.client.EXPECT().ClearActivity().Return(nil).Times(1)

	for i := 0; i < 4; i++ {
		h.controller.tick(t.Context())
	}
}

func TestIdleWhileClearedIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)
	h.client.EXPECT().Connected().Return(true).AnyTimes()

	h.querier.EXPECT().Query(gomock.Any()).Return(nil, nil).Times(3)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceNone).Times(3)
	// No ClearActivity expectation: a clear while already cleared would fail
	// the mock controller.

	for i := 0; i < 3; i++ {
		h.controller.tick(t.Context())
	}
}

func TestTrackChangeResetsProgressAnchor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)
	h.client.EXPECT().Connected().Return(true).AnyTimes()
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceTelegram).AnyTimes()
	h.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return("", false).AnyTimes()

	// Neither snapshot carries elapsed time, so the window start falls back to
	// the local first-sighting anchor, which must move on track change.
	raw := func(title string) map[string]any {
		return map[string]any{
			domain.RawKeyTitle:        title,
			domain.RawKeyArtist:       "The Beatles",
			domain.RawKeyPlaybackRate: 1.0,
			domain.RawKeyIsPlaying:    true,
			domain.RawKeyBundleID:     "ru.keepcoder.telegram",
		}
	}
	gomock.InOrder(
		h.querier.EXPECT().Query(gomock.Any()).Return(raw("Let It Be"), nil),
		h.querier.EXPECT().Query(gomock.Any()).Return(raw("Yesterday"), nil),
	)

	var starts []time.Time
	h.client.EXPECT().SetActivity(gomock.Any()).
		DoAndReturn(func(a domain.Activity) error {
			starts = append(starts, a.Start)
			return nil
		}).
		Times(2)

	h.controller.tick(t.Context())
	h.clock.Add(30 * time.Second)
	h.controller.tick(t.Context())

	if len(starts) != 2 {
		t.Fatalf("pushes = %d, want 2", len(starts))
	}
	if !starts[1].After(starts[0]) {
		t.Errorf("anchor did not reset on track change: %v then %v", starts[0], starts[1])
	}
}

func TestSameTrackKeepsProgressAnchor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)
	h.client.EXPECT().Connected().Return(true).AnyTimes()
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceTelegram).AnyTimes()
	h.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return("", false).AnyTimes()

	raw := map[string]any{
		domain.RawKeyTitle:        "Let It Be",
		domain.RawKeyArtist:       "The Beatles",
		domain.RawKeyPlaybackRate: 1.0,
		domain.RawKeyIsPlaying:    true,
		domain.RawKeyBundleID:     "ru.keepcoder.telegram",
	}
	h.querier.EXPECT().Query(gomock.Any()).Return(raw, nil).Times(2)

	var starts []time.Time
	h.client.EXPECT().SetActivity(gomock.Any()).
		DoAndReturn(func(a domain.Activity) error {
			starts = append(starts, a.Start)
			return nil
		}).
		Times(2)

	h.controller.tick(t.Context())
	h.clock.Add(30 * time.Second)
	h.controller.tick(t.Context())

	if !starts[1].Equal(starts[0]) {
		t.Errorf("anchor moved for the same track: %v then %v", starts[0], starts[1])
	}
}

func TestPauseShortCircuitsTicks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)

	// While paused, a tick must not touch the querier or the presence client.
	h.controller.handleAction(domain.TrayActionPause)
	h.controller.tick(t.Context())
	h.controller.tick(t.Context())

	// Pausing again is a no-op
	h.controller.handleAction(domain.TrayActionPause)

	h.controller.handleAction(domain.TrayActionResume)
	h.client.EXPECT().Connected().Return(true)
	h.querier.EXPECT().Query(gomock.Any()).Return(nil, nil)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceNone)
	h.controller.tick(t.Context())
}

func TestPauseClearsActivePresence(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)
	h.client.EXPECT().Connected().Return(true)
	h.querier.EXPECT().Query(gomock.Any()).Return(playingRaw("Let It Be", "The Beatles"), nil)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceTelegram)
	h.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return("", false)
	h.client.EXPECT().SetActivity(gomock.Any()).Return(nil)
	h.client.EXPECT().ClearActivity().Return(nil)

	h.controller.tick(t.Context())
	h.controller.handleAction(domain.TrayActionPause)
}

func TestQuitInvokesShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)
	h.controller.handleAction(domain.TrayActionQuit)

	if h.quits != 1 {
		t.Errorf("quit calls = %d, want 1", h.quits)
	}
}

func TestTickReconnectsLazily(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := newHarness(t, ctrl)

	h.client.EXPECT().Connected().Return(false)
	h.client.EXPECT().Connect().Return(nil)
	h.querier.EXPECT().Query(gomock.Any()).Return(nil, nil)
	h.classifier.EXPECT().Classify(gomock.Any(), gomock.Any()).Return(domain.SourceNone)

	h.controller.tick(t.Context())
}
