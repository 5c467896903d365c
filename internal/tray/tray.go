package tray

import (
	"github.com/getlantern/systray"
	"github.com/kernoeb/telegram-macos-music-discord-presence/internal/domain"
	"go.uber.org/zap"
)

// Tray wraps the system tray menu and translates clicks into discrete
// TrayAction messages. The controller consumes the actions channel; the tray
// owns its own labels and check state.
type Tray struct {
	logger  *zap.Logger
	actions chan domain.TrayAction
	paused  bool
}

// New creates the tray wrapper. The menu itself is built later by Init,
// which must run inside the tray library's main-thread callback.
func New(logger *zap.Logger) *Tray {
	return &Tray{
		logger:  logger,
		actions: make(chan domain.TrayAction, 4),
	}
}

// Actions returns the channel of user actions
func (t *Tray) Actions() <-chan domain.TrayAction {
	return t.actions
}

// Init builds the menu and starts the click loop.
// Must be called from within systray.Run's onReady callback.
func (t *Tray) Init() {
	systray.SetTitle("♪")
	systray.SetTooltip("Music presence")

	pauseItem := systray.AddMenuItemCheckbox("Pause presence", "Stop updating the presence", false)
	systray.AddSeparator()
	quitItem := systray.AddMenuItem("Quit", "Exit the application")

	go t.clickLoop(pauseItem, quitItem)
	t.logger.Info("Tray menu ready")
}

func (t *Tray) clickLoop(pauseItem, quitItem *systray.MenuItem) {
	for {
		select {
		case _, ok := <-pauseItem.ClickedCh:
			if !ok {
				return
			}
			if t.paused {
				t.paused = false
				pauseItem.Uncheck()
				t.send(domain.TrayActionResume)
			} else {
				t.paused = true
				pauseItem.Check()
				t.send(domain.TrayActionPause)
			}

		case _, ok := <-quitItem.ClickedCh:
			if !ok {
				return
			}
			t.send(domain.TrayActionQuit)
			return
		}
	}
}

// send never blocks: if the controller has already stopped draining, the
// click is dropped rather than wedging the tray loop
func (t *Tray) send(action domain.TrayAction) {
	select {
	case t.actions <- action:
		t.logger.Debug("Tray action sent", zap.Stringer("action", action))
	default:
		t.logger.Warn("Tray action dropped, controller not consuming", zap.Stringer("action", action))
	}
}
