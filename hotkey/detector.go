package hotkey

import (
	"context"
	"time"
)

const (
	DefaultDoublePress = 300 * time.Millisecond
	DefaultCooldown    = 800 * time.Millisecond
)

// Action is what the detector decided for one key event.
type Action int

const (
	ActionNone Action = iota
	ActionToggle
	ActionQuit
)

type DetectorConfig struct {
	Key         string
	QuitKey     string
	DoublePress time.Duration
	Cooldown    time.Duration
}

// Detector recognizes a double-press of Key followed by a cooldown during
// which further presses are ignored. A release of QuitKey is reported as
// ActionQuit. The timer state is owned by whichever goroutine calls Observe.
type Detector struct {
	key         string
	quitKey     string
	doublePress time.Duration
	cooldown    time.Duration

	lastPress  time.Time
	lastToggle time.Time
}

func NewDetector(cfg DetectorConfig) *Detector {
	if cfg.DoublePress <= 0 {
		cfg.DoublePress = DefaultDoublePress
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	quit := ""
	if cfg.QuitKey != "" {
		quit = Normalize(cfg.QuitKey)
	}
	return &Detector{
		key:         Normalize(cfg.Key),
		quitKey:     quit,
		doublePress: cfg.DoublePress,
		cooldown:    cfg.Cooldown,
	}
}

// Observe feeds one event through the gesture recognizer. It never blocks.
func (d *Detector) Observe(ev KeyEvent) (ToggleRequest, Action) {
	if ev.Kind == Release {
		if d.quitKey != "" && ev.Key == d.quitKey {
			return ToggleRequest{}, ActionQuit
		}
		return ToggleRequest{}, ActionNone
	}
	if ev.Key != d.key {
		return ToggleRequest{}, ActionNone
	}

	// Zero timestamps mean "never"; a press exactly on the cooldown
	// boundary is outside the cooldown.
	if !d.lastToggle.IsZero() && ev.At.Sub(d.lastToggle) < d.cooldown {
		return ToggleRequest{}, ActionNone
	}
	if !d.lastPress.IsZero() && ev.At.Sub(d.lastPress) < d.doublePress {
		d.lastToggle = ev.At
		d.lastPress = time.Time{}
		return ToggleRequest{At: ev.At}, ActionToggle
	}
	d.lastPress = ev.At
	return ToggleRequest{}, ActionNone
}

// Run drains events until ctx is done or the channel closes. Toggle requests
// are delivered in arrival order and never dropped; quit is called at most once.
func (d *Detector) Run(ctx context.Context, events <-chan KeyEvent, toggles chan<- ToggleRequest, quit func()) {
	quitted := false
	for {
		var ev KeyEvent
		var ok bool
		select {
		case <-ctx.Done():
			return
		case ev, ok = <-events:
			if !ok {
				return
			}
		}

		req, act := d.Observe(ev)
		switch act {
		case ActionToggle:
			select {
			case toggles <- req:
			case <-ctx.Done():
				return
			}
		case ActionQuit:
			if !quitted && quit != nil {
				quitted = true
				quit()
			}
		}
	}
}
