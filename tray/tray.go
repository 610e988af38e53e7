// Package tray shows dictation state in the system tray. The menu has a
// status line, a "Start dictation"/"Stop dictation" item and "Quit".
package tray

import (
	"sync"
	"time"

	"fyne.io/systray"

	"tapvoice/dictation"
)

const (
	title       = "tapvoice"
	errorLinger = 10 * time.Second
)

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mu        sync.Mutex
	ready     bool
	listening bool
	hint      string
	toggleFn  func()
	mToggle   *systray.MenuItem
	mStatus   *systray.MenuItem
	errorSeq  int
)

// OnToggle sets the handler for the "Toggle dictation" menu item.
func OnToggle(fn func()) {
	mu.Lock()
	toggleFn = fn
	mu.Unlock()
}

// SetHint sets the idle tooltip, e.g. "double-tap F9 to dictate".
func SetHint(s string) {
	mu.Lock()
	hint = s
	mu.Unlock()
	refresh()
}

func SetListening(on bool) {
	mu.Lock()
	listening = on
	mu.Unlock()
	refresh()
}

// SetError shows msg in the tooltip for a while.
func SetError(msg string) {
	mu.Lock()
	errorSeq++
	seq := errorSeq
	isReady := ready
	mu.Unlock()
	if !isReady {
		return
	}
	systray.SetTooltip(title + " – " + msg)
	time.AfterFunc(errorLinger, func() {
		mu.Lock()
		stale := seq != errorSeq
		mu.Unlock()
		if !stale {
			refresh()
		}
	})
}

// Quit closes the channel returned by Init. Safe to call more than once.
func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}

func refresh() {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return
	}
	if listening {
		setIcon(iconListening)
		systray.SetTooltip(title + " – listening")
		mToggle.SetTitle("Stop dictation")
		mStatus.SetTitle("Listening")
		return
	}
	setIcon(iconIdle)
	tip := title
	if hint != "" {
		tip += " – " + hint
	}
	systray.SetTooltip(tip)
	mToggle.SetTitle("Start dictation")
	mStatus.SetTitle("Idle")
}

func onReady() {
	systray.SetTitle("")
	mStatus = systray.AddMenuItem("Idle", "Current dictation state")
	mStatus.Disable()
	systray.AddSeparator()
	mToggle = systray.AddMenuItem("Start dictation", "Toggle dictation")
	mQuit := systray.AddMenuItem("Quit", "Quit tapvoice")

	mu.Lock()
	ready = true
	mu.Unlock()
	refresh()

	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				mu.Lock()
				fn := toggleFn
				mu.Unlock()
				if fn != nil {
					fn()
				}
			case <-mQuit.ClickedCh:
				Quit()
				return
			case <-quitCh:
				return
			}
		}
	}()
}

func onExit() {
	mu.Lock()
	ready = false
	mu.Unlock()
	Quit()
}

// Sink adapts the tray to dictation.PresentationSink.
type Sink struct{}

func (Sink) OnStateChanged(s dictation.State) error {
	SetListening(s == dictation.Listening)
	return nil
}

func (Sink) OnNotify(_, message string) error {
	SetError(message)
	return nil
}
