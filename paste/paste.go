// Package paste delivers text to the focused window through the clipboard
// and a synthesized paste keystroke.
package paste

import (
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"tapvoice/log"
)

const DefaultRestoreDelay = 600 * time.Millisecond

type Config struct {
	// RestoreClipboard puts the previous clipboard text back after pasting.
	RestoreClipboard bool
	RestoreDelay     time.Duration
}

// Injector pastes text into whatever window has focus.
type Injector struct {
	cfg Config

	readClip  func() (string, error)
	writeClip func(string) error
	sendKeys  func() error
	afterFunc func(time.Duration, func()) *time.Timer

	mu      sync.Mutex
	pending *time.Timer
	gen     uint64
	saved   string
	hasSave bool
}

func New(cfg Config) *Injector {
	if cfg.RestoreDelay <= 0 {
		cfg.RestoreDelay = DefaultRestoreDelay
	}
	return &Injector{
		cfg:       cfg,
		readClip:  clipboard.ReadAll,
		writeClip: clipboard.WriteAll,
		sendKeys:  Send,
		afterFunc: time.AfterFunc,
	}
}

// Inject places text on the clipboard and sends the paste shortcut.
func (i *Injector) Inject(text string) error {
	if text == "" {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	// A restore still pending means the clipboard holds our last phrase,
	// not the user's text; keep the earlier save.
	if i.pending != nil {
		i.pending.Stop()
		i.pending = nil
	} else if i.cfg.RestoreClipboard {
		prev, err := i.readClip()
		i.saved, i.hasSave = prev, err == nil
	}

	// The restore is rescheduled even when pasting fails: the save is
	// still the user's text and the clipboard may already hold ours.
	err := i.paste(text)
	if i.cfg.RestoreClipboard && i.hasSave {
		i.gen++
		gen := i.gen
		i.pending = i.afterFunc(i.cfg.RestoreDelay, func() { i.restore(gen) })
	}
	return err
}

func (i *Injector) paste(text string) error {
	if err := i.writeClip(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	if err := i.sendKeys(); err != nil {
		return fmt.Errorf("paste keystroke: %w", err)
	}
	return nil
}

func (i *Injector) restore(gen uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.pending == nil || gen != i.gen {
		return
	}
	i.pending = nil
	if i.hasSave {
		if err := i.writeClip(i.saved); err != nil {
			log.Warnf("clipboard_restore_error: %v", err)
		}
	}
	i.saved, i.hasSave = "", false
}

// Flush performs any pending clipboard restore now.
func (i *Injector) Flush() {
	i.mu.Lock()
	if i.pending != nil {
		i.pending.Stop()
	}
	gen := i.gen
	i.mu.Unlock()
	i.restore(gen)
}
