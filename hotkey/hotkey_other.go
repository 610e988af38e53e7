//go:build !linux

package hotkey

import (
	"fmt"
	"sync"
	"time"

	"golang.design/x/hotkey"
)

var xKeys = map[string]hotkey.Key{
	"escape": hotkey.KeyEscape, "space": hotkey.KeySpace,
	"f1": hotkey.KeyF1, "f2": hotkey.KeyF2, "f3": hotkey.KeyF3, "f4": hotkey.KeyF4,
	"f5": hotkey.KeyF5, "f6": hotkey.KeyF6, "f7": hotkey.KeyF7, "f8": hotkey.KeyF8,
	"f9": hotkey.KeyF9, "f10": hotkey.KeyF10, "f11": hotkey.KeyF11, "f12": hotkey.KeyF12,
}

func supported(name string) bool {
	_, ok := xKeys[name]
	return ok
}

type xBinding struct {
	name string
	hk   *hotkey.Hotkey
}

type xSource struct {
	bindings []xBinding
	events   chan KeyEvent
	stop     chan struct{}
	once     sync.Once
}

// New creates a key source using golang.design/x/hotkey (Cocoa/Win32).
// Only non-modifier keys can be registered without a modifier chord.
func New(keys ...string) (Source, error) {
	s := &xSource{events: make(chan KeyEvent, eventBuffer)}
	for _, n := range watchedKeys(keys) {
		key, ok := xKeys[n]
		if !ok {
			return nil, fmt.Errorf("key %q is not supported on this platform", n)
		}
		s.bindings = append(s.bindings, xBinding{name: n, hk: hotkey.New(nil, key)})
	}
	return s, nil
}

func (s *xSource) Register() error {
	s.stop = make(chan struct{})
	for i, b := range s.bindings {
		if err := b.hk.Register(); err != nil {
			for _, prev := range s.bindings[:i] {
				prev.hk.Unregister()
			}
			return fmt.Errorf("registering %s: %w", b.name, err)
		}
		go s.forward(b)
	}
	return nil
}

func (s *xSource) forward(b xBinding) {
	for {
		var kind Kind
		select {
		case <-s.stop:
			return
		case <-b.hk.Keydown():
			kind = Press
		case <-b.hk.Keyup():
			kind = Release
		}
		select {
		case s.events <- KeyEvent{Key: b.name, At: time.Now(), Kind: kind}:
		case <-s.stop:
			return
		}
	}
}

func (s *xSource) Unregister() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		for _, b := range s.bindings {
			b.hk.Unregister()
		}
	})
}

func (s *xSource) Events() <-chan KeyEvent {
	return s.events
}
