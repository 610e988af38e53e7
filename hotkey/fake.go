package hotkey

import "time"

type FakeSource struct {
	events chan KeyEvent
}

func NewFake() *FakeSource {
	return &FakeSource{events: make(chan KeyEvent, eventBuffer)}
}

func (f *FakeSource) Register() error         { return nil }
func (f *FakeSource) Unregister()             {}
func (f *FakeSource) Events() <-chan KeyEvent { return f.events }

func (f *FakeSource) SimPress(key string, at time.Time) {
	f.events <- KeyEvent{Key: key, At: at, Kind: Press}
}

func (f *FakeSource) SimRelease(key string, at time.Time) {
	f.events <- KeyEvent{Key: key, At: at, Kind: Release}
}
