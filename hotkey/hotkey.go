package hotkey

import "time"

// Kind distinguishes key presses from releases.
type Kind int

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

// KeyEvent is a single press or release observed by the platform input layer.
type KeyEvent struct {
	Key  string
	At   time.Time
	Kind Kind
}

// ToggleRequest asks the recording controller to flip between idle and listening.
type ToggleRequest struct {
	At time.Time
}

// Source delivers raw key events for a fixed set of watched keys.
type Source interface {
	Register() error
	Unregister()
	Events() <-chan KeyEvent
}

const eventBuffer = 64
