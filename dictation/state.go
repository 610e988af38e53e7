// Package dictation owns the Idle/Listening state machine and the capture
// loop that runs while Listening.
package dictation

import "errors"

type State string

const (
	Idle      State = "idle"
	Listening State = "listening"
)

func (s State) String() string { return string(s) }

// PresentationSink renders state changes and notifications. Failures are
// logged by the caller and never affect recording state.
type PresentationSink interface {
	OnStateChanged(State) error
	OnNotify(title, message string) error
}

// Sinks fans out to several sinks. Each sink is called even if an earlier
// one fails.
type Sinks []PresentationSink

func (s Sinks) OnStateChanged(st State) error {
	var errs []error
	for _, sink := range s {
		if err := sink.OnStateChanged(st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s Sinks) OnNotify(title, message string) error {
	var errs []error
	for _, sink := range s {
		if err := sink.OnNotify(title, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopSink struct{}

func (nopSink) OnStateChanged(State) error    { return nil }
func (nopSink) OnNotify(string, string) error { return nil }
