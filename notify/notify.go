// Package notify shows desktop notifications for session errors and startup.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"tapvoice/dictation"
)

// DefaultTimeout bounds one notification round trip. OnNotify is called
// while the controller holds its lock, so a hung daemon must not stall it.
const DefaultTimeout = 2 * time.Second

var ErrUnsupported = errors.New("desktop notifications are not supported on this platform")

type backend interface {
	notify(ctx context.Context, title, body string) error
	close() error
}

// Notifier is a dictation.PresentationSink that only renders OnNotify.
type Notifier struct {
	mu      sync.Mutex
	backend backend
	timeout time.Duration
}

func New() (*Notifier, error) {
	b, err := newBackend()
	if err != nil {
		return nil, err
	}
	return &Notifier{backend: b, timeout: DefaultTimeout}, nil
}

func (n *Notifier) Send(title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.backend == nil {
		return errors.New("notifier closed")
	}
	timeout := n.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return n.backend.notify(ctx, title, body)
}

func (n *Notifier) OnStateChanged(dictation.State) error { return nil }

func (n *Notifier) OnNotify(title, message string) error {
	return n.Send(title, message)
}

func (n *Notifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.backend == nil {
		return nil
	}
	err := n.backend.close()
	n.backend = nil
	return err
}
