package dictation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tapvoice/hotkey"
	"tapvoice/log"
)

const (
	DefaultStopTimeout = 2 * time.Second

	notifyTitle = "tapvoice"
)

var errWorkerExited = errors.New("capture worker exited unexpectedly")

// Runner is one capture session's body. Run returns nil after ctx is
// cancelled and an error on failure.
type Runner interface {
	Run(ctx context.Context) error
}

type ControllerConfig struct {
	StopTimeout time.Duration
}

type sessionState int

const (
	sessionRunning sessionState = iota
	sessionStopping
	sessionStopped
)

type captureSession struct {
	id      string
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	state   sessionState
}

// Controller owns the recording state and at most one capture session.
// Every transition runs under mu, so overlapping toggles are serialized.
type Controller struct {
	runner      Runner
	sink        PresentationSink
	stopTimeout time.Duration

	mu      sync.Mutex
	state   State
	session *captureSession
	closed  bool

	workers sync.WaitGroup
}

func NewController(runner Runner, sink PresentationSink, cfg ControllerConfig) *Controller {
	if sink == nil {
		sink = nopSink{}
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	return &Controller{
		runner:      runner,
		sink:        sink,
		stopTimeout: cfg.StopTimeout,
		state:       Idle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a capture session is live.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.state != sessionStopped
}

// Run applies toggles in arrival order until ctx ends or toggles closes.
func (c *Controller) Run(ctx context.Context, toggles <-chan hotkey.ToggleRequest) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-toggles:
			if !ok {
				return
			}
			c.OnToggleRequest(req)
		}
	}
}

func (c *Controller) OnToggleRequest(_ hotkey.ToggleRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		log.Warn("toggle_after_shutdown")
		return
	}
	switch c.state {
	case Idle:
		c.startLocked()
	case Listening:
		c.stopLocked("toggle")
	}
}

// OnFatalCaptureError ends the current session as if its worker had failed.
func (c *Controller) OnFatalCaptureError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalLocked(c.session, err)
}

// Shutdown stops any session, rejects further toggles and waits a bounded
// time for worker goroutines. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.state == Listening {
		c.stopLocked("shutdown")
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(c.stopTimeout):
		log.Errorf("shutdown_timeout: capture worker still running after %v", c.stopTimeout)
	}
}

func (c *Controller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	sess := &captureSession{
		id:      uuid.NewString(),
		started: time.Now(),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	c.state = Listening
	c.session = sess
	log.Toggle(Idle.String(), Listening.String())
	log.SessionStart(sess.id)

	c.workers.Add(1)
	go c.supervise(ctx, sess)

	c.notifyState(Listening)
}

func (c *Controller) supervise(ctx context.Context, sess *captureSession) {
	defer c.workers.Done()

	err := c.runWorker(ctx)
	close(sess.done)

	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = errWorkerExited
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.fatalLocked(sess, err)
}

func (c *Controller) runWorker(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture worker panic: %v", r)
		}
	}()
	return c.runner.Run(ctx)
}

// fatalLocked tears down sess if it is still the current session. Reports
// from a session that already ended are dropped.
func (c *Controller) fatalLocked(sess *captureSession, err error) {
	if sess == nil || c.session != sess || c.state != Listening {
		log.Warnf("stale_fatal: %v", err)
		return
	}
	log.Errorf("worker_fatal: %v", err)
	c.stopLocked("fatal")
	if nerr := c.sink.OnNotify(notifyTitle, "Dictation stopped: "+err.Error()); nerr != nil {
		log.Warnf("notify_error: %v", nerr)
	}
}

// stopLocked flips to Idle, cancels the worker, waits for it up to
// stopTimeout and then notifies the sink. A worker that does not stop in
// time is abandoned; the state is Idle regardless.
func (c *Controller) stopLocked(reason string) {
	sess := c.session
	c.state = Idle
	c.session = nil
	log.Toggle(Listening.String(), Idle.String())

	if sess != nil {
		sess.state = sessionStopping
		sess.cancel()

		timer := time.NewTimer(c.stopTimeout)
		select {
		case <-sess.done:
		case <-timer.C:
			log.Errorf("stop_timeout: session %s did not stop within %v", sess.id, c.stopTimeout)
		}
		timer.Stop()

		sess.state = sessionStopped
		log.SessionEnd(sess.id, reason, time.Since(sess.started))
	}

	c.notifyState(Idle)
}

func (c *Controller) notifyState(s State) {
	if err := c.sink.OnStateChanged(s); err != nil {
		log.Warnf("sink_error: %v", err)
	}
}
