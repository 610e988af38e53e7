package dictation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"tapvoice/audio"
	"tapvoice/gate"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

var testUtterance = audio.Utterance{PCM: make([]byte, 3200), SampleRate: audio.SampleRate, Duration: 100 * time.Millisecond}

// listenStep is one scripted Listen result; a nil err yields testUtterance.
type listenStep struct {
	err error
}

type fakeListener struct {
	mu     sync.Mutex
	script []listenStep
	calls  int
	closed chan struct{}
	once   sync.Once
	// idle makes Listen wait for the full timeout once the script is spent.
	idle bool
}

func newFakeListener(idle bool, script ...listenStep) *fakeListener {
	return &fakeListener{script: script, idle: idle, closed: make(chan struct{})}
}

func (l *fakeListener) Listen(timeout time.Duration) (audio.Utterance, error) {
	l.mu.Lock()
	l.calls++
	var step *listenStep
	if n := l.calls - 1; n < len(l.script) {
		step = &l.script[n]
	} else if !l.idle && len(l.script) > 0 {
		step = &l.script[len(l.script)-1]
	}
	l.mu.Unlock()

	select {
	case <-l.closed:
		return audio.Utterance{}, audio.ErrClosed
	default:
	}

	if step == nil {
		select {
		case <-l.closed:
			return audio.Utterance{}, audio.ErrClosed
		case <-time.After(timeout):
			return audio.Utterance{}, audio.ErrListenTimeout
		}
	}
	if step.err != nil {
		return audio.Utterance{}, step.err
	}
	return testUtterance, nil
}

func (l *fakeListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *fakeListener) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *fakeListener) Closed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}

type fakeRecognizer struct {
	mu        sync.Mutex
	listeners []*fakeListener
	next      func() *fakeListener
	openErr   error
}

func (r *fakeRecognizer) Open() (audio.Listener, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return nil, r.openErr
	}
	l := r.next()
	r.listeners = append(r.listeners, l)
	return l, nil
}

func (r *fakeRecognizer) opened() []*fakeListener {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeListener(nil), r.listeners...)
}

type fakeGate struct {
	mu      sync.Mutex
	allowed bool
	calls   int
}

func (g *fakeGate) PermitForeground() gate.Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if !g.allowed {
		return gate.Decision{Process: "firefox", Reason: "not allowlisted"}
	}
	return gate.Decision{Allowed: true, Process: "kitty"}
}

func (g *fakeGate) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeInjector struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeInjector) Inject(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeInjector) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// recordingSink logs every call as "state:<s>" or "notify:<message>".
type recordingSink struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (s *recordingSink) OnStateChanged(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "state:"+st.String())
	return s.err
}

func (s *recordingSink) OnNotify(_, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "notify:"+message)
	return s.err
}

func (s *recordingSink) Events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// funcRunner adapts a function to Runner.
type funcRunner func(ctx context.Context) error

func (f funcRunner) Run(ctx context.Context) error { return f(ctx) }

// blockingRunner runs until cancelled and tracks how many runs overlap.
type blockingRunner struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	starts  int
}

func (r *blockingRunner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.active++
	r.starts++
	r.maxSeen = max(r.maxSeen, r.active)
	r.mu.Unlock()

	<-ctx.Done()

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	return nil
}

func (r *blockingRunner) stats() (active, maxSeen, starts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.maxSeen, r.starts
}

func (r *blockingRunner) String() string {
	a, m, s := r.stats()
	return fmt.Sprintf("active=%d max=%d starts=%d", a, m, s)
}
