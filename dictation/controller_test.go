package dictation

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"tapvoice/hotkey"
	"tapvoice/transcriber"
)

func toggle(c *Controller) { c.OnToggleRequest(hotkey.ToggleRequest{At: time.Now()}) }

func TestControllerToggleRoundTrip(t *testing.T) {
	runner := &blockingRunner{}
	sink := &recordingSink{}
	c := NewController(runner, sink, ControllerConfig{})
	defer c.Shutdown()

	if c.State() != Idle || c.Active() {
		t.Fatalf("initial state = %s active=%v, want idle", c.State(), c.Active())
	}

	toggle(c)
	if c.State() != Listening || !c.Active() {
		t.Fatalf("state = %s active=%v after first toggle, want listening", c.State(), c.Active())
	}
	waitFor(t, "worker start", func() bool { a, _, _ := runner.stats(); return a == 1 })

	toggle(c)
	if c.State() != Idle || c.Active() {
		t.Fatalf("state = %s active=%v after second toggle, want idle", c.State(), c.Active())
	}
	if a, _, _ := runner.stats(); a != 0 {
		t.Errorf("worker still running after stop: %s", runner)
	}

	want := []string{"state:listening", "state:idle"}
	if got := sink.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("sink events = %q, want %q", got, want)
	}
}

func TestControllerDoubleTapScenario(t *testing.T) {
	c := NewController(&blockingRunner{}, nil, ControllerConfig{})
	defer c.Shutdown()

	d := hotkey.NewDetector(hotkey.DetectorConfig{Key: "f9", QuitKey: "f10"})
	t0 := time.Now()
	press := func(ms int) {
		req, action := d.Observe(hotkey.KeyEvent{Key: "f9", At: t0.Add(time.Duration(ms) * time.Millisecond), Kind: hotkey.Press})
		if action == hotkey.ActionToggle {
			c.OnToggleRequest(req)
		}
	}

	press(0)
	if c.State() != Idle {
		t.Fatalf("state = %s after a single press", c.State())
	}
	press(150)
	if c.State() != Listening {
		t.Fatalf("state = %s after double press at 150ms, want listening", c.State())
	}
	press(200)
	if c.State() != Listening {
		t.Fatalf("state = %s after press inside cooldown, want listening", c.State())
	}
	press(1000)
	press(1100)
	if c.State() != Idle {
		t.Fatalf("state = %s after second double press, want idle", c.State())
	}
}

func TestControllerFatalWorkerForcesIdle(t *testing.T) {
	sink := &recordingSink{}
	boom := errors.New("audio backend died")
	c := NewController(funcRunner(func(context.Context) error { return boom }), sink, ControllerConfig{})
	defer c.Shutdown()

	toggle(c)
	waitFor(t, "forced idle", func() bool { return c.State() == Idle })

	waitFor(t, "fatal notification", func() bool { return len(sink.Events()) == 3 })
	events := sink.Events()
	if events[0] != "state:listening" || events[1] != "state:idle" {
		t.Errorf("sink events = %q", events)
	}
	if !strings.HasPrefix(events[2], "notify:Dictation stopped: ") || !strings.Contains(events[2], boom.Error()) {
		t.Errorf("notification = %q", events[2])
	}
	if c.Active() {
		t.Error("session still active after fatal error")
	}

	// The controller accepts new toggles after a fatal session.
	toggle(c)
	waitFor(t, "second fatal", func() bool { return len(sink.Events()) == 6 })
}

func TestControllerWorkerPanicIsFatal(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(funcRunner(func(context.Context) error { panic("nil map write") }), sink, ControllerConfig{})
	defer c.Shutdown()

	toggle(c)
	waitFor(t, "notification", func() bool { return len(sink.Events()) == 3 })
	if c.State() != Idle {
		t.Errorf("state = %s, want idle", c.State())
	}
	if got := sink.Events()[2]; !strings.Contains(got, "panic") {
		t.Errorf("notification %q does not mention the panic", got)
	}
}

func TestControllerWorkerReturningEarlyIsFatal(t *testing.T) {
	c := NewController(funcRunner(func(context.Context) error { return nil }), nil, ControllerConfig{})
	defer c.Shutdown()

	toggle(c)
	waitFor(t, "forced idle", func() bool { return c.State() == Idle })
}

func TestControllerStopTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	stuck := funcRunner(func(context.Context) error {
		<-release
		return nil
	})
	sink := &recordingSink{}
	c := NewController(stuck, sink, ControllerConfig{StopTimeout: 50 * time.Millisecond})

	toggle(c)
	start := time.Now()
	toggle(c)
	elapsed := time.Since(start)

	if c.State() != Idle {
		t.Fatalf("state = %s after stop timeout, want idle", c.State())
	}
	if elapsed < 50*time.Millisecond || elapsed > time.Second {
		t.Errorf("stop took %v, want about 50ms", elapsed)
	}
	if got := sink.Events(); got[len(got)-1] != "state:idle" {
		t.Errorf("last sink event = %q, want state:idle", got[len(got)-1])
	}

	// Not stuck: the next toggle starts a fresh session.
	toggle(c)
	if c.State() != Listening {
		t.Errorf("state = %s after toggle following a timeout, want listening", c.State())
	}
}

func TestControllerShutdownIdempotent(t *testing.T) {
	runner := &blockingRunner{}
	sink := &recordingSink{}
	c := NewController(runner, sink, ControllerConfig{})

	toggle(c)
	c.Shutdown()
	c.Shutdown()

	if c.State() != Idle {
		t.Errorf("state = %s after shutdown, want idle", c.State())
	}
	if a, _, _ := runner.stats(); a != 0 {
		t.Errorf("worker outlived shutdown: %s", runner)
	}

	toggle(c)
	if c.State() != Idle {
		t.Error("toggle accepted after shutdown")
	}
	want := []string{"state:listening", "state:idle"}
	if got := sink.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("sink events = %q, want %q", got, want)
	}
}

func TestControllerShutdownWhileIdle(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(&blockingRunner{}, sink, ControllerConfig{})
	c.Shutdown()
	if len(sink.Events()) != 0 {
		t.Errorf("idle shutdown notified sink: %q", sink.Events())
	}
}

func TestControllerConcurrentTogglesNeverOverlapWorkers(t *testing.T) {
	runner := &blockingRunner{}
	c := NewController(runner, nil, ControllerConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			toggle(c)
		}()
	}
	wg.Wait()
	c.Shutdown()

	active, maxSeen, starts := runner.stats()
	if maxSeen > 1 {
		t.Errorf("%d workers ran at once", maxSeen)
	}
	if active != 0 {
		t.Errorf("%d workers still running after shutdown", active)
	}
	if starts == 0 {
		t.Error("no worker ever started")
	}
	if c.State() != Idle {
		t.Errorf("state = %s after shutdown", c.State())
	}
}

func TestControllerSinkErrorsDoNotAffectState(t *testing.T) {
	sink := &recordingSink{err: errors.New("tray gone")}
	c := NewController(&blockingRunner{}, sink, ControllerConfig{})
	defer c.Shutdown()

	toggle(c)
	if c.State() != Listening {
		t.Fatalf("state = %s, want listening", c.State())
	}
	toggle(c)
	if c.State() != Idle {
		t.Fatalf("state = %s, want idle", c.State())
	}
}

func TestControllerStaleFatalIgnored(t *testing.T) {
	sink := &recordingSink{}
	c := NewController(&blockingRunner{}, sink, ControllerConfig{})
	defer c.Shutdown()

	c.OnFatalCaptureError(errors.New("late report"))
	if c.State() != Idle || len(sink.Events()) != 0 {
		t.Errorf("fatal while idle changed something: state=%s events=%q", c.State(), sink.Events())
	}

	toggle(c)
	c.OnFatalCaptureError(errors.New("microphone revoked"))
	if c.State() != Idle {
		t.Errorf("state = %s after external fatal, want idle", c.State())
	}
	if got := sink.Events(); len(got) != 3 || got[2] != "notify:Dictation stopped: microphone revoked" {
		t.Errorf("sink events = %q", got)
	}
}

func TestControllerRunConsumesToggles(t *testing.T) {
	c := NewController(&blockingRunner{}, nil, ControllerConfig{})
	defer c.Shutdown()

	toggles := make(chan hotkey.ToggleRequest)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, toggles)
		close(done)
	}()

	toggles <- hotkey.ToggleRequest{At: time.Now()}
	waitFor(t, "listening", func() bool { return c.State() == Listening })
	toggles <- hotkey.ToggleRequest{At: time.Now()}
	waitFor(t, "idle", func() bool { return c.State() == Idle })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestControllerWithWorkerReleasesMicrophone(t *testing.T) {
	rec := &fakeRecognizer{next: func() *fakeListener { return newFakeListener(true) }}
	w := NewWorker(rec, transcriber.NewFake(), &fakeGate{allowed: true}, &fakeInjector{}, WorkerConfig{ListenTimeout: 20 * time.Millisecond})
	c := NewController(w, nil, ControllerConfig{})
	defer c.Shutdown()

	toggle(c)
	waitFor(t, "microphone open", func() bool { return len(rec.opened()) == 1 })
	toggle(c)

	if l := rec.opened()[0]; !l.Closed() {
		t.Error("microphone held after Listening to Idle teardown")
	}

	toggle(c)
	waitFor(t, "second microphone", func() bool { return len(rec.opened()) == 2 })
	c.Shutdown()
	if l := rec.opened()[1]; !l.Closed() {
		t.Error("microphone held after shutdown")
	}
}

func TestSinksFanOut(t *testing.T) {
	a := &recordingSink{err: errors.New("a failed")}
	b := &recordingSink{}
	s := Sinks{a, b}

	if err := s.OnStateChanged(Listening); err == nil {
		t.Error("expected the first sink's error")
	}
	if err := s.OnNotify("tapvoice", "hello"); err == nil {
		t.Error("expected the first sink's error")
	}
	want := []string{"state:listening", "notify:hello"}
	if got := b.Events(); !reflect.DeepEqual(got, want) {
		t.Errorf("second sink events = %q, want %q", got, want)
	}
}
