package doctor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tapvoice/audio"
	"tapvoice/gate"
	"tapvoice/hotkey"
	"tapvoice/transcriber"
)

type cannedListener struct {
	u   audio.Utterance
	err error
}

func (l *cannedListener) Listen(time.Duration) (audio.Utterance, error) { return l.u, l.err }
func (l *cannedListener) Close() error                                  { return nil }

type cannedRecognizer struct {
	l   *cannedListener
	err error
}

func (r cannedRecognizer) Open() (audio.Listener, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.l, nil
}

type staticGate gate.Decision

func (g staticGate) PermitForeground() gate.Decision { return gate.Decision(g) }

func doubleTap(key string) func(...string) (hotkey.Source, error) {
	return func(...string) (hotkey.Source, error) {
		src := hotkey.NewFake()
		t0 := time.Now()
		src.SimPress(key, t0)
		src.SimRelease(key, t0.Add(50*time.Millisecond))
		src.SimPress(key, t0.Add(120*time.Millisecond))
		return src, nil
	}
}

func healthyDeps(out *bytes.Buffer) Deps {
	return Deps{
		Out:         out,
		Hotkey:      hotkey.DetectorConfig{Key: "f9", QuitKey: "f10"},
		NewSource:   doubleTap("f9"),
		Recognizer:  cannedRecognizer{l: &cannedListener{u: audio.Utterance{Duration: 1200 * time.Millisecond}}},
		Transcriber: transcriber.NewFake(transcriber.FakeStep{Text: "hello world"}),
		Gate:        staticGate{Allowed: true, Process: "kitty"},
		InitPaste:   func() error { return nil },
		Wait:        time.Second,
	}
}

func TestRunAllPass(t *testing.T) {
	var out bytes.Buffer
	if code := Run(context.Background(), healthyDeps(&out)); code != 0 {
		t.Fatalf("exit code = %d, want 0\n%s", code, out.String())
	}
	for _, want := range []string{"double-tap detected", "captured 1.2s", `"hello world"`, "kitty is allowlisted", "All checks passed"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q\n%s", want, out.String())
		}
	}
}

func TestRunFailures(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*Deps)
		want   string
	}{
		{"single press", func(d *Deps) {
			d.NewSource = func(...string) (hotkey.Source, error) {
				src := hotkey.NewFake()
				src.SimPress("f9", time.Now())
				return src, nil
			}
			d.Wait = 50 * time.Millisecond
		}, "saw 1 press(es)"},
		{"source error", func(d *Deps) {
			d.NewSource = func(...string) (hotkey.Source, error) { return nil, errors.New("no keyboards") }
		}, "FAIL: no keyboards"},
		{"no speech", func(d *Deps) {
			d.Recognizer = cannedRecognizer{l: &cannedListener{err: audio.ErrListenTimeout}}
		}, "SKIP: no phrase captured"},
		{"device missing", func(d *Deps) {
			d.Recognizer = cannedRecognizer{err: errors.New(`no capture device matches "usb"`)}
		}, `no capture device matches "usb"`},
		{"unintelligible", func(d *Deps) {
			d.Transcriber = transcriber.NewFake(transcriber.FakeStep{})
		}, "nothing recognized"},
		{"not allowlisted", func(d *Deps) {
			d.Gate = staticGate{Process: "firefox", Reason: "not in allowlist"}
		}, "firefox is not allowlisted"},
		{"no focus", func(d *Deps) {
			d.Gate = staticGate{Reason: "no focused window"}
		}, "FAIL: no focused window"},
		{"paste", func(d *Deps) {
			d.InitPaste = func() error { return errors.New("permission denied: /dev/uinput") }
		}, "/dev/uinput"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			d := healthyDeps(&out)
			tt.mutate(&d)
			if code := Run(context.Background(), d); code != 1 {
				t.Fatalf("exit code = %d, want 1", code)
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output missing %q\n%s", tt.want, out.String())
			}
		})
	}
}

func TestRunInterrupted(t *testing.T) {
	var out bytes.Buffer
	d := healthyDeps(&out)
	d.NewSource = func(...string) (hotkey.Source, error) { return hotkey.NewFake(), nil }
	d.Wait = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if code := Run(ctx, d); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(out.String(), "interrupted") {
		t.Errorf("output missing interruption\n%s", out.String())
	}
}
