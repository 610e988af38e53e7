package dictation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tapvoice/audio"
	"tapvoice/gate"
	"tapvoice/log"
	"tapvoice/transcriber"
)

const (
	DefaultListenTimeout = time.Second
	DefaultSilenceWarn   = 8 * time.Second
)

type Recognizer interface {
	Open() (audio.Listener, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, u audio.Utterance) (string, error)
}

type Injector interface {
	Inject(text string) error
}

// Gate decides, at emission time, whether the focused window may receive text.
type Gate interface {
	PermitForeground() gate.Decision
}

type outcome int

const (
	outcomeEmpty outcome = iota
	outcomeTransient
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeEmpty:
		return "empty"
	case outcomeTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// classify maps a listen or transcribe error to the loop's retry policy.
func classify(err error) outcome {
	var reqErr *transcriber.RequestError
	switch {
	case errors.Is(err, audio.ErrListenTimeout), errors.Is(err, transcriber.ErrUnintelligible):
		return outcomeEmpty
	case errors.As(err, &reqErr):
		return outcomeTransient
	default:
		return outcomeFatal
	}
}

type WorkerConfig struct {
	ListenTimeout time.Duration
	// SilenceWarn is how long the microphone may stay quiet before
	// OnSilence fires. It fires again every SilenceWarn after that.
	SilenceWarn time.Duration
}

// Worker runs the listen, transcribe, gate and inject loop for one session.
// A Worker holds no per-session state and may be run again after it returns.
type Worker struct {
	recognizer    Recognizer
	transcriber   Transcriber
	gate          Gate
	injector      Injector
	listenTimeout time.Duration
	silenceWarn   time.Duration

	// OnEmit, if set, is called with every injected phrase.
	OnEmit func(text string)
	// OnSilence, if set, is called from the worker goroutine when no
	// phrase has been heard for a while.
	OnSilence func(quiet time.Duration)
}

func NewWorker(r Recognizer, t Transcriber, g Gate, inj Injector, cfg WorkerConfig) *Worker {
	if cfg.ListenTimeout <= 0 {
		cfg.ListenTimeout = DefaultListenTimeout
	}
	if cfg.SilenceWarn <= 0 {
		cfg.SilenceWarn = DefaultSilenceWarn
	}
	return &Worker{
		recognizer:    r,
		transcriber:   t,
		gate:          g,
		injector:      inj,
		listenTimeout: cfg.ListenTimeout,
		silenceWarn:   cfg.SilenceWarn,
	}
}

// Run captures until ctx is cancelled, returning nil, or until an
// unexpected failure, returning it. The capture device is released before
// Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return nil
	}

	listener, err := w.recognizer.Open()
	if err != nil {
		return fmt.Errorf("open microphone: %w", err)
	}
	defer listener.Close()

	// Closing the listener unblocks a Listen in progress.
	stop := context.AfterFunc(ctx, func() { listener.Close() })
	defer stop()

	quiet := silenceMonitor{every: w.silenceWarn, since: time.Now()}
	for {
		if ctx.Err() != nil {
			return nil
		}

		u, err := listener.Listen(w.listenTimeout)
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, audio.ErrListenTimeout) {
			if d, warn := quiet.check(time.Now()); warn {
				log.Warnf("no_voice: nothing heard for %v", d.Round(time.Second))
				if w.OnSilence != nil {
					w.OnSilence(d)
				}
			}
			continue
		}
		quiet.reset(time.Now())
		if err != nil {
			if w.fatal("listen", err) {
				return fmt.Errorf("listen: %w", err)
			}
			continue
		}

		text, err := w.transcriber.Transcribe(ctx, u)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if w.fatal("transcribe", err) {
				return fmt.Errorf("transcribe: %w", err)
			}
			continue
		}

		if text = strings.TrimSpace(text); text != "" {
			w.emit(text)
		}
	}
}

func (w *Worker) fatal(stage string, err error) bool {
	switch classify(err) {
	case outcomeEmpty:
		return false
	case outcomeTransient:
		log.Warnf("%s_error: %v", stage, err)
		return false
	default:
		return true
	}
}

func (w *Worker) emit(text string) {
	d := w.gate.PermitForeground()
	log.GateDecision(d.Allowed, d.Process, d.Reason)
	if !d.Allowed {
		return
	}
	if err := w.injector.Inject(text); err != nil {
		log.Warnf("inject_error: %v", err)
		return
	}
	log.TranscriptionText(text)
	if w.OnEmit != nil {
		w.OnEmit(text)
	}
}

// silenceMonitor tracks how long listening has produced no phrase.
type silenceMonitor struct {
	every  time.Duration
	since  time.Time
	warned int
}

// check reports the quiet time and whether another warning is due.
func (m *silenceMonitor) check(now time.Time) (time.Duration, bool) {
	d := now.Sub(m.since)
	if d < time.Duration(m.warned+1)*m.every {
		return d, false
	}
	m.warned = int(d / m.every)
	return d, true
}

func (m *silenceMonitor) reset(now time.Time) {
	m.since = now
	m.warned = 0
}
