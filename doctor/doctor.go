// Package doctor walks the user through the hotkey, microphone,
// transcription, focus and paste collaborators one at a time.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"tapvoice/audio"
	"tapvoice/dictation"
	"tapvoice/hotkey"
	"tapvoice/transcriber"
)

const defaultWait = 10 * time.Second

// Deps are the collaborators under test, built from the loaded config.
type Deps struct {
	Out io.Writer

	Hotkey      hotkey.DetectorConfig
	NewSource   func(keys ...string) (hotkey.Source, error)
	Recognizer  dictation.Recognizer
	Transcriber dictation.Transcriber
	Gate        dictation.Gate
	InitPaste   func() error

	// Wait bounds every step that needs the user to act.
	Wait time.Duration
	// Countdown is the time given to focus the target window.
	Countdown time.Duration
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, d Deps) int {
	if d.Wait <= 0 {
		d.Wait = defaultWait
	}
	out := d.Out

	fmt.Fprintln(out, "tapvoice doctor - interactive system diagnostics")
	fmt.Fprintln(out, "================================================")

	allPass := true
	step := func(n int, name string) {
		fmt.Fprintf(out, "\n[%d/5] %s\n", n, name)
	}

	step(1, "Hotkey detection")
	if !checkHotkey(ctx, d) {
		allPass = false
	}

	step(2, "Microphone")
	u, ok := checkMicrophone(ctx, d)
	if !ok {
		allPass = false
	}

	step(3, "Transcription")
	if !ok {
		fmt.Fprintln(out, "  SKIP: no phrase captured")
	} else if !checkTranscription(ctx, d, u) {
		allPass = false
	}

	step(4, "Focused window")
	if !checkFocus(ctx, d) {
		allPass = false
	}

	step(5, "Paste keystroke")
	if err := d.InitPaste(); err != nil {
		fmt.Fprintf(out, "  FAIL: %v\n", err)
		allPass = false
	} else {
		fmt.Fprintln(out, "  PASS: paste device ready")
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

func checkHotkey(ctx context.Context, d Deps) bool {
	key := strings.ToUpper(d.Hotkey.Key)
	fmt.Fprintf(d.Out, "Double-tap %s...\n", key)

	src, err := d.NewSource(d.Hotkey.Key)
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return false
	}
	if err := src.Register(); err != nil {
		fmt.Fprintf(d.Out, "  FAIL: could not watch %s: %v\n", key, err)
		return false
	}
	defer src.Unregister()
	// Key presses echo into the terminal while evdev is read.
	defer resetTerminal()

	det := hotkey.NewDetector(d.Hotkey)
	timeout := time.After(d.Wait)
	presses := 0
	for {
		select {
		case ev := <-src.Events():
			if ev.Kind == hotkey.Press && hotkey.Normalize(ev.Key) == hotkey.Normalize(d.Hotkey.Key) {
				presses++
			}
			if _, action := det.Observe(ev); action == hotkey.ActionToggle {
				fmt.Fprintln(d.Out, "  PASS: double-tap detected")
				return true
			}
		case <-timeout:
			if presses > 0 {
				fmt.Fprintf(d.Out, "  FAIL: saw %d press(es) but no double-tap within %v\n", presses, d.Hotkey.DoublePress)
			} else {
				fmt.Fprintf(d.Out, "  FAIL: timeout waiting for %s\n", key)
			}
			return false
		case <-ctx.Done():
			fmt.Fprintln(d.Out, "  FAIL: interrupted")
			return false
		}
	}
}

func checkMicrophone(ctx context.Context, d Deps) (audio.Utterance, bool) {
	l, err := d.Recognizer.Open()
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return audio.Utterance{}, false
	}
	defer l.Close()
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	fmt.Fprintln(d.Out, "Say a short sentence, then pause...")
	u, err := l.Listen(d.Wait)
	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(d.Out, "  FAIL: interrupted")
		return audio.Utterance{}, false
	case errors.Is(err, audio.ErrListenTimeout):
		fmt.Fprintf(d.Out, "  FAIL: no speech heard in %v (check capture.device and capture.threshold)\n", d.Wait)
		return audio.Utterance{}, false
	case err != nil:
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return audio.Utterance{}, false
	}
	fmt.Fprintf(d.Out, "  PASS: captured %.1fs phrase\n", u.Duration.Seconds())
	return u, true
}

func checkTranscription(ctx context.Context, d Deps, u audio.Utterance) bool {
	text, err := d.Transcriber.Transcribe(ctx, u)
	if errors.Is(err, transcriber.ErrUnintelligible) {
		fmt.Fprintln(d.Out, "  FAIL: nothing recognized")
		return false
	}
	if err != nil {
		fmt.Fprintf(d.Out, "  FAIL: %v\n", err)
		return false
	}
	fmt.Fprintf(d.Out, "  PASS: %q\n", strings.TrimSpace(text))
	return true
}

func checkFocus(ctx context.Context, d Deps) bool {
	fmt.Fprintln(d.Out, "Focus the window you dictate into...")
	for i := int(d.Countdown / time.Second); i > 0; i-- {
		fmt.Fprintf(d.Out, "  %d...\n", i)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			fmt.Fprintln(d.Out, "  FAIL: interrupted")
			return false
		}
	}

	dec := d.Gate.PermitForeground()
	switch {
	case dec.Allowed:
		fmt.Fprintf(d.Out, "  PASS: %s is allowlisted\n", dec.Process)
		return true
	case dec.Process != "":
		fmt.Fprintf(d.Out, "  FAIL: %s is not allowlisted (add it to gate.allowlist)\n", dec.Process)
	default:
		fmt.Fprintf(d.Out, "  FAIL: %s\n", dec.Reason)
	}
	return false
}
