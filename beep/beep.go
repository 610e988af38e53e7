// Package beep plays short cues when dictation starts, stops or fails.
package beep

import (
	"math"
	"sync/atomic"

	"tapvoice/dictation"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

const (
	sampleRate = 44100

	// Start: high, short tick
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End: lower, slightly longer tick
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error: low double beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// The trailing silence in each tick lets the sound server fill its buffer.
var (
	startSamples = generateTick(sampleRate, startFreq, 0.2, startVolume, startDecay)
	endSamples   = generateTick(sampleRate, endFreq, 0.2, endVolume, endDecay)
	errorSamples = generateDoubleBeep(sampleRate, errorFreq, 0.08, 0.05, errorVolume, errorDecay)
)

// generateTick renders a decaying mono sine.
func generateTick(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func generateDoubleBeep(sampleRate int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := generateTick(sampleRate, freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

func PlayStart() {
	if !disabled.Load() {
		play(startSamples)
	}
}

func PlayEnd() {
	if !disabled.Load() {
		play(endSamples)
	}
}

func PlayError() {
	if !disabled.Load() {
		play(errorSamples)
	}
}

// Sink plays a cue for every state change and an error cue for
// notifications.
type Sink struct{}

func (Sink) OnStateChanged(s dictation.State) error {
	if s == dictation.Listening {
		PlayStart()
	} else {
		PlayEnd()
	}
	return nil
}

func (Sink) OnNotify(string, string) error {
	PlayError()
	return nil
}
