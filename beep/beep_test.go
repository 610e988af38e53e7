package beep

import (
	"testing"
)

func TestGenerateTick(t *testing.T) {
	s := generateTick(sampleRate, 1000, 0.1, 0.5, 40)
	if len(s) != sampleRate/10 {
		t.Fatalf("len = %d, want %d", len(s), sampleRate/10)
	}
	if s[0] != 0 {
		t.Errorf("tick should start at zero crossing, got %d", s[0])
	}
	var peak int16
	for _, v := range s {
		peak = max(peak, v)
	}
	if peak > 32767/2+1 || peak < 32767/4 {
		t.Errorf("peak = %d, want about half scale", peak)
	}
	tail := s[len(s)-10:]
	for _, v := range tail {
		if v > 2000 || v < -2000 {
			t.Errorf("tail sample %d has not decayed", v)
		}
	}
}

func TestGenerateDoubleBeep(t *testing.T) {
	beep := generateTick(sampleRate, 350, 0.08, 0.6, 30)
	gap := int(float64(sampleRate) * 0.05)
	s := generateDoubleBeep(sampleRate, 350, 0.08, 0.05, 0.6, 30)
	if len(s) != 2*len(beep)+gap {
		t.Fatalf("len = %d, want %d", len(s), 2*len(beep)+gap)
	}
	for i := len(beep); i < len(beep)+gap; i++ {
		if s[i] != 0 {
			t.Fatalf("gap sample %d = %d, want silence", i, s[i])
		}
	}
}

func TestCueSamplesDiffer(t *testing.T) {
	if len(startSamples) == 0 || len(endSamples) == 0 || len(errorSamples) == 0 {
		t.Fatal("cue samples not generated")
	}
	if startSamples[10] == endSamples[10] {
		t.Error("start and end cues should differ in pitch")
	}
}

func TestDisabledSinkIsSilent(t *testing.T) {
	Disable()
	// With cues disabled the sink must not touch the audio system.
	if err := (Sink{}).OnStateChanged("listening"); err != nil {
		t.Fatal(err)
	}
	if err := (Sink{}).OnNotify("tapvoice", "x"); err != nil {
		t.Fatal(err)
	}
}
