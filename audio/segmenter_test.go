package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

const chunk = 20 * time.Millisecond

// pcm returns d of a square wave at amplitude amp (0 means silence).
func pcm(d time.Duration, amp int16) []byte {
	n := int(d.Seconds() * SampleRate)
	buf := make([]byte, n*BytesPerSample)
	for i := 0; i < n; i++ {
		v := amp
		if i%2 == 1 {
			v = -amp
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func feed(s *Segmenter, d time.Duration, amp int16) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += chunk {
		s.Feed(pcm(chunk, amp))
	}
}

func collect() (*[]Utterance, func(Utterance)) {
	var got []Utterance
	return &got, func(u Utterance) { got = append(got, u) }
}

func TestRMS(t *testing.T) {
	if got := RMS(pcm(chunk, 0)); got != 0 {
		t.Errorf("RMS(silence) = %v, want 0", got)
	}
	if got := RMS(pcm(chunk, 16384)); got < 0.49 || got > 0.51 {
		t.Errorf("RMS(half scale) = %v, want 0.5", got)
	}
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %v, want 0", got)
	}
}

func TestSegmenterEmitsPhraseAfterSilence(t *testing.T) {
	got, emit := collect()
	s := NewSegmenter(SegmenterConfig{}, emit)

	feed(s, 200*time.Millisecond, 0)
	feed(s, 400*time.Millisecond, 8000)
	feed(s, 780*time.Millisecond, 0)
	if len(*got) != 0 {
		t.Fatalf("emitted %d phrases before trailing silence elapsed", len(*got))
	}
	feed(s, chunk, 0)
	if len(*got) != 1 {
		t.Fatalf("emitted %d phrases, want 1", len(*got))
	}

	u := (*got)[0]
	// 200ms pre-roll + 400ms speech + 800ms trailing silence
	if want := 1400 * time.Millisecond; u.Duration != want {
		t.Errorf("duration = %v, want %v", u.Duration, want)
	}
	if u.SampleRate != SampleRate {
		t.Errorf("sample rate = %d, want %d", u.SampleRate, SampleRate)
	}
	if len(u.Samples()) != len(u.PCM)/2 {
		t.Errorf("Samples() length mismatch")
	}
}

func TestSegmenterPreRollIsCapped(t *testing.T) {
	got, emit := collect()
	s := NewSegmenter(SegmenterConfig{}, emit)

	feed(s, time.Second, 0)
	feed(s, 200*time.Millisecond, 8000)
	feed(s, 800*time.Millisecond, 0)

	if len(*got) != 1 {
		t.Fatalf("emitted %d phrases, want 1", len(*got))
	}
	if want := 1300 * time.Millisecond; (*got)[0].Duration != want {
		t.Errorf("duration = %v, want %v", (*got)[0].Duration, want)
	}
}

func TestSegmenterDropsBlips(t *testing.T) {
	got, emit := collect()
	s := NewSegmenter(SegmenterConfig{}, emit)

	feed(s, 100*time.Millisecond, 8000)
	feed(s, time.Second, 0)
	if len(*got) != 0 {
		t.Errorf("emitted %d phrases for a 100ms click, want 0", len(*got))
	}
}

func TestSegmenterPhraseLimit(t *testing.T) {
	got, emit := collect()
	s := NewSegmenter(SegmenterConfig{PhraseLimit: time.Second}, emit)

	feed(s, 1200*time.Millisecond, 8000)
	if len(*got) != 1 {
		t.Fatalf("emitted %d phrases, want 1", len(*got))
	}
	if (*got)[0].Duration != time.Second {
		t.Errorf("duration = %v, want 1s", (*got)[0].Duration)
	}
}

func TestSegmenterQuietSpeechBelowThreshold(t *testing.T) {
	got, emit := collect()
	s := NewSegmenter(SegmenterConfig{Threshold: 0.5}, emit)

	feed(s, 400*time.Millisecond, 8000)
	feed(s, time.Second, 0)
	if len(*got) != 0 {
		t.Errorf("emitted %d phrases below threshold, want 0", len(*got))
	}
}

func TestSegmenterReset(t *testing.T) {
	got, emit := collect()
	s := NewSegmenter(SegmenterConfig{}, emit)

	feed(s, 400*time.Millisecond, 8000)
	s.Reset()
	feed(s, time.Second, 0)
	if len(*got) != 0 {
		t.Errorf("emitted %d phrases after reset, want 0", len(*got))
	}
}
