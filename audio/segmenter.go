package audio

import "time"

const (
	DefaultThreshold   = 0.02
	DefaultSilenceEnd  = 800 * time.Millisecond
	DefaultPhraseLimit = 15 * time.Second
	defaultPreRoll     = 300 * time.Millisecond
	defaultMinSpeech   = 150 * time.Millisecond
)

type SegmenterConfig struct {
	SampleRate  int
	Threshold   float64       // RMS level that counts as speech
	SilenceEnd  time.Duration // trailing silence that ends a phrase
	PhraseLimit time.Duration // hard cap on one phrase
	PreRoll     time.Duration // audio kept from before speech onset
	MinSpeech   time.Duration // phrases with less voiced audio are dropped
}

func (c *SegmenterConfig) setDefaults() {
	if c.SampleRate <= 0 {
		c.SampleRate = SampleRate
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.SilenceEnd <= 0 {
		c.SilenceEnd = DefaultSilenceEnd
	}
	if c.PhraseLimit <= 0 {
		c.PhraseLimit = DefaultPhraseLimit
	}
	if c.PreRoll <= 0 {
		c.PreRoll = defaultPreRoll
	}
	if c.MinSpeech <= 0 {
		c.MinSpeech = defaultMinSpeech
	}
}

// Segmenter splits a PCM stream into utterances on energy. It is not safe
// for concurrent use; the capture callback is its only caller.
type Segmenter struct {
	cfg  SegmenterConfig
	emit func(Utterance)

	speaking  bool
	buf       []byte
	preroll   []byte
	silentFor time.Duration
	voiced    time.Duration
}

func NewSegmenter(cfg SegmenterConfig, emit func(Utterance)) *Segmenter {
	cfg.setDefaults()
	return &Segmenter{cfg: cfg, emit: emit}
}

func (s *Segmenter) Feed(pcm []byte) {
	if len(pcm) < BytesPerSample {
		return
	}
	dur := pcmDuration(len(pcm), s.cfg.SampleRate)
	loud := RMS(pcm) >= s.cfg.Threshold

	if !s.speaking {
		if !loud {
			s.keepPreRoll(pcm)
			return
		}
		s.speaking = true
		s.buf = append(append(s.buf[:0], s.preroll...), pcm...)
		s.preroll = s.preroll[:0]
		s.silentFor = 0
		s.voiced = dur
		return
	}

	s.buf = append(s.buf, pcm...)
	if loud {
		s.silentFor = 0
		s.voiced += dur
	} else {
		s.silentFor += dur
	}

	if s.silentFor >= s.cfg.SilenceEnd || pcmDuration(len(s.buf), s.cfg.SampleRate) >= s.cfg.PhraseLimit {
		s.finish()
	}
}

// Reset drops any phrase in progress.
func (s *Segmenter) Reset() {
	s.speaking = false
	s.buf = s.buf[:0]
	s.preroll = s.preroll[:0]
	s.silentFor = 0
	s.voiced = 0
}

func (s *Segmenter) finish() {
	if s.voiced >= s.cfg.MinSpeech && s.emit != nil {
		pcm := make([]byte, len(s.buf))
		copy(pcm, s.buf)
		s.emit(Utterance{
			PCM:        pcm,
			SampleRate: s.cfg.SampleRate,
			Duration:   pcmDuration(len(pcm), s.cfg.SampleRate),
		})
	}
	s.Reset()
}

func (s *Segmenter) keepPreRoll(pcm []byte) {
	limit := int(s.cfg.PreRoll.Seconds()*float64(s.cfg.SampleRate)) * BytesPerSample
	s.preroll = append(s.preroll, pcm...)
	if over := len(s.preroll) - limit; over > 0 {
		over += over % BytesPerSample
		s.preroll = append(s.preroll[:0], s.preroll[over:]...)
	}
}
