package audio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// utteranceQueue bounds phrases waiting for a slow transcriber.
const utteranceQueue = 8

type MicrophoneConfig struct {
	Device    string // empty selects the system default
	Segmenter SegmenterConfig
}

// Microphones opens capture sessions on a shared audio context.
type Microphones struct {
	ctx Context
	cfg MicrophoneConfig

	// Warn is called with non-fatal conditions noticed while opening.
	Warn func(msg string)
}

func NewMicrophones(ctx Context, cfg MicrophoneConfig) *Microphones {
	cfg.Segmenter.setDefaults()
	return &Microphones{ctx: ctx, cfg: cfg}
}

// Open acquires the capture device and starts segmenting. The device is
// held until Close on the returned listener.
func (m *Microphones) Open() (Listener, error) {
	info, err := FindDevice(m.ctx, m.cfg.Device)
	if err != nil {
		return nil, err
	}
	if info != nil && IsBluetooth(info.Name) && m.Warn != nil {
		m.Warn(fmt.Sprintf("%s is a headset profile; recognition may suffer", info.Name))
	}

	capture, err := m.ctx.NewCapture(info, CaptureConfig{
		SampleRate: uint32(m.cfg.Segmenter.SampleRate),
		Channels:   Channels,
	})
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	mic := newMicrophone(capture, m.cfg.Segmenter)
	if err := capture.Start(); err != nil {
		capture.Close()
		return nil, fmt.Errorf("start capture on %s: %w", capture.DeviceName(), err)
	}
	return mic, nil
}

// Microphone is an open capture session.
type Microphone struct {
	capture    CaptureDevice
	utterances chan Utterance
	closed     chan struct{}
	closeOnce  sync.Once
	dropped    atomic.Int64
}

func newMicrophone(capture CaptureDevice, cfg SegmenterConfig) *Microphone {
	m := &Microphone{
		capture:    capture,
		utterances: make(chan Utterance, utteranceQueue),
		closed:     make(chan struct{}),
	}

	var mu sync.Mutex
	seg := NewSegmenter(cfg, m.enqueue)
	capture.SetCallback(func(data []byte, _ uint32) {
		mu.Lock()
		seg.Feed(data)
		mu.Unlock()
	})
	return m
}

func (m *Microphone) enqueue(u Utterance) {
	select {
	case <-m.closed:
	case m.utterances <- u:
	default:
		m.dropped.Add(1)
	}
}

// Listen waits up to timeout for the next phrase. It returns
// ErrListenTimeout when none arrives and ErrClosed once the session ends.
func (m *Microphone) Listen(timeout time.Duration) (Utterance, error) {
	select {
	case <-m.closed:
		return Utterance{}, ErrClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case u := <-m.utterances:
		return u, nil
	case <-m.closed:
		return Utterance{}, ErrClosed
	case <-timer.C:
		return Utterance{}, ErrListenTimeout
	}
}

// Dropped counts phrases discarded because the queue was full.
func (m *Microphone) Dropped() int64 {
	return m.dropped.Load()
}

func (m *Microphone) DeviceName() string {
	return m.capture.DeviceName()
}

// Close releases the capture device. Safe to call more than once.
func (m *Microphone) Close() error {
	m.closeOnce.Do(func() {
		close(m.closed)
		m.capture.ClearCallback()
		m.capture.Close()
	})
	return nil
}
