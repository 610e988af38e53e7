package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
)

var (
	ErrListenTimeout = errors.New("listen timed out")
	ErrClosed        = errors.New("microphone closed")
)

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// Utterance is one phrase of 16-bit little-endian mono PCM.
type Utterance struct {
	PCM        []byte
	SampleRate int
	Duration   time.Duration
}

// Samples decodes the PCM payload.
func (u Utterance) Samples() []int16 {
	out := make([]int16, len(u.PCM)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(u.PCM[i*2:]))
	}
	return out
}

// Listener yields utterances from an open capture device.
type Listener interface {
	Listen(timeout time.Duration) (Utterance, error)
	Close() error
}

// RMS returns the normalized root-mean-square level of a PCM16 buffer.
func RMS(data []byte) float64 {
	n := len(data) / BytesPerSample
	if n == 0 {
		return 0
	}
	var sumSquares float64
	for i := 0; i+1 < len(data); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(data[i:]))
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(n))
}

func pcmDuration(nbytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(nbytes/BytesPerSample) * time.Second / time.Duration(sampleRate)
}
