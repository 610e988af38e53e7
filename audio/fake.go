package audio

import (
	"errors"
	"sync"
)

// FakeContext hands out FakeCaptures that tests drive by hand.
type FakeContext struct {
	mu       sync.Mutex
	devices  []DeviceInfo
	captures []*FakeCapture
	startErr error
}

func NewFakeContext(devices ...DeviceInfo) *FakeContext {
	return &FakeContext{devices: devices}
}

// FailStart makes every later capture fail to start.
func (f *FakeContext) FailStart(err error) {
	f.mu.Lock()
	f.startErr = err
	f.mu.Unlock()
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) { return f.devices, nil }
func (f *FakeContext) Close()                         {}

func (f *FakeContext) NewCapture(device *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &FakeCapture{info: device, startErr: f.startErr}
	f.captures = append(f.captures, c)
	return c, nil
}

// Captures returns every capture created so far.
func (f *FakeContext) Captures() []*FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeCapture(nil), f.captures...)
}

type FakeCapture struct {
	info     *DeviceInfo
	startErr error

	mu      sync.Mutex
	cb      DataCallback
	started bool
	closed  bool
}

var errFakeClosed = errors.New("fake capture closed")

// Push delivers PCM as the audio thread would.
func (f *FakeCapture) Push(pcm []byte) error {
	f.mu.Lock()
	cb, closed := f.cb, f.closed
	f.mu.Unlock()
	if closed {
		return errFakeClosed
	}
	if cb != nil {
		cb(pcm, uint32(len(pcm)/BytesPerSample))
	}
	return nil
}

func (f *FakeCapture) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *FakeCapture) Stop() {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
}

func (f *FakeCapture) Close() {
	f.mu.Lock()
	f.started = false
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string {
	if f.info != nil {
		return f.info.Name
	}
	return "fake"
}

func (f *FakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FakeCapture) Started() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.started
}
