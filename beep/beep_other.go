//go:build !linux

package beep

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
)

var (
	malgoCtx  *malgo.AllocatedContext
	device    *malgo.Device
	soundOnce sync.Once

	// Playback state, read from the audio callback
	current atomic.Pointer[[]byte]
	playPos atomic.Uint32
	playMu  sync.Mutex
)

func Init() {
	soundOnce.Do(initSound)
}

func initSound() {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return
	}
	malgoCtx = ctx
	if err := initDevice(); err != nil {
		malgoCtx.Uninit()
		malgoCtx.Free()
		malgoCtx = nil
	}
}

func initDevice() error {
	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.Playback.Format = malgo.FormatS16
	config.Playback.Channels = 1
	config.SampleRate = sampleRate

	var err error
	device, err = malgo.InitDevice(malgoCtx.Context, config, malgo.DeviceCallbacks{Data: dataCallback})
	return err
}

func dataCallback(out, _ []byte, frameCount uint32) {
	want := frameCount * 2
	samples := current.Load()
	var n uint32
	if samples != nil {
		pos := playPos.Load()
		if remaining := uint32(len(*samples)) - pos; remaining > 0 {
			n = min(want, remaining)
			copy(out[:n], (*samples)[pos:pos+n])
			playPos.Store(pos + n)
		} else {
			current.Store(nil)
		}
	}
	clear(out[n:want])
}

func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func play(samples []int16) {
	soundOnce.Do(initSound)
	if malgoCtx == nil || len(samples) == 0 {
		return
	}
	data := toBytes(samples)

	playMu.Lock()
	defer playMu.Unlock()
	if device == nil {
		return
	}

	device.Stop()
	playPos.Store(0)
	current.Store(&data)

	if err := device.Start(); err != nil {
		// The device can go stale across sleep/wake; recreate it once.
		device.Uninit()
		if err := initDevice(); err != nil {
			current.Store(nil)
			return
		}
		if err := device.Start(); err != nil {
			current.Store(nil)
		}
	}
}
