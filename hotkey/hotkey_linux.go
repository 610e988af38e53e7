//go:build linux

package hotkey

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	evKey      = 1
	keyPress   = 1
	keyRelease = 0
)

// input_event is 24 bytes on 64-bit Linux:
// timeval (16 bytes) + type (2) + code (2) + value (4)
const inputEventSize = 24

var evdevCodes = map[string]uint16{
	"escape": 1, "space": 57, "capslock": 58, "scrolllock": 70, "pause": 119,
	"insert": 110, "menu": 127,
	"leftctrl": 29, "rightctrl": 97, "leftshift": 42, "rightshift": 54,
	"leftalt": 56, "rightalt": 100, "leftmeta": 125, "rightmeta": 126,
	"f1": 59, "f2": 60, "f3": 61, "f4": 62, "f5": 63, "f6": 64,
	"f7": 65, "f8": 66, "f9": 67, "f10": 68, "f11": 87, "f12": 88,
}

func supported(name string) bool {
	_, ok := evdevCodes[name]
	return ok
}

type evdevSource struct {
	watch  map[uint16]string
	events chan KeyEvent
	files  []*os.File
	stop   chan struct{}
	once   sync.Once
}

// New creates a key source that reads /dev/input directly.
// Requires the user to be in the 'input' group.
func New(keys ...string) (Source, error) {
	watch := make(map[uint16]string, len(keys))
	for _, n := range watchedKeys(keys) {
		code, ok := evdevCodes[n]
		if !ok {
			return nil, fmt.Errorf("key %q is not supported on this platform", n)
		}
		watch[code] = n
	}
	return &evdevSource{
		watch:  watch,
		events: make(chan KeyEvent, eventBuffer),
	}, nil
}

func (s *evdevSource) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return fmt.Errorf("no keyboard devices found (is user in 'input' group?)")
	}

	s.stop = make(chan struct{})

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		s.files = append(s.files, f)
		go s.readEvents(f)
	}

	if len(s.files) == 0 {
		return fmt.Errorf("could not open any keyboard device (run: sudo usermod -aG input $USER, then re-login)")
	}

	return nil
}

func (s *evdevSource) readEvents(f *os.File) {
	buf := make([]byte, inputEventSize*16)

	for {
		select {
		case <-s.stop:
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil {
			return
		}

		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			evType := binary.LittleEndian.Uint16(buf[i+16:])
			evCode := binary.LittleEndian.Uint16(buf[i+18:])
			evValue := int32(binary.LittleEndian.Uint32(buf[i+20:]))

			if evType != evKey {
				continue
			}
			name, ok := s.watch[evCode]
			if !ok {
				continue
			}

			// autorepeat (value 2) is not a new press
			var kind Kind
			switch evValue {
			case keyPress:
				kind = Press
			case keyRelease:
				kind = Release
			default:
				continue
			}

			select {
			case s.events <- KeyEvent{Key: name, At: time.Now(), Kind: kind}:
			case <-s.stop:
				return
			}
		}
	}
}

func (s *evdevSource) Unregister() {
	s.once.Do(func() {
		if s.stop != nil {
			close(s.stop)
		}
		for _, f := range s.files {
			f.Close()
		}
	})
}

func (s *evdevSource) Events() <-chan KeyEvent {
	return s.events
}

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}

	var keyboards []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "event") {
			continue
		}
		path := filepath.Join("/dev/input", e.Name())
		if isKeyboard(e.Name()) {
			keyboards = append(keyboards, path)
		}
	}
	return keyboards, nil
}

func isKeyboard(eventName string) bool {
	capsPath := filepath.Join("/sys/class/input", eventName, "device", "capabilities", "key")
	data, err := os.ReadFile(capsPath)
	if err != nil {
		return false
	}
	// Real keyboards have long key capability bitmaps
	caps := strings.TrimSpace(string(data))
	return len(caps) > 10
}
