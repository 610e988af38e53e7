//go:build linux

package paste

import (
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
)

// uinput devices need a moment before the compositor routes their events.
const uinputSettle = 2 * time.Second

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil {
			time.Sleep(uinputSettle)
		}
	})
	return kbErr
}

// Send presses Ctrl+Shift+V, the paste binding shared by Linux terminals.
func Send() error {
	if err := Init(); err != nil {
		return err
	}
	kb.SetKeys(keybd_event.VK_V)
	kb.HasCTRL(true)
	kb.HasSHIFT(true)
	return kb.Launching()
}
