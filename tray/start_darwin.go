//go:build darwin

package tray

import (
	"fyne.io/systray"
	"golang.design/x/hotkey/mainthread"
)

// Init starts the tray on the Cocoa main thread and returns a channel
// closed when the user picks Quit. Stop removes the icon.
func Init() <-chan struct{} {
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	done := make(chan struct{})
	mainthread.Call(func() {
		start()
		close(done)
	})
	<-done
	return quitCh
}

func Stop() {
	mainthread.Call(systray.Quit)
}
