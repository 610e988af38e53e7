//go:build !darwin

package tray

import "fyne.io/systray"

// Init registers the tray icon and returns a channel closed when the user
// picks Quit. Stop removes the icon.
func Init() <-chan struct{} {
	start, _ := systray.RunWithExternalLoop(onReady, onExit)
	start()
	return quitCh
}

func Stop() {
	systray.Quit()
}
