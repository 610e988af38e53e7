//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	opts, code, exit := parseArgs(os.Args[1:], os.Stdout, os.Stderr)
	if exit {
		os.Exit(code)
	}
	// Global hotkeys and the tray need the OS main thread.
	mainthread.Init(func() { code = run(opts) })
	os.Exit(code)
}
