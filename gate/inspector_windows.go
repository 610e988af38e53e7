//go:build windows

package gate

import (
	"context"

	"golang.org/x/sys/windows"
)

func foregroundTarget(_ context.Context) (Target, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return Target{}, ErrNoForeground
	}
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
		return Target{Window: uint64(hwnd)}, ErrNoForeground
	}
	return Target{PID: int32(pid), Window: uint64(hwnd)}, nil
}
