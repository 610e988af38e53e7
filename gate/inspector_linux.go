//go:build linux

package gate

import (
	"context"
	"strconv"
)

// foregroundTarget asks X11 (or XWayland) for the active window via xdotool.
func foregroundTarget(ctx context.Context) (Target, error) {
	win, err := runLookup(ctx, "xdotool", "getactivewindow")
	if err != nil || win == "" {
		return Target{}, ErrNoForeground
	}
	id, err := strconv.ParseUint(win, 10, 64)
	if err != nil || id == 0 {
		return Target{}, ErrNoForeground
	}
	out, err := runLookup(ctx, "xdotool", "getwindowpid", win)
	if err != nil {
		return Target{Window: id}, ErrNoForeground
	}
	pid, err := parsePID(out)
	if err != nil {
		return Target{Window: id}, err
	}
	return Target{PID: pid, Window: id}, nil
}
