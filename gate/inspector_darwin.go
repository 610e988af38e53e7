//go:build darwin

package gate

import "context"

const frontmostScript = `tell application "System Events" to get unix id of first process whose frontmost is true`

func foregroundTarget(ctx context.Context) (Target, error) {
	out, err := runLookup(ctx, "osascript", "-e", frontmostScript)
	if err != nil {
		return Target{}, ErrNoForeground
	}
	pid, err := parsePID(out)
	if err != nil {
		return Target{}, err
	}
	// Cocoa does not expose a stable window id here; the pid identifies the target.
	return Target{PID: pid}, nil
}
