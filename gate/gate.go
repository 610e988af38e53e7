// Package gate decides whether dictated text may be typed into the window
// that currently has input focus. Every decision re-reads the foreground
// window; nothing is cached, and any lookup failure denies.
package gate

import (
	"errors"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	ErrNoForeground = errors.New("no focused window")
	ErrNotFound     = errors.New("process not found")
)

// Target identifies the focused window and the process owning it.
type Target struct {
	PID    int32
	Window uint64
}

// Inspector queries the window system and process table.
type Inspector interface {
	CurrentForegroundTarget() (Target, error)
	ResolveProcessName(t Target) (string, error)
}

// Decision is the outcome of a foreground check, kept for logging.
type Decision struct {
	Allowed bool
	Process string
	Reason  string
}

type Gate struct {
	inspector Inspector
	allow     map[string]struct{}
}

func New(inspector Inspector, allowlist []string) *Gate {
	allow := make(map[string]struct{}, len(allowlist))
	for _, name := range allowlist {
		if n := normalize(name); n != "" {
			allow[n] = struct{}{}
		}
	}
	return &Gate{inspector: inspector, allow: allow}
}

// Permit reports whether text may be injected into t.
func (g *Gate) Permit(t Target) bool {
	return g.check(t).Allowed
}

// PermitForeground looks up the focused window now and checks it.
func (g *Gate) PermitForeground() Decision {
	t, err := g.inspector.CurrentForegroundTarget()
	if err != nil {
		return Decision{Reason: err.Error()}
	}
	return g.check(t)
}

func (g *Gate) check(t Target) Decision {
	name, err := g.inspector.ResolveProcessName(t)
	if err != nil {
		return Decision{Reason: err.Error()}
	}
	if _, ok := g.allow[normalize(name)]; !ok {
		return Decision{Process: name, Reason: "not in allowlist"}
	}
	return Decision{Allowed: true, Process: name}
}

func normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(filepath.Base(name)))
	if n == "." {
		return ""
	}
	return strings.TrimSuffix(n, ".exe")
}

// DefaultAllowlist returns the terminal emulators known on the running OS.
func DefaultAllowlist() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{"cmd.exe", "powershell.exe", "pwsh.exe", "WindowsTerminal.exe", "OpenConsole.exe", "wezterm-gui.exe", "alacritty.exe"}
	case "darwin":
		return []string{"Terminal", "iTerm2", "Alacritty", "kitty", "WezTerm", "wezterm-gui", "Ghostty"}
	default:
		return []string{
			"gnome-terminal-server", "konsole", "xterm", "uxterm", "alacritty", "kitty",
			"wezterm-gui", "foot", "tilix", "terminator", "xfce4-terminal", "urxvt",
			"st", "ghostty", "kgx", "qterminal", "lxterminal", "mate-terminal",
		}
	}
}
