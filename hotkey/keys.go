package hotkey

import (
	"fmt"
	"strings"
)

var aliases = map[string]string{
	"ctrl":    "leftctrl",
	"control": "leftctrl",
	"rctrl":   "rightctrl",
	"alt":     "leftalt",
	"ralt":    "rightalt",
	"altgr":   "rightalt",
	"shift":   "leftshift",
	"rshift":  "rightshift",
	"esc":     "escape",
	"caps":    "capslock",
	"scroll":  "scrolllock",
	"super":   "leftmeta",
	"cmd":     "leftmeta",
}

// Normalize lower-cases a key name and resolves common aliases, e.g. "Ctrl" -> "leftctrl".
func Normalize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(n)
	if a, ok := aliases[n]; ok {
		return a
	}
	return n
}

// Validate reports whether the key can be watched on this platform.
func Validate(name string) error {
	n := Normalize(name)
	if n == "" {
		return fmt.Errorf("empty key name")
	}
	if !supported(n) {
		return fmt.Errorf("key %q is not supported on this platform", name)
	}
	return nil
}

// watchedKeys normalizes keys and drops empty names and duplicates. An
// unset optional key such as the quit key is simply not watched.
func watchedKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		n := Normalize(k)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
