package gate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const lookupTimeout = 500 * time.Millisecond

type systemInspector struct {
	foreground func(ctx context.Context) (Target, error)
}

// NewInspector returns the inspector for the running OS.
func NewInspector() Inspector {
	return &systemInspector{foreground: foregroundTarget}
}

func (s *systemInspector) CurrentForegroundTarget() (Target, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	return s.foreground(ctx)
}

func (s *systemInspector) ResolveProcessName(t Target) (string, error) {
	if t.PID <= 0 {
		return "", ErrNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	p, err := process.NewProcessWithContext(ctx, t.PID)
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("process %d: %w", t.PID, err)
	}
	name, err := p.NameWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("process %d name: %w", t.PID, err)
	}
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

func runLookup(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func parsePID(s string) (int32, error) {
	pid, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil || pid <= 0 {
		return 0, ErrNoForeground
	}
	return int32(pid), nil
}
