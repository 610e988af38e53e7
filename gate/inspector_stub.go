//go:build !linux && !darwin && !windows

package gate

import "context"

func foregroundTarget(context.Context) (Target, error) {
	return Target{}, ErrNoForeground
}
