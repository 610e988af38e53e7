//go:build !linux && !darwin && !windows

package paste

import "errors"

var errUnsupported = errors.New("keystroke injection is not supported on this platform")

func Init() error { return errUnsupported }

func Send() error { return errUnsupported }
