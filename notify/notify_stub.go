//go:build !linux && !darwin

package notify

func newBackend() (backend, error) { return nil, ErrUnsupported }
