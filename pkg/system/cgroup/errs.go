package cgroup

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedMode indicates an operation that needs controller paths
	// was invoked while the cgroup mode is hybrid or disabled.
	ErrUnsupportedMode = errors.New("cgroup: unsupported cgroup configuration")

	// ErrControllerNotFound indicates a lookup for a controller that does
	// not exist in the calling process's cgroup.
	ErrControllerNotFound = errors.New("cgroup: failed to find controller")
)

func errControllerKey(key string) error {
	return fmt.Errorf("%w: %q", ErrControllerNotFound, key)
}
