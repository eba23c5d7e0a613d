package container

import (
	"errors"
	"fmt"
)

var (
	// ErrNoContainerID is returned by every operation on a handle that was never given an id.
	ErrNoContainerID = errors.New("container has no id")
	// ErrNotRunning is returned when readiness is awaited on a stopped container.
	ErrNotRunning = errors.New("container is not running")
	// ErrPortNotExposed covers a missing port key, an empty binding list and absent network settings.
	ErrPortNotExposed = errors.New("exposed container ports do not include HTTP port")
	// ErrReadinessTimeout is returned when the HTTP server did not answer within the wait budget.
	ErrReadinessTimeout = errors.New("timed out waiting for container HTTP port")
)

// RuntimeQueryError wraps a runtime failure while reading container state.
type RuntimeQueryError struct {
	ContainerID string
	Err         error
}

func (e *RuntimeQueryError) Error() string {
	return fmt.Sprintf("query container %s: %v", e.ContainerID, e.Err)
}

func (e *RuntimeQueryError) Unwrap() error { return e.Err }

// RuntimeTransitionError wraps a runtime failure while changing container state.
// Op is the attempted transition ("create", "start", "stop", "remove").
type RuntimeTransitionError struct {
	Op          string
	ContainerID string
	Err         error
}

func (e *RuntimeTransitionError) Error() string {
	if e.ContainerID == "" {
		return fmt.Sprintf("%s container: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s container %s: %v", e.Op, e.ContainerID, e.Err)
}

func (e *RuntimeTransitionError) Unwrap() error { return e.Err }
