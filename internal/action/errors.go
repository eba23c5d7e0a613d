package action

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned by Stop, Source and Invoke on a session without a container.
	ErrNotStarted = errors.New("action runtime not started")
	// ErrAlreadyStarted is returned by Start when a container is already associated.
	ErrAlreadyStarted = errors.New("action runtime already running")
)

// ApplicationError is a non-2xx answer from the action server. Message carries
// the "error" field of the response body, or the raw body when it has none.
type ApplicationError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed with status %d", e.Endpoint, e.StatusCode)
	}
	return e.Message
}
