package runtime

import (
	"fmt"
	"time"
)

const (
	RuntimeTypeDocker = "docker"
	RuntimeTypeMemory = "memory"
)

// NewRuntimeFromConfig creates a ContainerRuntime based on the runtime type.
// "docker" (default) talks to the Docker daemon; "memory" binds every container
// to memoryEndpoint.
func NewRuntimeFromConfig(runtimeType string, memoryEndpoint string, stopTimeout time.Duration) (ContainerRuntime, error) {
	switch runtimeType {
	case RuntimeTypeMemory:
		return NewMemoryRuntime(memoryEndpoint)
	case RuntimeTypeDocker, "":
		return NewDockerRuntime(stopTimeout)
	default:
		return nil, fmt.Errorf("unknown runtime type: %s (supported: %s, %s)", runtimeType, RuntimeTypeDocker, RuntimeTypeMemory)
	}
}
