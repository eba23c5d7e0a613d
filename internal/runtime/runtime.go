package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// LabelManaged marks containers created by go-action.
const LabelManaged = "go-action.managed"

// LabelActivation carries the id of the activation that owns a container.
const LabelActivation = "go-action.activation"

// ErrContainerNotFound is returned when the runtime has no container with the requested id.
var ErrContainerNotFound = errors.New("container not found")

// ContainerRuntime abstracts the container operations needed to host one action container.
type ContainerRuntime interface {
	Create(ctx context.Context, spec ContainerSpec) (string, error)
	Start(ctx context.Context, containerID string) error
	Stop(ctx context.Context, containerID string) error
	Inspect(ctx context.Context, containerID string) (ContainerState, error)
	Remove(ctx context.Context, containerID string) error
	// List returns all containers, running or not, carrying every label in labels.
	List(ctx context.Context, labels map[string]string) ([]ContainerSummary, error)
}

// ContainerSummary is one entry of List.
type ContainerSummary struct {
	ID      string
	Image   string
	Running bool
	Labels  map[string]string
	Created time.Time
}

// ContainerSpec describes the container to create for an action.
// HTTPPort is exposed and bound to a host port chosen by the runtime.
type ContainerSpec struct {
	Image      string
	Env        []string
	HTTPPort   int
	AutoRemove bool
	Labels     map[string]string
}

// ContainerState is the inspection record of a container.
type ContainerState struct {
	ID              string
	Running         bool
	NetworkSettings *NetworkSettings
}

// NetworkSettings holds the host bindings per container port, keyed like "8080/tcp".
type NetworkSettings struct {
	Ports map[string][]PortBinding
}

// PortBinding is one host address bound to a container port.
type PortBinding struct {
	HostIP   string
	HostPort string
}

// TCPPort returns the port key used in NetworkSettings.Ports for a TCP port.
func TCPPort(port int) string {
	return fmt.Sprintf("%d/tcp", port)
}
