package container

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/bassista/go_action/internal/runtime"
)

// DefaultHTTPPort is the port the action server listens on inside the container.
const DefaultHTTPPort = 8080

// Container is a handle on one runtime container. Running state is never
// cached: every call re-queries the runtime.
type Container struct {
	rt         runtime.ContainerRuntime
	id         string
	httpPort   int
	httpClient *http.Client
}

// Option configures a Container.
type Option func(*Container)

// WithHTTPClient sets the client used for readiness probes.
func WithHTTPClient(c *http.Client) Option {
	return func(ct *Container) {
		if c != nil {
			ct.httpClient = c
		}
	}
}

// New returns a handle on the container id managed by rt. A non-positive
// httpPort selects DefaultHTTPPort.
func New(rt runtime.ContainerRuntime, id string, httpPort int, opts ...Option) *Container {
	if httpPort <= 0 {
		httpPort = DefaultHTTPPort
	}
	c := &Container{
		rt:         rt,
		id:         id,
		httpPort:   httpPort,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Container) ID() string { return c.id }

func (c *Container) HTTPPort() int { return c.httpPort }

// IsRunning reports whether the runtime currently has the container running.
func (c *Container) IsRunning(ctx context.Context) (bool, error) {
	state, err := c.State(ctx)
	if err != nil {
		return false, err
	}
	return state.Running, nil
}

// Start moves the container to running. Starting a running container is a no-op.
func (c *Container) Start(ctx context.Context) error {
	return c.changeRunningState(ctx, true)
}

// Stop moves the container to stopped. Stopping a stopped container is a no-op.
func (c *Container) Stop(ctx context.Context) error {
	return c.changeRunningState(ctx, false)
}

func (c *Container) changeRunningState(ctx context.Context, running bool) error {
	current, err := c.IsRunning(ctx)
	if err != nil {
		return err
	}
	if current == running {
		return nil
	}

	if running {
		if err := c.rt.Start(ctx, c.id); err != nil {
			return &RuntimeTransitionError{Op: "start", ContainerID: c.id, Err: err}
		}
		return nil
	}
	if err := c.rt.Stop(ctx, c.id); err != nil {
		return &RuntimeTransitionError{Op: "stop", ContainerID: c.id, Err: err}
	}
	return nil
}

// State returns the raw inspection record.
func (c *Container) State(ctx context.Context) (runtime.ContainerState, error) {
	if c.id == "" {
		return runtime.ContainerState{}, ErrNoContainerID
	}
	state, err := c.rt.Inspect(ctx, c.id)
	if err != nil {
		return runtime.ContainerState{}, &RuntimeQueryError{ContainerID: c.id, Err: err}
	}
	return state, nil
}

// HTTPPortMapping returns the host binding of the internal HTTP port.
func (c *Container) HTTPPortMapping(ctx context.Context) (PortMapping, error) {
	state, err := c.State(ctx)
	if err != nil {
		return PortMapping{}, err
	}
	return PortMappingFromState(state, c.httpPort)
}

// HTTPURL returns the base URL of the action server as seen from the host.
func (c *Container) HTTPURL(ctx context.Context) (string, error) {
	mapping, err := c.HTTPPortMapping(ctx)
	if err != nil {
		return "", err
	}
	return mapping.URL(), nil
}

// PortMapping is the host address bound to a container port.
type PortMapping struct {
	HostIP   string
	HostPort string
}

// PortMappingFromState extracts the first binding of httpPort from state.
func PortMappingFromState(state runtime.ContainerState, httpPort int) (PortMapping, error) {
	if state.NetworkSettings == nil || state.NetworkSettings.Ports == nil {
		return PortMapping{}, ErrPortNotExposed
	}
	bindings := state.NetworkSettings.Ports[runtime.TCPPort(httpPort)]
	if len(bindings) == 0 {
		return PortMapping{}, ErrPortNotExposed
	}
	return PortMapping{HostIP: bindings[0].HostIP, HostPort: bindings[0].HostPort}, nil
}

// URL builds an http URL. Wildcard bind addresses are replaced by loopback.
func (m PortMapping) URL() string {
	host := m.HostIP
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, m.HostPort)
}
