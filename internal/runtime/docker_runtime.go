package runtime

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// DockerClient is the subset of the moby client used by DockerRuntime.
type DockerClient interface {
	ContainerCreate(ctx context.Context, options client.ContainerCreateOptions) (client.ContainerCreateResult, error)
	ContainerStart(ctx context.Context, containerID string, options client.ContainerStartOptions) (client.ContainerStartResult, error)
	ContainerStop(ctx context.Context, containerID string, options client.ContainerStopOptions) (client.ContainerStopResult, error)
	ContainerInspect(ctx context.Context, containerID string, options client.ContainerInspectOptions) (client.ContainerInspectResult, error)
	ContainerRemove(ctx context.Context, containerID string, options client.ContainerRemoveOptions) (client.ContainerRemoveResult, error)
	ContainerList(ctx context.Context, options client.ContainerListOptions) (client.ContainerListResult, error)
	ImagePull(ctx context.Context, refStr string, options client.ImagePullOptions) (client.ImagePullResponse, error)
}

// DockerRuntime implements ContainerRuntime on top of the Docker Engine API.
type DockerRuntime struct {
	cli         DockerClient
	stopTimeout time.Duration
}

// NewDockerRuntime connects to the daemon configured by the DOCKER_* environment.
func NewDockerRuntime(stopTimeout time.Duration) (*DockerRuntime, error) {
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("error creating Docker client: %w", err)
	}
	return &DockerRuntime{cli: cli, stopTimeout: stopTimeout}, nil
}

// NewDockerRuntimeWithClient wraps an existing client. Used by tests.
func NewDockerRuntimeWithClient(cli DockerClient, stopTimeout time.Duration) *DockerRuntime {
	return &DockerRuntime{cli: cli, stopTimeout: stopTimeout}
}

// Create creates (but does not start) a container for spec. A missing image is
// pulled once before retrying.
func (d *DockerRuntime) Create(ctx context.Context, spec ContainerSpec) (string, error) {
	options, err := createOptions(spec)
	if err != nil {
		return "", err
	}

	resp, err := d.cli.ContainerCreate(ctx, options)
	if errdefs.IsNotFound(err) {
		logger.WithComponent("docker-runtime").Infof("image %s not found locally, pulling", spec.Image)
		if pullErr := d.pullImage(ctx, spec.Image); pullErr != nil {
			return "", pullErr
		}
		resp, err = d.cli.ContainerCreate(ctx, options)
	}
	if err != nil {
		return "", fmt.Errorf("error creating container from image %s: %w", spec.Image, err)
	}
	for _, w := range resp.Warnings {
		logger.WithComponent("docker-runtime").Warnf("create %s: %s", resp.ID, w)
	}
	logger.WithComponent("docker-runtime").Debugf("created container %s from image %s", resp.ID, spec.Image)
	return resp.ID, nil
}

func (d *DockerRuntime) pullImage(ctx context.Context, image string) error {
	resp, err := d.cli.ImagePull(ctx, image, client.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("error pulling image %s: %w", image, err)
	}
	defer resp.Close()

	if err := resp.Wait(ctx); err != nil {
		return fmt.Errorf("error pulling image %s: %w", image, err)
	}
	return nil
}

func (d *DockerRuntime) Start(ctx context.Context, containerID string) error {
	_, err := d.cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{})
	if err != nil {
		return fmt.Errorf("error starting container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) Stop(ctx context.Context, containerID string) error {
	options := client.ContainerStopOptions{}
	if d.stopTimeout > 0 {
		secs := int(d.stopTimeout.Seconds())
		options.Timeout = &secs
	}
	_, err := d.cli.ContainerStop(ctx, containerID, options)
	if err != nil {
		return fmt.Errorf("error stopping container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) Inspect(ctx context.Context, containerID string) (ContainerState, error) {
	inspect, err := d.cli.ContainerInspect(ctx, containerID, client.ContainerInspectOptions{})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return ContainerState{}, fmt.Errorf("container %s: %w", containerID, ErrContainerNotFound)
		}
		return ContainerState{}, fmt.Errorf("error inspecting container %s: %w", containerID, err)
	}

	state := ContainerState{ID: inspect.Container.ID}
	if inspect.Container.State != nil {
		state.Running = inspect.Container.State.Running
	}
	if ns := inspect.Container.NetworkSettings; ns != nil {
		state.NetworkSettings = &NetworkSettings{Ports: map[string][]PortBinding{}}
		for port, bindings := range ns.Ports {
			converted := make([]PortBinding, 0, len(bindings))
			for _, b := range bindings {
				converted = append(converted, PortBinding{HostIP: hostIP(b.HostIP), HostPort: b.HostPort})
			}
			state.NetworkSettings.Ports[port.String()] = converted
		}
	}
	return state, nil
}

// Remove force-removes a container. A container that is already gone is not an error.
func (d *DockerRuntime) Remove(ctx context.Context, containerID string) error {
	_, err := d.cli.ContainerRemove(ctx, containerID, client.ContainerRemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("error removing container %s: %w", containerID, err)
	}
	return nil
}

func (d *DockerRuntime) List(ctx context.Context, labels map[string]string) ([]ContainerSummary, error) {
	filters := client.Filters{}
	for k, v := range labels {
		filters.Add("label", k+"="+v)
	}

	result, err := d.cli.ContainerList(ctx, client.ContainerListOptions{All: true, Filters: filters})
	if err != nil {
		return nil, fmt.Errorf("error listing containers: %w", err)
	}

	out := make([]ContainerSummary, 0, len(result.Items))
	for _, c := range result.Items {
		out = append(out, ContainerSummary{
			ID:      c.ID,
			Image:   c.Image,
			Running: string(c.State) == "running",
			Labels:  c.Labels,
			Created: time.Unix(c.Created, 0),
		})
	}
	return out, nil
}

func createOptions(spec ContainerSpec) (client.ContainerCreateOptions, error) {
	port, err := network.ParsePort(TCPPort(spec.HTTPPort))
	if err != nil {
		return client.ContainerCreateOptions{}, fmt.Errorf("invalid HTTP port %d: %w", spec.HTTPPort, err)
	}

	return client.ContainerCreateOptions{
		Config: &container.Config{
			Image:        spec.Image,
			Env:          spec.Env,
			Labels:       spec.Labels,
			ExposedPorts: network.PortSet{port: struct{}{}},
		},
		HostConfig: &container.HostConfig{
			AutoRemove: spec.AutoRemove,
			// An empty HostPort lets the daemon pick a free host port.
			PortBindings: network.PortMap{port: []network.PortBinding{{HostPort: ""}}},
		},
	}, nil
}

func hostIP(addr netip.Addr) string {
	if !addr.IsValid() {
		return ""
	}
	return addr.String()
}
