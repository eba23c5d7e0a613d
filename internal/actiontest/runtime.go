package actiontest

import (
	"context"

	"github.com/bassista/go_action/internal/runtime"
	"github.com/stretchr/testify/mock"
)

// MockRuntime is a testify mock of runtime.ContainerRuntime.
type MockRuntime struct {
	mock.Mock
}

func (m *MockRuntime) Create(ctx context.Context, spec runtime.ContainerSpec) (string, error) {
	args := m.Called(ctx, spec)
	return args.String(0), args.Error(1)
}

func (m *MockRuntime) Start(ctx context.Context, containerID string) error {
	return m.Called(ctx, containerID).Error(0)
}

func (m *MockRuntime) Stop(ctx context.Context, containerID string) error {
	return m.Called(ctx, containerID).Error(0)
}

func (m *MockRuntime) Inspect(ctx context.Context, containerID string) (runtime.ContainerState, error) {
	args := m.Called(ctx, containerID)
	return args.Get(0).(runtime.ContainerState), args.Error(1)
}

func (m *MockRuntime) Remove(ctx context.Context, containerID string) error {
	return m.Called(ctx, containerID).Error(0)
}

func (m *MockRuntime) List(ctx context.Context, labels map[string]string) ([]runtime.ContainerSummary, error) {
	args := m.Called(ctx, labels)
	if list := args.Get(0); list != nil {
		return list.([]runtime.ContainerSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// BoundState is a running container state whose port binds to hostIP:hostPort.
func BoundState(id string, httpPort int, hostIP, hostPort string) runtime.ContainerState {
	return runtime.ContainerState{
		ID:      id,
		Running: true,
		NetworkSettings: &runtime.NetworkSettings{Ports: map[string][]runtime.PortBinding{
			runtime.TCPPort(httpPort): {{HostIP: hostIP, HostPort: hostPort}},
		}},
	}
}
