package runtime

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/bassista/go_action/internal/logger"
)

type memoryContainer struct {
	spec    ContainerSpec
	running bool
	created time.Time
}

// MemoryRuntime is a ContainerRuntime that keeps container state in memory.
// Every running container reports the same host binding, so an action server
// listening on that address (an httptest server, a runtime started by hand)
// stands in for the container.
type MemoryRuntime struct {
	mu         sync.RWMutex
	containers map[string]*memoryContainer
	seq        int
	hostIP     string
	hostPort   string
	now        func() time.Time
}

// NewMemoryRuntime creates a runtime whose containers bind to endpoint ("host:port").
// An empty endpoint yields containers without port bindings.
func NewMemoryRuntime(endpoint string) (*MemoryRuntime, error) {
	mr := &MemoryRuntime{containers: map[string]*memoryContainer{}, now: time.Now}
	if endpoint == "" {
		return mr, nil
	}
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid memory runtime endpoint %q: %w", endpoint, err)
	}
	mr.hostIP, mr.hostPort = host, port
	return mr, nil
}

func (m *MemoryRuntime) Create(_ context.Context, spec ContainerSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("memory-%d", m.seq)
	m.containers[id] = &memoryContainer{spec: spec, created: m.now()}
	logger.WithComponent("memory-runtime").Debugf("created container %s from image %s", id, spec.Image)
	return id, nil
}

func (m *MemoryRuntime) Start(_ context.Context, containerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.containers[containerID]
	if !ok {
		return fmt.Errorf("container %s: %w", containerID, ErrContainerNotFound)
	}
	c.running = true
	logger.WithComponent("memory-runtime").Debugf("started container %s", containerID)
	return nil
}

func (m *MemoryRuntime) Stop(_ context.Context, containerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.containers[containerID]
	if !ok {
		return fmt.Errorf("container %s: %w", containerID, ErrContainerNotFound)
	}
	c.running = false
	if c.spec.AutoRemove {
		delete(m.containers, containerID)
	}
	logger.WithComponent("memory-runtime").Debugf("stopped container %s", containerID)
	return nil
}

func (m *MemoryRuntime) Inspect(_ context.Context, containerID string) (ContainerState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[containerID]
	if !ok {
		return ContainerState{}, fmt.Errorf("container %s: %w", containerID, ErrContainerNotFound)
	}

	state := ContainerState{ID: containerID, Running: c.running}
	if c.running && m.hostPort != "" {
		state.NetworkSettings = &NetworkSettings{Ports: map[string][]PortBinding{
			TCPPort(c.spec.HTTPPort): {{HostIP: m.hostIP, HostPort: m.hostPort}},
		}}
	}
	return state, nil
}

func (m *MemoryRuntime) Remove(_ context.Context, containerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.containers, containerID)
	return nil
}

func (m *MemoryRuntime) List(_ context.Context, labels map[string]string) ([]ContainerSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ContainerSummary
	for id, c := range m.containers {
		if !hasLabels(c.spec.Labels, labels) {
			continue
		}
		out = append(out, ContainerSummary{
			ID:      id,
			Image:   c.spec.Image,
			Running: c.running,
			Labels:  c.spec.Labels,
			Created: c.created,
		})
	}
	return out, nil
}

// SetClock replaces the creation clock. Used by tests.
func (m *MemoryRuntime) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func hasLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

// Containers returns the ids of the containers currently known to the runtime.
func (m *MemoryRuntime) Containers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.containers))
	for id := range m.containers {
		ids = append(ids, id)
	}
	return ids
}

// Spec returns the spec a container was created with.
func (m *MemoryRuntime) Spec(containerID string) (ContainerSpec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.containers[containerID]
	if !ok {
		return ContainerSpec{}, false
	}
	return c.spec, true
}
