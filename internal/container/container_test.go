package container

import (
	"context"
	"errors"
	"testing"

	"github.com/bassista/go_action/internal/actiontest"
	"github.com/bassista/go_action/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRuntime = actiontest.MockRuntime

func boundState(hostIP, hostPort string) runtime.ContainerState {
	return actiontest.BoundState("abc", 8080, hostIP, hostPort)
}

func TestNew_DefaultPort(t *testing.T) {
	c := New(&MockRuntime{}, "abc", 0)
	assert.Equal(t, DefaultHTTPPort, c.HTTPPort())
	assert.Equal(t, "abc", c.ID())
}

func TestContainer_NoID(t *testing.T) {
	rt := &MockRuntime{}
	c := New(rt, "", 8080)
	ctx := context.Background()

	_, err := c.IsRunning(ctx)
	assert.ErrorIs(t, err, ErrNoContainerID)
	assert.ErrorIs(t, c.Start(ctx), ErrNoContainerID)
	assert.ErrorIs(t, c.Stop(ctx), ErrNoContainerID)
	_, err = c.HTTPURL(ctx)
	assert.ErrorIs(t, err, ErrNoContainerID)
	assert.ErrorIs(t, c.WaitHTTPPortOpen(ctx, 0, 0), ErrNoContainerID)

	rt.AssertNotCalled(t, "Inspect", mock.Anything, mock.Anything)
}

func TestContainer_IsRunning_AlwaysRequeries(t *testing.T) {
	rt := &MockRuntime{}
	c := New(rt, "abc", 8080)
	ctx := context.Background()

	rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{ID: "abc", Running: true}, nil).Once()
	rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{ID: "abc", Running: false}, nil).Once()

	running, err := c.IsRunning(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	running, err = c.IsRunning(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	rt.AssertNumberOfCalls(t, "Inspect", 2)
}

func TestContainer_IsRunning_QueryError(t *testing.T) {
	rt := &MockRuntime{}
	c := New(rt, "abc", 8080)
	ctx := context.Background()
	cause := errors.New("daemon unreachable")

	rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{}, cause)

	_, err := c.IsRunning(ctx)
	var queryErr *RuntimeQueryError
	require.ErrorAs(t, err, &queryErr)
	assert.Equal(t, "abc", queryErr.ContainerID)
	assert.ErrorIs(t, err, cause)
}

func TestContainer_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("already running is a no-op", func(t *testing.T) {
		rt := &MockRuntime{}
		rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{Running: true}, nil)

		assert.NoError(t, New(rt, "abc", 8080).Start(ctx))
		rt.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
	})

	t.Run("stopped container is started", func(t *testing.T) {
		rt := &MockRuntime{}
		rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{Running: false}, nil)
		rt.On("Start", ctx, "abc").Return(nil)

		assert.NoError(t, New(rt, "abc", 8080).Start(ctx))
		rt.AssertExpectations(t)
	})

	t.Run("runtime failure is a transition error", func(t *testing.T) {
		rt := &MockRuntime{}
		rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{Running: false}, nil)
		rt.On("Start", ctx, "abc").Return(errors.New("no such image"))

		err := New(rt, "abc", 8080).Start(ctx)
		var transitionErr *RuntimeTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "start", transitionErr.Op)
		assert.Contains(t, err.Error(), "no such image")
	})
}

func TestContainer_Stop(t *testing.T) {
	ctx := context.Background()

	t.Run("already stopped is a no-op", func(t *testing.T) {
		rt := &MockRuntime{}
		rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{Running: false}, nil)

		c := New(rt, "abc", 8080)
		assert.NoError(t, c.Stop(ctx))
		assert.NoError(t, c.Stop(ctx))
		rt.AssertNotCalled(t, "Stop", mock.Anything, mock.Anything)
	})

	t.Run("running container is stopped", func(t *testing.T) {
		rt := &MockRuntime{}
		rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{Running: true}, nil)
		rt.On("Stop", ctx, "abc").Return(nil)

		assert.NoError(t, New(rt, "abc", 8080).Stop(ctx))
		rt.AssertExpectations(t)
	})

	t.Run("runtime failure is a transition error", func(t *testing.T) {
		rt := &MockRuntime{}
		rt.On("Inspect", ctx, "abc").Return(runtime.ContainerState{Running: true}, nil)
		rt.On("Stop", ctx, "abc").Return(errors.New("timeout"))

		err := New(rt, "abc", 8080).Stop(ctx)
		var transitionErr *RuntimeTransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "stop", transitionErr.Op)
	})
}

func TestContainer_HTTPURL(t *testing.T) {
	tests := []struct {
		name     string
		hostIP   string
		expected string
	}{
		{"wildcard ipv4 becomes loopback", "0.0.0.0", "http://127.0.0.1:32770"},
		{"wildcard ipv6 becomes loopback", "::", "http://127.0.0.1:32770"},
		{"empty host becomes loopback", "", "http://127.0.0.1:32770"},
		{"routable address is kept", "1.0.0.0", "http://1.0.0.0:32770"},
		{"ipv6 address is bracketed", "fd00::1", "http://[fd00::1]:32770"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &MockRuntime{}
			rt.On("Inspect", mock.Anything, "abc").Return(boundState(tt.hostIP, "32770"), nil)

			url, err := New(rt, "abc", 8080).HTTPURL(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestContainer_HTTPPortMapping(t *testing.T) {
	rt := &MockRuntime{}
	rt.On("Inspect", mock.Anything, "abc").Return(boundState("0.0.0.0", "32770"), nil)

	mapping, err := New(rt, "abc", 8080).HTTPPortMapping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PortMapping{HostIP: "0.0.0.0", HostPort: "32770"}, mapping)
}

func TestPortMappingFromState_NotExposed(t *testing.T) {
	tests := []struct {
		name  string
		state runtime.ContainerState
	}{
		{"missing port key", runtime.ContainerState{NetworkSettings: &runtime.NetworkSettings{
			Ports: map[string][]runtime.PortBinding{"9090/tcp": {{HostIP: "0.0.0.0", HostPort: "1"}}},
		}}},
		{"empty binding list", runtime.ContainerState{NetworkSettings: &runtime.NetworkSettings{
			Ports: map[string][]runtime.PortBinding{"8080/tcp": {}},
		}}},
		{"no network settings", runtime.ContainerState{ID: "abc", Running: true}},
		{"empty state", runtime.ContainerState{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PortMappingFromState(tt.state, 8080)
			assert.ErrorIs(t, err, ErrPortNotExposed)
		})
	}
}
