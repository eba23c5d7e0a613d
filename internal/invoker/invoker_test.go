package invoker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bassista/go_action/internal/action"
	"github.com/bassista/go_action/internal/actiontest"
	"github.com/bassista/go_action/internal/container"
	"github.com/bassista/go_action/internal/invocation"
	"github.com/bassista/go_action/internal/metrics"
	"github.com/bassista/go_action/internal/platform"
	"github.com/bassista/go_action/internal/repository"
	"github.com/bassista/go_action/internal/runtime"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	action *platform.Action
	err    error
}

func (s stubFetcher) GetAction(_ context.Context, _ string) (*platform.Action, error) {
	return s.action, s.err
}

type fixture struct {
	srv     *actiontest.Server
	rt      *runtime.MemoryRuntime
	repo    *repository.JSONRepository
	metrics *metrics.Metrics
	inv     *Invoker
}

func sessionConfig() action.Config {
	return action.Config{
		Image:        "test/runtime",
		HTTPPort:     8080,
		PollInterval: 5 * time.Millisecond,
		MaxWait:      time.Second,
	}
}

func newFixture(t *testing.T, creds platform.Credentials, fetcher invocation.ActionFetcher) *fixture {
	t.Helper()
	srv := actiontest.NewServer()
	t.Cleanup(srv.Close)
	return newFixtureAt(t, srv, srv.Endpoint(), creds, fetcher)
}

func newFixtureAt(t *testing.T, srv *actiontest.Server, endpoint string, creds platform.Credentials, fetcher invocation.ActionFetcher) *fixture {
	t.Helper()
	rt, err := runtime.NewMemoryRuntime(endpoint)
	require.NoError(t, err)
	repo, err := repository.NewJSONRepository(filepath.Join(t.TempDir(), "activations.json"), 10)
	require.NoError(t, err)
	m := metrics.New()

	builder := invocation.NewBuilder([]string{".js"}, fetcher)
	return &fixture{
		srv:     srv,
		rt:      rt,
		repo:    repo,
		metrics: m,
		inv:     New(rt, builder, repo, m, creds, sessionConfig()),
	}
}

func writeAction(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hello.js")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func counterValue(t *testing.T, m *metrics.Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, metric := range f.GetMetric() {
			if matches(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(metric *dto.Metric, labels map[string]string) bool {
	found := 0
	for _, lp := range metric.GetLabel() {
		if want, ok := labels[lp.GetName()]; ok {
			if want != lp.GetValue() {
				return false
			}
			found++
		}
	}
	return found == len(labels)
}

func TestInvoker_InvokeLocalFile(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)
	path := writeAction(t, "function main(p) { return p }")
	ctx := context.Background()

	act, err := f.inv.Invoke(ctx, path, []string{"value=3", "name=world"})
	require.NoError(t, err)

	assert.Equal(t, repository.StatusSuccess, act.Status)
	assert.Equal(t, path, act.Action)
	assert.Equal(t, invocation.KindLocal, act.Kind)
	assert.NotEmpty(t, act.ActivationID)
	assert.NotEmpty(t, act.ContainerID)
	assert.Equal(t, map[string]any{"value": float64(3), "name": "world"}, act.Result)
	assert.Equal(t, map[string]any{"value": float64(3), "name": "world"}, act.Parameters)
	assert.False(t, act.End.Before(act.Start))
	assert.Equal(t, "function main(p) { return p }", f.srv.Code())

	spec, ok := f.rt.Spec(act.ContainerID)
	require.True(t, ok)
	assert.Equal(t, "test/runtime", spec.Image)
	assert.Equal(t, "true", spec.Labels[runtime.LabelManaged])
	assert.Equal(t, act.ActivationID, spec.Labels[runtime.LabelActivation])
	assert.Empty(t, spec.Env)

	state, err := f.rt.Inspect(ctx, act.ContainerID)
	require.NoError(t, err)
	assert.False(t, state.Running, "container must be stopped after the invocation")

	stored, err := f.repo.Get(ctx, act.ActivationID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusSuccess, stored.Status)

	assert.Equal(t, 1.0, counterValue(t, f.metrics, "go_action_invocations_total",
		map[string]string{"kind": invocation.KindLocal, "status": repository.StatusSuccess}))
}

func TestInvoker_InjectsCredentials(t *testing.T) {
	creds := platform.Credentials{APIHost: "openwhisk.example.com", AuthKey: "user:secret"}
	f := newFixture(t, creds, stubFetcher{})
	path := writeAction(t, "code")

	act, err := f.inv.Invoke(context.Background(), path, nil)
	require.NoError(t, err)

	spec, ok := f.rt.Spec(act.ContainerID)
	require.True(t, ok)
	assert.Contains(t, spec.Env, "__OW_API_HOST=https://openwhisk.example.com")
	assert.Contains(t, spec.Env, "__OW_API_KEY=user:secret")

	runs := f.srv.RequestsTo("/run")
	require.Len(t, runs, 1)
	assert.Equal(t, "user:secret", runs[0].Body["authKey"])
}

func TestInvoker_InvokeRemoteAction(t *testing.T) {
	creds := platform.Credentials{APIHost: "example.com", AuthKey: "a:b"}
	fetcher := stubFetcher{action: &platform.Action{Name: "hello", Exec: platform.Exec{Kind: "nodejs:20", Code: "remote code"}}}
	f := newFixture(t, creds, fetcher)

	act, err := f.inv.InvokeWithParams(context.Background(), "/guest/hello", map[string]any{"value": "x"})
	require.NoError(t, err)
	assert.Equal(t, invocation.KindRemote, act.Kind)
	assert.Equal(t, "remote code", f.srv.Code())
	assert.Equal(t, map[string]any{"value": "x"}, act.Result)
}

func TestInvoker_RemoteWithoutCredentials(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)

	act, err := f.inv.Invoke(context.Background(), "hello", nil)
	assert.ErrorIs(t, err, invocation.ErrMissingCredentials)
	assert.Nil(t, act)
	assert.Empty(t, f.rt.Containers())
}

func TestInvoker_MissingSourceFile(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)

	act, err := f.inv.Invoke(context.Background(), filepath.Join(t.TempDir(), "nope.js"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Nil(t, act)
	assert.Empty(t, f.rt.Containers())

	list, err := f.repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestInvoker_InitFailure(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)
	f.srv.FailInit(http.StatusBadGateway, "syntax error")
	path := writeAction(t, "broken(")
	ctx := context.Background()

	act, err := f.inv.Invoke(ctx, path, nil)
	var appErr *action.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "syntax error", appErr.Message)

	require.NotNil(t, act)
	assert.Equal(t, repository.StatusDeveloperError, act.Status)
	assert.Contains(t, act.Error, "syntax error")
	assert.Empty(t, f.srv.RequestsTo("/run"))

	state, err := f.rt.Inspect(ctx, act.ContainerID)
	require.NoError(t, err)
	assert.False(t, state.Running)

	stored, err := f.repo.Get(ctx, act.ActivationID)
	require.NoError(t, err)
	assert.Equal(t, repository.StatusDeveloperError, stored.Status)
}

func TestInvoker_RunFailure(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)
	f.srv.OnRun(func(map[string]any) (int, any) {
		return http.StatusBadGateway, map[string]any{"error": "boom"}
	})

	act, err := f.inv.Invoke(context.Background(), writeAction(t, "code"), nil)
	var appErr *action.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "/run", appErr.Endpoint)
	assert.Equal(t, repository.StatusApplicationError, act.Status)
	assert.Nil(t, act.Result)
}

func TestInvoker_ReadinessTimeout(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	endpoint := strings.TrimPrefix(closed.URL, "http://")
	closed.Close()

	f := newFixtureAt(t, nil, endpoint, platform.Credentials{}, nil)
	f.inv.session.MaxWait = 30 * time.Millisecond

	act, err := f.inv.Invoke(context.Background(), writeAction(t, "code"), nil)
	assert.ErrorIs(t, err, container.ErrReadinessTimeout)
	require.NotNil(t, act)
	assert.Equal(t, repository.StatusInternalError, act.Status)
	assert.Empty(t, act.ContainerID)
	assert.Empty(t, f.rt.Containers(), "failed start must remove the container")
}

func TestInvoker_IsInUseDuringRun(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)
	managed := map[string]string{runtime.LabelManaged: "true"}

	during := make(chan bool, 4)
	f.srv.OnRun(func(map[string]any) (int, any) {
		list, _ := f.rt.List(context.Background(), managed)
		for _, c := range list {
			during <- f.inv.IsInUse(c)
		}
		return http.StatusOK, map[string]any{}
	})

	_, err := f.inv.Invoke(context.Background(), writeAction(t, "code"), nil)
	require.NoError(t, err)
	require.Len(t, during, 1)
	assert.True(t, <-during)

	list, err := f.rt.List(context.Background(), managed)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, f.inv.IsInUse(list[0]))
	assert.False(t, f.inv.IsInUse(runtime.ContainerSummary{ID: "foreign"}))
}

func TestInvoker_Reinvoke(t *testing.T) {
	f := newFixture(t, platform.Credentials{AuthKey: "k:v", APIHost: "h"}, stubFetcher{})
	ctx := context.Background()

	id, err := f.rt.Create(ctx, runtime.ContainerSpec{Image: "img", HTTPPort: 8080})
	require.NoError(t, err)
	require.NoError(t, f.rt.Start(ctx, id))

	act, err := f.inv.Reinvoke(ctx, id, []string{"value=again"})
	require.NoError(t, err)
	assert.Equal(t, KindContainer, act.Kind)
	assert.Equal(t, id, act.ContainerID)
	assert.Equal(t, map[string]any{"value": "again"}, act.Result)
	assert.Empty(t, f.srv.RequestsTo("/init"))

	state, err := f.rt.Inspect(ctx, id)
	require.NoError(t, err)
	assert.True(t, state.Running, "reinvoke must not touch the lifecycle")

	_, err = f.repo.Get(ctx, act.ActivationID)
	assert.NoError(t, err)
}

func TestInvoker_ReinvokeStoppedContainer(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)
	ctx := context.Background()

	id, err := f.rt.Create(ctx, runtime.ContainerSpec{Image: "img", HTTPPort: 8080})
	require.NoError(t, err)

	act, err := f.inv.Reinvoke(ctx, id, nil)
	assert.ErrorIs(t, err, container.ErrNotRunning)
	assert.Equal(t, repository.StatusInternalError, act.Status)
	assert.Empty(t, f.srv.Requests())
}

func TestInvoker_ReinvokeUnknownContainer(t *testing.T) {
	f := newFixture(t, platform.Credentials{}, nil)

	_, err := f.inv.Reinvoke(context.Background(), "missing", nil)
	var queryErr *container.RuntimeQueryError
	assert.ErrorAs(t, err, &queryErr)
	assert.ErrorIs(t, err, runtime.ErrContainerNotFound)
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, repository.StatusSuccess},
		{"run error", &action.ApplicationError{Endpoint: "/run", StatusCode: 502}, repository.StatusApplicationError},
		{"init error", &action.ApplicationError{Endpoint: "/init", StatusCode: 502}, repository.StatusDeveloperError},
		{"wrapped run error", errors.Join(errors.New("ctx"), &action.ApplicationError{Endpoint: "/run"}), repository.StatusApplicationError},
		{"readiness", container.ErrReadinessTimeout, repository.StatusInternalError},
		{"other", errors.New("daemon down"), repository.StatusInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}
