// Package invoker runs actions end to end: resolve the source, provision a
// container, upload the code, run it, stop the container and record the
// activation.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/bassista/go_action/internal/action"
	"github.com/bassista/go_action/internal/container"
	"github.com/bassista/go_action/internal/invocation"
	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/metrics"
	"github.com/bassista/go_action/internal/platform"
	"github.com/bassista/go_action/internal/repository"
	"github.com/bassista/go_action/internal/runtime"
	"github.com/google/uuid"
)

// KindContainer is the activation kind of a reinvocation on a running container.
const KindContainer = "running container"

// Invoker serializes invocations: at most one action container is provisioned
// at a time.
type Invoker struct {
	rt       runtime.ContainerRuntime
	builder  *invocation.Builder
	recorder repository.Recorder
	metrics  *metrics.Metrics
	creds    platform.Credentials
	session  action.Config

	sessionOpts []action.Option
	httpClient  *http.Client
	now         func() time.Time

	mu sync.Mutex

	activeMu sync.Mutex
	active   map[string]struct{}
}

type Option func(*Invoker)

// WithSessionOptions forwards options to every Session the Invoker creates.
func WithSessionOptions(opts ...action.Option) Option {
	return func(i *Invoker) { i.sessionOpts = append(i.sessionOpts, opts...) }
}

// WithHTTPClient sets the client used by Reinvoke.
func WithHTTPClient(c *http.Client) Option {
	return func(i *Invoker) { i.httpClient = c }
}

func New(rt runtime.ContainerRuntime, builder *invocation.Builder, recorder repository.Recorder, m *metrics.Metrics, creds platform.Credentials, session action.Config, opts ...Option) *Invoker {
	i := &Invoker{
		rt:         rt,
		builder:    builder,
		recorder:   recorder,
		metrics:    m,
		creds:      creds,
		session:    session,
		httpClient: &http.Client{},
		now:        time.Now,
		active:     map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke resolves id with "key=value" parameters and runs it.
func (i *Invoker) Invoke(ctx context.Context, id string, rawParams []string) (*repository.Activation, error) {
	inv, err := i.builder.Invocation(id, rawParams)
	if err != nil {
		return nil, err
	}
	return i.Run(ctx, inv)
}

// InvokeWithParams is Invoke for already decoded parameters.
func (i *Invoker) InvokeWithParams(ctx context.Context, id string, params map[string]any) (*repository.Activation, error) {
	inv, err := i.builder.InvocationWithParams(id, params)
	if err != nil {
		return nil, err
	}
	return i.Run(ctx, inv)
}

// Run executes inv in a fresh container. The container is stopped whatever
// the outcome. Once the source is retrieved an activation is recorded and
// returned, also alongside a non-nil error.
func (i *Invoker) Run(ctx context.Context, inv invocation.Invocation) (*repository.Activation, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	defer i.metrics.TrackInFlight()()

	log := logger.WithComponent("invoker")
	instance, err := inv.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieve %s %s: %w", inv.Kind(), inv.ID(), err)
	}

	act := &repository.Activation{
		ActivationID: uuid.NewString(),
		Action:       inv.ID(),
		Kind:         inv.Kind(),
		Parameters:   instance.Parameters,
		Start:        i.now(),
	}
	log.Debugf("activation %s: running %s %s", act.ActivationID, inv.Kind(), inv.ID())

	i.claim(act.ActivationID)
	defer i.release(act.ActivationID)

	result, containerID, runErr := i.execute(ctx, act.ActivationID, instance)
	act.ContainerID = containerID
	act.Result = result
	i.finish(ctx, act, runErr)
	return act, runErr
}

func (i *Invoker) execute(ctx context.Context, activationID string, instance invocation.Instance) (any, string, error) {
	log := logger.WithComponent("invoker")

	cfg := i.session
	cfg.Env = append(slices.Clone(cfg.Env), i.creds.Env()...)
	cfg.Labels = maps.Clone(cfg.Labels)
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
	cfg.Labels[runtime.LabelManaged] = "true"
	cfg.Labels[runtime.LabelActivation] = activationID

	s := action.NewSession(i.rt, cfg, i.sessionOpts...)
	started := i.now()
	err := s.Start(ctx)
	i.metrics.ObserveStart(i.now().Sub(started), err)
	if err != nil {
		return nil, "", fmt.Errorf("start action runtime: %w", err)
	}
	containerID := s.ContainerID()
	log.Debugf("activation %s: container %s ready at %s", activationID, containerID, s.URL())

	defer func() {
		// Left to the reaper when this fails.
		if err := s.Stop(context.WithoutCancel(ctx)); err != nil {
			log.Warnf("activation %s: stop container %s: %v", activationID, containerID, err)
		}
	}()

	if err := s.Source(ctx, instance.Source); err != nil {
		return nil, containerID, fmt.Errorf("initialize action: %w", err)
	}
	result, err := s.Invoke(ctx, instance.Parameters, i.creds.AuthKey)
	if err != nil {
		return nil, containerID, fmt.Errorf("run action: %w", err)
	}
	return result, containerID, nil
}

// Reinvoke posts the parameters to /run of an already running container. The
// container lifecycle is left untouched.
func (i *Invoker) Reinvoke(ctx context.Context, containerID string, rawParams []string) (*repository.Activation, error) {
	return i.ReinvokeWithParams(ctx, containerID, invocation.ParseParameters(rawParams))
}

// ReinvokeWithParams is Reinvoke for already decoded parameters.
func (i *Invoker) ReinvokeWithParams(ctx context.Context, containerID string, params map[string]any) (*repository.Activation, error) {
	defer i.metrics.TrackInFlight()()

	if params == nil {
		params = map[string]any{}
	}
	act := &repository.Activation{
		ActivationID: uuid.NewString(),
		Action:       containerID,
		Kind:         KindContainer,
		ContainerID:  containerID,
		Parameters:   params,
		Start:        i.now(),
	}

	result, err := i.rerun(ctx, containerID, params)
	act.Result = result
	i.finish(ctx, act, err)
	return act, err
}

func (i *Invoker) rerun(ctx context.Context, containerID string, params map[string]any) (any, error) {
	c := container.New(i.rt, containerID, i.session.HTTPPort)
	running, err := c.IsRunning(ctx)
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, fmt.Errorf("container %s: %w", containerID, container.ErrNotRunning)
	}
	url, err := c.HTTPURL(ctx)
	if err != nil {
		return nil, err
	}
	result, err := action.NewClient(url, i.httpClient).Run(ctx, params, i.creds.AuthKey)
	if err != nil {
		return nil, fmt.Errorf("run action: %w", err)
	}
	return result, nil
}

func (i *Invoker) finish(ctx context.Context, act *repository.Activation, err error) {
	act.End = i.now()
	act.DurationMs = act.End.Sub(act.Start).Milliseconds()
	act.Status = Status(err)
	if err != nil {
		act.Error = err.Error()
	}
	i.metrics.ObserveInvocation(act.Kind, act.Status, act.End.Sub(act.Start))

	if recErr := i.recorder.Record(context.WithoutCancel(ctx), *act); recErr != nil {
		logger.WithComponent("invoker").Errorf("record activation %s: %v", act.ActivationID, recErr)
	}
}

// Status classifies the outcome of an invocation. Errors from /run are the
// action's own, errors from /init are in its code, everything else is ours.
func Status(err error) string {
	if err == nil {
		return repository.StatusSuccess
	}
	var appErr *action.ApplicationError
	if errors.As(err, &appErr) {
		if appErr.Endpoint == "/init" {
			return repository.StatusDeveloperError
		}
		return repository.StatusApplicationError
	}
	return repository.StatusInternalError
}

// IsInUse reports whether c belongs to an invocation in progress.
func (i *Invoker) IsInUse(c runtime.ContainerSummary) bool {
	id, ok := c.Labels[runtime.LabelActivation]
	if !ok {
		return false
	}
	i.activeMu.Lock()
	defer i.activeMu.Unlock()
	_, busy := i.active[id]
	return busy
}

func (i *Invoker) claim(activationID string) {
	i.activeMu.Lock()
	defer i.activeMu.Unlock()
	i.active[activationID] = struct{}{}
}

func (i *Invoker) release(activationID string) {
	i.activeMu.Lock()
	defer i.activeMu.Unlock()
	delete(i.active, activationID)
}
