package action

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bassista/go_action/internal/container"
	"github.com/bassista/go_action/internal/runtime"
)

// DefaultImage is the action runtime image used when Config.Image is empty.
const DefaultImage = "openwhisk/action-nodejs-v20"

// State is the lifecycle state of a Session.
type State int

const (
	StateEmpty State = iota
	StateStarting
	StateReady
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Config describes the container a Session provisions.
type Config struct {
	Image        string
	HTTPPort     int
	Env          []string
	Labels       map[string]string
	AutoRemove   bool
	PollInterval time.Duration
	MaxWait      time.Duration
}

// Session drives one action container through start, source, invoke and stop.
// A Session owns its container exclusively and is not safe for concurrent use.
type Session struct {
	rt          runtime.ContainerRuntime
	cfg         Config
	httpClient  *http.Client
	probeClient *http.Client

	state     State
	container *container.Container
	client    *Client
}

// Option configures a Session.
type Option func(*Session)

// WithHTTPClient sets the client used for /init and /run.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.httpClient = c }
}

// WithProbeClient sets the client used for readiness probes.
func WithProbeClient(c *http.Client) Option {
	return func(s *Session) { s.probeClient = c }
}

func NewSession(rt runtime.ContainerRuntime, cfg Config, opts ...Option) *Session {
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.HTTPPort <= 0 {
		cfg.HTTPPort = container.DefaultHTTPPort
	}
	s := &Session{rt: rt, cfg: cfg, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State { return s.state }

// ContainerID returns the id of the associated container, or "" when empty.
func (s *Session) ContainerID() string {
	if s.container == nil {
		return ""
	}
	return s.container.ID()
}

// URL returns the base URL of the associated container, or "" when empty.
func (s *Session) URL() string {
	if s.client == nil {
		return ""
	}
	return s.client.BaseURL()
}

// Start creates and starts a container, then waits for its HTTP server.
// On any failure the session is left empty and the created container is
// stopped and removed.
func (s *Session) Start(ctx context.Context) error {
	if s.state != StateEmpty {
		return ErrAlreadyStarted
	}
	s.state = StateStarting

	id, err := s.rt.Create(ctx, runtime.ContainerSpec{
		Image:      s.cfg.Image,
		Env:        s.cfg.Env,
		HTTPPort:   s.cfg.HTTPPort,
		AutoRemove: s.cfg.AutoRemove,
		Labels:     s.cfg.Labels,
	})
	if err != nil {
		s.reset()
		return &container.RuntimeTransitionError{Op: "create", Err: err}
	}

	var opts []container.Option
	if s.probeClient != nil {
		opts = append(opts, container.WithHTTPClient(s.probeClient))
	}
	c := container.New(s.rt, id, s.cfg.HTTPPort, opts...)

	baseURL, err := s.bringUp(ctx, c)
	if err != nil {
		s.reset()
		return s.discard(ctx, c, err)
	}

	s.container = c
	s.client = NewClient(baseURL, s.httpClient)
	s.state = StateReady
	return nil
}

func (s *Session) bringUp(ctx context.Context, c *container.Container) (string, error) {
	if err := c.Start(ctx); err != nil {
		return "", err
	}
	state, err := c.State(ctx)
	if err != nil {
		return "", err
	}
	mapping, err := container.PortMappingFromState(state, s.cfg.HTTPPort)
	if err != nil {
		return "", err
	}
	if err := c.WaitHTTPPortOpen(ctx, s.cfg.PollInterval, s.cfg.MaxWait); err != nil {
		return "", err
	}
	return mapping.URL(), nil
}

// discard releases a container whose start failed. Cleanup runs even when ctx
// is already cancelled.
func (s *Session) discard(ctx context.Context, c *container.Container, cause error) error {
	cleanupCtx := context.WithoutCancel(ctx)
	var errs []error
	if err := c.Stop(cleanupCtx); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		errs = append(errs, err)
	}
	if err := s.rt.Remove(cleanupCtx, c.ID()); err != nil {
		errs = append(errs, &container.RuntimeTransitionError{Op: "remove", ContainerID: c.ID(), Err: err})
	}
	if len(errs) == 0 {
		return cause
	}
	return errors.Join(append([]error{cause}, errs...)...)
}

// Stop stops the container and empties the session. If the runtime refuses
// to stop it the association is kept so Stop can be retried.
func (s *Session) Stop(ctx context.Context) error {
	if s.state != StateReady {
		return ErrNotStarted
	}
	if err := s.container.Stop(ctx); err != nil && !errors.Is(err, runtime.ErrContainerNotFound) {
		return err
	}
	s.reset()
	return nil
}

// Source uploads the action code to the container.
func (s *Session) Source(ctx context.Context, code string) error {
	if s.state != StateReady {
		return ErrNotStarted
	}
	return s.client.Init(ctx, code)
}

// Invoke runs the action with params and returns the decoded result.
// Calling Invoke without a prior Source is allowed.
func (s *Session) Invoke(ctx context.Context, params map[string]any, authKey string) (any, error) {
	if s.state != StateReady {
		return nil, ErrNotStarted
	}
	return s.client.Run(ctx, params, authKey)
}

func (s *Session) reset() {
	s.state = StateEmpty
	s.container = nil
	s.client = nil
}
