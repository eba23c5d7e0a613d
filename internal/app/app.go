package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_action/internal/action"
	"github.com/bassista/go_action/internal/cache"
	"github.com/bassista/go_action/internal/config"
	"github.com/bassista/go_action/internal/invocation"
	"github.com/bassista/go_action/internal/invoker"
	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/metrics"
	"github.com/bassista/go_action/internal/platform"
	"github.com/bassista/go_action/internal/repository"
	"github.com/bassista/go_action/internal/runtime"
	"github.com/bassista/go_action/internal/scheduler"
)

// App is the application container (immutable dependencies + lifecycle context).
// It is not a request context; handlers should still use gin's request context.
//
// Cache is nil for one-shot CLI commands: activations are then written
// straight to Repo. In serve mode the cache fronts the history file and is
// flushed by the persistence scheduler.
type App struct {
	Config  *config.Config
	Repo    repository.Repository
	Cache   cache.AppStore
	Runtime runtime.ContainerRuntime
	Metrics *metrics.Metrics
	Builder *invocation.Builder
	Invoker *invoker.Invoker

	BaseCtx context.Context
	Cancel  context.CancelFunc

	persisted <-chan struct{}
}

func New(cfg *config.Config, repo repository.Repository, store cache.AppStore, rt runtime.ContainerRuntime, m *metrics.Metrics) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if repo == nil {
		return nil, errors.New("repo is nil")
	}
	if rt == nil {
		return nil, errors.New("runtime is nil")
	}
	if m == nil {
		return nil, errors.New("metrics is nil")
	}

	builder, err := newBuilder(cfg)
	if err != nil {
		return nil, err
	}

	var recorder repository.Recorder = repo
	if store != nil {
		recorder = store
	}

	inv := invoker.New(rt, builder, recorder, m, cfg.Credentials, action.Config{
		Image:        cfg.Runtime.Image,
		HTTPPort:     cfg.Runtime.HTTPPort,
		AutoRemove:   cfg.Runtime.AutoRemove,
		PollInterval: cfg.Runtime.PollInterval,
		MaxWait:      cfg.Runtime.MaxWait,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		Config:  cfg,
		Repo:    repo,
		Cache:   store,
		Runtime: rt,
		Metrics: m,
		Builder: builder,
		Invoker: inv,
		BaseCtx: ctx,
		Cancel:  cancel,
	}, nil
}

// NewFromConfig builds the runtime, repository and metrics described by cfg.
// withCache puts an in-memory cache in front of the history file.
func NewFromConfig(cfg *config.Config, withCache bool) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	rt, err := runtime.NewRuntimeFromConfig(cfg.Runtime.Type, cfg.Runtime.MemoryEndpoint, cfg.Runtime.StopTimeout)
	if err != nil {
		return nil, fmt.Errorf("create container runtime: %w", err)
	}
	repo, err := repository.NewJSONRepository(cfg.Data.HistoryPath, cfg.Data.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("open activation history: %w", err)
	}

	var store cache.AppStore
	if withCache {
		doc, err := repo.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load activation history: %w", err)
		}
		store = cache.NewStore(*doc, cfg.Data.HistoryLimit)
	}
	return New(cfg, repo, store, rt, metrics.New())
}

func newBuilder(cfg *config.Config) (*invocation.Builder, error) {
	if !cfg.Credentials.Valid() {
		return invocation.NewBuilder(cfg.Runtime.LocalExtensions, nil), nil
	}
	client, err := platform.NewClient(cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("create platform client: %w", err)
	}
	return invocation.NewBuilder(cfg.Runtime.LocalExtensions, client), nil
}

// History returns where activations are read from.
func (a *App) History() repository.HistoryReader {
	if a.Cache != nil {
		return a.Cache
	}
	return a.Repo
}

// Shutdown cancels the background jobs and waits, at most
// server.shutdown_timeout, for the last history flush.
func (a *App) Shutdown() {
	if a == nil || a.Cancel == nil {
		return
	}
	a.Cancel()
	if a.persisted == nil {
		return
	}
	select {
	case <-a.persisted:
	case <-time.After(a.Config.Server.ShutDownTimeout):
		logger.WithComponent("app").Warn("timed out waiting for the activation history flush")
	}
}

// StartWatchers starts the background jobs of serve mode: the history file
// watcher and persistence scheduler (only with a cache), and the reaper.
func (a *App) StartWatchers() error {
	if a.Cache != nil {
		if err := a.Repo.StartWatcher(a.BaseCtx, a.Cache); err != nil {
			return fmt.Errorf("cannot start history file watcher: %w", err)
		}
		a.persisted = cache.StartPersistenceScheduler(a.BaseCtx, a.Cache, a.Repo, a.Config.Data.PersistInterval)
	}

	if a.Config.Runtime.ReaperInterval > 0 {
		r := a.newReaper()
		r.OnReaped(a.Metrics.AddReaped)
		r.Start(a.BaseCtx)
	}
	return nil
}

// Prune runs one reaper pass and returns the number of removed containers.
func (a *App) Prune(ctx context.Context) (int, error) {
	removed, err := a.newReaper().Sweep(ctx)
	a.Metrics.AddReaped(removed)
	return removed, err
}

func (a *App) newReaper() *scheduler.Reaper {
	return scheduler.NewReaper(a.Runtime, a.Invoker, a.Config.Runtime.ReaperInterval, a.Config.Runtime.ReaperMaxAge)
}
