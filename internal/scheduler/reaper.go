package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/runtime"
)

// DefaultStoppedGrace is how long a stopped container is left alone after
// creation. A container created by another process shows as stopped until
// that process starts it.
const DefaultStoppedGrace = 30 * time.Second

// InUse reports whether a container is owned by a live session.
type InUse interface {
	IsInUse(c runtime.ContainerSummary) bool
}

// Reaper removes action containers left behind by interrupted runs.
//
// On every tick it lists containers labelled as managed and, skipping the
// ones in use:
// - removes stopped containers older than the stopped grace period;
// - stops and removes running containers older than maxAge.
type Reaper struct {
	runtime runtime.ContainerRuntime
	inUse   InUse
	poll    time.Duration
	maxAge  time.Duration
	grace   time.Duration
	now     func() time.Time

	onReaped func(int)
}

func NewReaper(rt runtime.ContainerRuntime, inUse InUse, poll, maxAge time.Duration) *Reaper {
	return &Reaper{runtime: rt, inUse: inUse, poll: poll, maxAge: maxAge, grace: min(DefaultStoppedGrace, maxAge), now: time.Now}
}

// OnReaped registers fn to receive the count of every sweep run by Start.
func (r *Reaper) OnReaped(fn func(int)) {
	r.onReaped = fn
}

func (r *Reaper) Start(ctx context.Context) {
	logger.WithComponent("reaper").Debugf("starting reaper with interval: %v, max age: %v", r.poll, r.maxAge)
	ticker := time.NewTicker(r.poll)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.WithComponent("reaper").Info("reaper stopped")
				return
			case <-ticker.C:
				removed, err := r.Sweep(ctx)
				if err != nil {
					logger.WithComponent("reaper").Errorf("sweep error: %v", err)
				}
				if removed > 0 && r.onReaped != nil {
					r.onReaped(removed)
				}
			}
		}
	}()
}

// Sweep runs one pass and returns the number of removed containers.
// Failures on single containers are logged and skipped.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	containers, err := r.runtime.List(ctx, map[string]string{runtime.LabelManaged: "true"})
	if err != nil {
		return 0, fmt.Errorf("list managed containers: %w", err)
	}

	removed := 0
	now := r.now()
	for _, c := range containers {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if r.inUse != nil && r.inUse.IsInUse(c) {
			logger.WithComponent("reaper").Tracef("container %s in use, skipping", c.ID)
			continue
		}

		age := now.Sub(c.Created)
		if !c.Running && age < r.grace {
			logger.WithComponent("reaper").Tracef("container %s stopped but recently created, skipping", c.ID)
			continue
		}
		if c.Running {
			if age < r.maxAge {
				continue
			}
			if err := r.runtime.Stop(ctx, c.ID); err != nil {
				logger.WithComponent("reaper").Errorf("Stop(%s) error: %v", c.ID, err)
				continue
			}
			logger.WithComponent("reaper").Infof("stopped %s (age %s)", c.ID, age.Round(time.Second))
		}

		if err := r.runtime.Remove(ctx, c.ID); err != nil {
			logger.WithComponent("reaper").Errorf("Remove(%s) error: %v", c.ID, err)
			continue
		}
		logger.WithComponent("reaper").Infof("removed %s", c.ID)
		removed++
	}
	return removed, nil
}
