package cache

import (
	"context"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/repository"
)

// StartPersistenceScheduler flushes the dirty history cache to repo every
// interval. When ctx is done a last flush runs with a fresh context; the
// returned channel is closed after it.
func StartPersistenceScheduler(ctx context.Context, store PersistableStore, repo repository.Saver, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	log := logger.WithComponent("persist")
	log.Debugf("flushing activation history every %v", interval)

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				if err := Flush(context.Background(), store, repo); err != nil {
					log.Errorf("final flush failed: %v", err)
				}
				log.Debug("persistence scheduler stopped")
				return
			case <-ticker.C:
				if err := Flush(ctx, store, repo); err != nil {
					log.Errorf("flush failed: %v", err)
				}
			}
		}
	}()
	return done
}

// Flush writes the cache to repo if it is dirty. Records added while the
// write is in flight keep the cache dirty for the next flush.
func Flush(ctx context.Context, store PersistableStore, repo repository.Saver) error {
	if !store.IsDirty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot, version, err := store.SnapshotVersion()
	if err != nil {
		return err
	}
	snapshot.Metadata.LastUpdate = time.Now().UnixMilli()

	if err := repo.Save(ctx, &snapshot); err != nil {
		return err
	}
	store.MarkClean(version, snapshot.Metadata.LastUpdate)
	logger.WithComponent("persist").Debugf("activation history persisted (%d entries)", len(snapshot.Activations))
	return nil
}
