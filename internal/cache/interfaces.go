package cache

import "github.com/bassista/go_action/internal/repository"

// PersistableStore is the cache API needed by the persistence scheduler.
type PersistableStore interface {
	IsDirty() bool
	SnapshotVersion() (repository.HistoryDocument, uint64, error)
	MarkClean(version uint64, lastUpdate int64)
}

// AppStore is the cache contract the application container exposes.
// It supports controllers, the invoker, the persistence scheduler and the repository watcher.
type AppStore interface {
	repository.CacheStore
	repository.Recorder
	repository.HistoryReader
	PersistableStore
}
