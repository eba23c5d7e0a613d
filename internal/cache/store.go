package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bassista/go_action/internal/repository"
)

// Store keeps an in-memory copy of the activation history.
type Store struct {
	mu         sync.RWMutex
	data       repository.HistoryDocument
	limit      int
	dirty      bool   // true if cache changed since last persist
	version    uint64 // bumped on every mutation
	lastUpdate int64  // cache's metadata.lastUpdate
}

// NewStore creates a cache store seeded with doc, keeping at most limit activations.
func NewStore(doc repository.HistoryDocument, limit int) *Store {
	doc.ApplyDefaults()
	return &Store{data: doc, limit: limit, lastUpdate: doc.Metadata.LastUpdate}
}

// IsDirty returns true if cache has uncommitted changes.
func (s *Store) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// MarkClean records a successful save of the snapshot taken at version.
// The dirty flag is kept if the cache changed since.
func (s *Store) MarkClean(version uint64, lastUpdate int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = lastUpdate
	if s.version == version {
		s.dirty = false
	}
}

// GetLastUpdate returns the cache's last update timestamp.
func (s *Store) GetLastUpdate() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// Snapshot returns a deep copy of the cached data.
func (s *Store) Snapshot() (repository.HistoryDocument, error) {
	doc, _, err := s.SnapshotVersion()
	return doc, err
}

// SnapshotVersion returns a deep copy of the cached data and its version.
func (s *Store) SnapshotVersion() (repository.HistoryDocument, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, err := cloneData(s.data)
	return doc, s.version, err
}

// Replace swaps the cached data.
func (s *Store) Replace(doc repository.HistoryDocument) error {
	cloned, err := cloneData(doc)
	if err != nil {
		return err
	}
	cloned.ApplyDefaults()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = cloned
	s.lastUpdate = doc.Metadata.LastUpdate
	s.dirty = false
	s.version++
	return nil
}

// Merge folds activations written elsewhere into the cache. The cache stays
// dirty so the union is persisted on the next flush.
func (s *Store) Merge(activations []repository.Activation) error {
	cloned, err := cloneData(repository.HistoryDocument{Activations: activations})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Activations = repository.MergeActivations(cloned.Activations, s.data.Activations, s.limit)
	s.dirty = true
	s.version++
	return nil
}

// Record adds an activation and marks the cache dirty.
func (s *Store) Record(_ context.Context, activation repository.Activation) error {
	cloned, err := cloneData(repository.HistoryDocument{Activations: []repository.Activation{activation}})
	if err != nil {
		return fmt.Errorf("copy activation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Activations = repository.MergeActivations(s.data.Activations, cloned.Activations, s.limit)
	s.dirty = true
	s.version++
	return nil
}

// List returns copies of up to limit activations, newest first.
func (s *Store) List(_ context.Context, limit int) ([]repository.Activation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned, err := cloneData(repository.HistoryDocument{Activations: repository.Newest(s.data.Activations, limit)})
	if err != nil {
		return nil, fmt.Errorf("copy activations: %w", err)
	}
	return cloned.Activations, nil
}

func (s *Store) Get(_ context.Context, id string) (*repository.Activation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	act := repository.Find(s.data.Activations, id)
	if act == nil {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrActivationNotFound)
	}
	cloned, err := cloneData(repository.HistoryDocument{Activations: []repository.Activation{*act}})
	if err != nil {
		return nil, fmt.Errorf("copy activation %s: %w", id, err)
	}
	return &cloned.Activations[0], nil
}

// cloneData deep-copies the document to avoid shared maps between cache and callers.
func cloneData(doc repository.HistoryDocument) (repository.HistoryDocument, error) {
	bytes, err := json.Marshal(doc)
	if err != nil {
		return repository.HistoryDocument{}, err
	}
	var copy repository.HistoryDocument
	if err := json.Unmarshal(bytes, &copy); err != nil {
		return repository.HistoryDocument{}, err
	}
	return copy, nil
}
