package repository

import (
	"context"
	"errors"
)

// ErrActivationNotFound is returned by Get for an unknown activation id.
var ErrActivationNotFound = errors.New("activation not found")

// Saver persists a HistoryDocument.
// Small interface used by background jobs like the persistence scheduler.
type Saver interface {
	Save(ctx context.Context, doc *HistoryDocument) error
}

// Recorder stores a finished activation.
type Recorder interface {
	Record(ctx context.Context, activation Activation) error
}

// HistoryReader reads recorded activations.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]Activation, error)
	Get(ctx context.Context, id string) (*Activation, error)
}

// Repository abstracts persistence and watching of the history file.
// JSONRepository implements this interface.
type Repository interface {
	Saver
	Recorder
	HistoryReader
	Load(ctx context.Context) (*HistoryDocument, error)
	StartWatcher(ctx context.Context, cacheStore CacheStore) error
}
