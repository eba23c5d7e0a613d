package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/bassista/go_action/internal/watcher"
	"github.com/go-playground/validator/v10"
)

// CacheStore defines the interface for cache operations needed by the watcher callback.
type CacheStore interface {
	GetLastUpdate() int64
	IsDirty() bool
	Replace(doc HistoryDocument) error
	Merge(activations []Activation) error
}

// JSONRepository handles disk persistence and watching of the history file.
type JSONRepository struct {
	path      string
	dir       string
	base      string
	limit     int
	validator *validator.Validate
	mu        sync.Mutex
}

// NewJSONRepository creates a repository for the given JSON file path keeping
// at most limit activations (limit <= 0 keeps all). The parent directory is
// created if needed.
func NewJSONRepository(path string, limit int) (*JSONRepository, error) {
	if path == "" {
		return nil, errors.New("history file path is required")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "" || dir == "." {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	return &JSONRepository{path: path, dir: dir, base: base, limit: limit, validator: validator.New()}, nil
}

func (r *JSONRepository) Path() string { return r.path }

// Load reads the JSON file, parses and validates it. A missing file is an empty history.
func (r *JSONRepository) Load(_ context.Context) (*HistoryDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnlocked()
}

// loadUnlocked reads the JSON file without acquiring the lock (caller must hold it).
func (r *JSONRepository) loadUnlocked() (*HistoryDocument, error) {
	file, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		doc := &HistoryDocument{}
		doc.ApplyDefaults()
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	var doc HistoryDocument
	if err := json.NewDecoder(file).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode history file: %w", err)
	}

	doc.ApplyDefaults()

	if err := r.validator.Struct(&doc); err != nil {
		return nil, fmt.Errorf("validate history file: %w", err)
	}
	return &doc, nil
}

// Save validates and writes the document atomically to disk.
func (r *JSONRepository) Save(_ context.Context, doc *HistoryDocument) error {
	if doc == nil {
		return errors.New("document is nil")
	}
	if err := r.validator.Struct(doc); err != nil {
		return fmt.Errorf("validate before save: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveUnlocked(doc)
}

// saveUnlocked writes the document without acquiring the lock (caller must hold it).
func (r *JSONRepository) saveUnlocked(doc *HistoryDocument) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	tmpFile, err := os.CreateTemp(r.dir, r.base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.Write(payload); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), r.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

// Record appends activation to the file, trimming to the configured limit.
func (r *JSONRepository) Record(_ context.Context, activation Activation) error {
	if err := r.validator.Struct(&activation); err != nil {
		return fmt.Errorf("validate activation: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.loadUnlocked()
	if err != nil {
		return err
	}
	doc.Activations = MergeActivations(doc.Activations, []Activation{activation}, r.limit)
	doc.Metadata.LastUpdate = time.Now().UnixMilli()
	return r.saveUnlocked(doc)
}

// List returns up to limit activations, newest first.
func (r *JSONRepository) List(ctx context.Context, limit int) ([]Activation, error) {
	doc, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Newest(doc.Activations, limit), nil
}

func (r *JSONRepository) Get(ctx context.Context, id string) (*Activation, error) {
	doc, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	if act := Find(doc.Activations, id); act != nil {
		return act, nil
	}
	return nil, fmt.Errorf("%s: %w", id, ErrActivationNotFound)
}

// StartWatcher reloads cacheStore when another process writes a newer history file.
// The caller owns ctx: cancel it to stop watching.
func (r *JSONRepository) StartWatcher(ctx context.Context, cacheStore CacheStore) error {
	if cacheStore == nil {
		return errors.New("cache store is required")
	}
	_, err := watcher.WatchFile(ctx, r.path, watcher.DefaultDebounce, r.MakeWatcherCallback(cacheStore))
	return err
}

// MakeWatcherCallback returns a callback for file watcher that reloads cache from disk if needed.
func (r *JSONRepository) MakeWatcherCallback(cacheStore CacheStore) func() {
	return func() {
		diskDoc, err := r.Load(context.Background())
		if err != nil {
			logger.WithComponent("history").Warnf("watch reload failed: %v", err)
			return
		}

		cacheLastUpdate := cacheStore.GetLastUpdate()
		diskLastUpdate := diskDoc.Metadata.LastUpdate
		if diskLastUpdate <= cacheLastUpdate {
			logger.WithComponent("history").Tracef("disk version is not newer than cache: disk=%d cache=%d", diskLastUpdate, cacheLastUpdate)
			return
		}

		// Unsaved activations must survive the reload.
		if cacheStore.IsDirty() {
			if err := cacheStore.Merge(diskDoc.Activations); err != nil {
				logger.WithComponent("history").Errorf("cache merge error: %v", err)
				return
			}
			logger.WithComponent("history").Info("merged newer disk history into dirty cache")
			return
		}

		if err := cacheStore.Replace(*diskDoc); err != nil {
			logger.WithComponent("history").Errorf("cache reload error: %v", err)
			return
		}
		logger.WithComponent("history").Info("cache reloaded from newer disk version")
	}
}
