package store

import (
	"errors"
	"path/filepath"
	"sync"
)

// Registry shares one SQLiteStore per database file. Callers that open the
// same path get the same store and never close it themselves.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*SQLiteStore
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*SQLiteStore)}
}

// Open returns the store for path, opening it on first use.
func (r *Registry) Open(path string) (*SQLiteStore, error) {
	key := path
	if abs, err := filepath.Abs(path); err == nil && path != "" {
		key = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[key]; ok {
		return s, nil
	}
	s, err := NewSQLiteStore(path)
	if err != nil {
		return nil, err
	}
	r.stores[key] = s
	return s, nil
}

// Close closes every store opened through the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, s := range r.stores {
		errs = append(errs, s.Close())
		delete(r.stores, key)
	}
	return errors.Join(errs...)
}
