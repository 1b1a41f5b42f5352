// Package registry provides a thread-safe, generic name → item registry.
// The server builds one instance per store and hands it to the services that
// need collections, instead of reading process-wide globals.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rugvedkadu06/aggrigator/internal/common"
)

// Registry is a thread-safe map of named items.
//
// Example:
//
//	cols := NewRegistry[*mongo.Collection]()
//	cols.Register("reports", db.Collection("reports"))
//	if col, ok := cols.Get("reports"); ok {
//	    ...
//	}
type Registry[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
	}
}

// Register stores item under name, overwriting any previous item.
// isNew is false when an existing item was replaced.
func (r *Registry[T]) Register(name string, item T) (isNew bool, err error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty: %w", common.ErrRequiredField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.items[name]
	r.items[name] = item
	return !exists, nil
}

// Get returns the item registered under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[name]
	return item, ok
}

// MustGet returns the item or an ErrNotFound-wrapped error naming the missing key.
func (r *Registry[T]) MustGet(name string) (T, error) {
	item, ok := r.Get(name)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%q is not registered: %w", name, common.ErrNotFound)
	}
	return item, nil
}

// Names returns the registered names in sorted order.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered items.
func (r *Registry[T]) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
