package tasks

import (
	"slices"
	"sync"

	"github.com/desertthunder/bilisync/internal/models"
)

// SyncKey builds the registry key of a remote resource.
func SyncKey(t models.PlaylistType, remoteSyncID string) string {
	return string(t) + "::" + remoteSyncID
}

// SyncRegistry is the set of resource keys currently being synced.
//
// It is process-local and never persisted; two [PlaylistSyncer] values only exclude each other
// when they share a registry.
type SyncRegistry struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewSyncRegistry creates an empty registry
func NewSyncRegistry() *SyncRegistry {
	return &SyncRegistry{running: make(map[string]struct{})}
}

// TryAcquire registers key and reports whether it was free.
func (r *SyncRegistry) TryAcquire(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.running[key]; ok {
		return false
	}
	r.running[key] = struct{}{}
	return true
}

// Release removes key from the registry.
func (r *SyncRegistry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, key)
}

// Running reports whether key is registered.
func (r *SyncRegistry) Running(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[key]
	return ok
}

// Keys returns the registered keys in sorted order.
func (r *SyncRegistry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.running))
	for k := range r.running {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
