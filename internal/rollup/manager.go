// Package rollup produces day/hour/minute period snapshots for pools,
// tokens, hooks and the global scope. Day snapshots on pool and hook
// parents also carry growth deltas computed against the previous day's
// snapshot, falling back to a perpetually overwritten sentinel record
// (period index 0) when the previous day had no activity.
package rollup

import (
	"dex-hook-stats/internal/storage"
)

// Manager loads and creates period snapshots through the entity store,
// registering every touched snapshot in the event's working set.
type Manager struct {
	store storage.EntityStore
}

// NewManager creates a rollup manager backed by the given store.
func NewManager(store storage.EntityStore) *Manager {
	return &Manager{store: store}
}
