// Package memory provides in-memory storage implementations.
// Used as the primary backend for tests and fixture runs.
package memory

import (
	"context"
	"sync"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// EntityStore is an in-memory implementation of storage.EntityStore.
// Entities are stored by value copy: callers can mutate what they get
// back without touching store state until Commit.
type EntityStore struct {
	mu sync.RWMutex

	global           *domain.GlobalAggregate
	hooks            map[string]*domain.HookAggregate
	pools            map[string]*domain.PoolAggregate
	tokens           map[string]*domain.TokenAggregate
	poolParticipants map[string]*domain.PoolParticipant
	hookParticipants map[string]*domain.HookParticipant
	ticks            map[string]*domain.Tick

	poolSnapshots      map[string]*domain.PoolSnapshot
	tokenSnapshots     map[string]*domain.TokenSnapshot
	hookDaySnapshots   map[string]*domain.HookDaySnapshot
	globalDaySnapshots map[string]*domain.GlobalDaySnapshot

	transactions map[string]*domain.TransactionRecord
	swaps        map[string]*domain.SwapRecord
	modifies     map[string]*domain.ModifyLiquidityRecord
}

// NewEntityStore creates an empty in-memory entity store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		hooks:              make(map[string]*domain.HookAggregate),
		pools:              make(map[string]*domain.PoolAggregate),
		tokens:             make(map[string]*domain.TokenAggregate),
		poolParticipants:   make(map[string]*domain.PoolParticipant),
		hookParticipants:   make(map[string]*domain.HookParticipant),
		ticks:              make(map[string]*domain.Tick),
		poolSnapshots:      make(map[string]*domain.PoolSnapshot),
		tokenSnapshots:     make(map[string]*domain.TokenSnapshot),
		hookDaySnapshots:   make(map[string]*domain.HookDaySnapshot),
		globalDaySnapshots: make(map[string]*domain.GlobalDaySnapshot),
		transactions:       make(map[string]*domain.TransactionRecord),
		swaps:              make(map[string]*domain.SwapRecord),
		modifies:           make(map[string]*domain.ModifyLiquidityRecord),
	}
}

// Compile-time interface check.
var _ storage.EntityStore = (*EntityStore)(nil)

// GetGlobal retrieves the single global aggregate record.
func (s *EntityStore) GetGlobal(_ context.Context) (*domain.GlobalAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.global == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.global
	return &cp, nil
}

// GetHook retrieves a hook aggregate by hook address.
func (s *EntityStore) GetHook(_ context.Context, id string) (*domain.HookAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.hooks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

// GetPool retrieves a pool aggregate by pool id.
func (s *EntityStore) GetPool(_ context.Context, id string) (*domain.PoolAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pools[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetToken retrieves a token aggregate by token address.
func (s *EntityStore) GetToken(_ context.Context, id string) (*domain.TokenAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetPoolParticipant retrieves a participant by poolID-address key.
func (s *EntityStore) GetPoolParticipant(_ context.Context, id string) (*domain.PoolParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.poolParticipants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetHookParticipant retrieves a participant by hookID-address key.
func (s *EntityStore) GetHookParticipant(_ context.Context, id string) (*domain.HookParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.hookParticipants[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// GetTick retrieves a boundary tick by poolID#tickIdx key.
func (s *EntityStore) GetTick(_ context.Context, id string) (*domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.ticks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// GetPoolSnapshot retrieves a period snapshot by granularity and key.
func (s *EntityStore) GetPoolSnapshot(_ context.Context, g domain.Granularity, id string) (*domain.PoolSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.poolSnapshots[string(g)+":"+id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

// GetTokenSnapshot retrieves a period snapshot by granularity and key.
func (s *EntityStore) GetTokenSnapshot(_ context.Context, g domain.Granularity, id string) (*domain.TokenSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.tokenSnapshots[string(g)+":"+id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

// GetHookDaySnapshot retrieves a hook day snapshot by hookID-dayIndex key.
func (s *EntityStore) GetHookDaySnapshot(_ context.Context, id string) (*domain.HookDaySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.hookDaySnapshots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

// GetGlobalDaySnapshot retrieves a global day snapshot by day index key.
func (s *EntityStore) GetGlobalDaySnapshot(_ context.Context, id string) (*domain.GlobalDaySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.globalDaySnapshots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

// GetTransaction retrieves a transaction record by hash.
func (s *EntityStore) GetTransaction(_ context.Context, id string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// Commit persists every entity in the working set under one lock.
// Activity records are validated first so a duplicate leaves the store
// untouched.
func (s *EntityStore) Commit(_ context.Context, ws *storage.WorkingSet) error {
	if ws == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sw := range ws.Swaps {
		if _, exists := s.swaps[sw.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}
	for _, ml := range ws.ModifyLiquidities {
		if _, exists := s.modifies[ml.ID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	if ws.Global != nil {
		cp := *ws.Global
		s.global = &cp
	}
	for id, h := range ws.Hooks {
		cp := *h
		s.hooks[id] = &cp
	}
	for id, p := range ws.Pools {
		cp := *p
		s.pools[id] = &cp
	}
	for id, t := range ws.Tokens {
		cp := *t
		s.tokens[id] = &cp
	}
	for id, p := range ws.PoolParticipants {
		cp := *p
		s.poolParticipants[id] = &cp
	}
	for id, p := range ws.HookParticipants {
		cp := *p
		s.hookParticipants[id] = &cp
	}
	for id, t := range ws.Ticks {
		cp := *t
		s.ticks[id] = &cp
	}
	for _, snap := range ws.PoolSnapshots {
		cp := *snap
		s.poolSnapshots[string(snap.Granularity)+":"+snap.ID] = &cp
	}
	for _, snap := range ws.TokenSnapshots {
		cp := *snap
		s.tokenSnapshots[string(snap.Granularity)+":"+snap.ID] = &cp
	}
	for id, snap := range ws.HookDaySnapshots {
		cp := *snap
		s.hookDaySnapshots[id] = &cp
	}
	for id, snap := range ws.GlobalDaySnapshots {
		cp := *snap
		s.globalDaySnapshots[id] = &cp
	}
	for id, tx := range ws.Transactions {
		cp := *tx
		s.transactions[id] = &cp
	}
	for _, sw := range ws.Swaps {
		cp := *sw
		s.swaps[sw.ID] = &cp
	}
	for _, ml := range ws.ModifyLiquidities {
		cp := *ml
		s.modifies[ml.ID] = &cp
	}

	return nil
}

// SwapRecordCount reports the number of stored swap activity records.
func (s *EntityStore) SwapRecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.swaps)
}

// ModifyRecordCount reports the number of stored modify activity records.
func (s *EntityStore) ModifyRecordCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.modifies)
}
