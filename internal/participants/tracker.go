// Package participants tracks unique-user and unique-LP membership at
// pool and hook scope with create-on-first-touch and retire-on-zero
// semantics.
package participants

import (
	"context"
	"errors"
	"fmt"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// Tracker resolves participant records through the entity store and
// applies the unique-counter transitions.
type Tracker struct {
	store storage.EntityStore
}

// NewTracker creates a participant tracker backed by the given store.
func NewTracker(store storage.EntityStore) *Tracker {
	return &Tracker{store: store}
}

// TouchPoolParticipant loads or creates the pool participant for an
// address. On first touch the pool's unique-user counter moves exactly
// once. The record is registered in the working set either way.
func (t *Tracker) TouchPoolParticipant(ctx context.Context, ws *storage.WorkingSet, pool *domain.PoolAggregate, address string, timestamp int64) (*domain.PoolParticipant, bool, error) {
	id := domain.PoolParticipantID(pool.ID, address)
	if p, ok := ws.PoolParticipants[id]; ok {
		return p, false, nil
	}

	p, err := t.store.GetPoolParticipant(ctx, id)
	switch {
	case err == nil:
		ws.PoolParticipants[id] = p
		return p, false, nil
	case errors.Is(err, storage.ErrNotFound):
		p = domain.NewPoolParticipant(pool.ID, address, timestamp)
		ws.PoolParticipants[id] = p
		pool.UniqueUserCount = domain.AddInt(pool.UniqueUserCount, 1)
		return p, true, nil
	default:
		return nil, false, fmt.Errorf("get pool participant %s: %w", id, err)
	}
}

// TouchHookParticipant loads or creates the hook participant for an
// address. On first touch the hook's unique-user counter and the global
// hook unique-user counter each move exactly once.
func (t *Tracker) TouchHookParticipant(ctx context.Context, ws *storage.WorkingSet, hook *domain.HookAggregate, global *domain.GlobalAggregate, address string, timestamp int64) (*domain.HookParticipant, bool, error) {
	id := domain.HookParticipantID(hook.ID, address)
	if p, ok := ws.HookParticipants[id]; ok {
		return p, false, nil
	}

	p, err := t.store.GetHookParticipant(ctx, id)
	switch {
	case err == nil:
		ws.HookParticipants[id] = p
		return p, false, nil
	case errors.Is(err, storage.ErrNotFound):
		p = domain.NewHookParticipant(hook.ID, address, timestamp)
		ws.HookParticipants[id] = p
		hook.UniqueUserCount = domain.AddInt(hook.UniqueUserCount, 1)
		global.HookUniqueUserCount = domain.AddInt(global.HookUniqueUserCount, 1)
		return p, true, nil
	default:
		return nil, false, fmt.Errorf("get hook participant %s: %w", id, err)
	}
}

// NoteLiquidityEntered records that a participant with both balances at
// zero is about to receive a position. The pool's unique-LP counter
// always moves; the hook's moves only when this is the address's first
// active pool under the hook.
func NoteLiquidityEntered(pool *domain.PoolAggregate, hook *domain.HookAggregate, hookPart *domain.HookParticipant) {
	pool.UniqueLiquidityProviderCount = domain.AddInt(pool.UniqueLiquidityProviderCount, 1)
	if domain.IsZeroBig(hookPart.ActivePoolCount) {
		hook.UniqueLiquidityProviderCount = domain.AddInt(hook.UniqueLiquidityProviderCount, 1)
	}
	hookPart.ActivePoolCount = domain.AddInt(hookPart.ActivePoolCount, 1)
}

// NoteLiquidityExited records that a participant's balances both reached
// zero. The pool's unique-LP counter always moves; the hook's moves only
// when this was the address's last active pool under the hook.
func NoteLiquidityExited(pool *domain.PoolAggregate, hook *domain.HookAggregate, hookPart *domain.HookParticipant) {
	pool.UniqueLiquidityProviderCount = domain.AddInt(pool.UniqueLiquidityProviderCount, -1)
	hookPart.ActivePoolCount = domain.AddInt(hookPart.ActivePoolCount, -1)
	if hookPart.ActivePoolCount.Sign() <= 0 {
		hook.UniqueLiquidityProviderCount = domain.AddInt(hook.UniqueLiquidityProviderCount, -1)
	}
}
