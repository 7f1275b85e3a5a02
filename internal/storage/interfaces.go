package storage

import (
	"context"

	"dex-hook-stats/internal/domain"
)

// EntityStore is the key-addressed document store behind the aggregation
// engine. Get methods return storage.ErrNotFound for absent records and
// hand out copies that the caller may mutate freely; Commit persists one
// event's entire working set atomically.
type EntityStore interface {
	// GetGlobal retrieves the single global aggregate record.
	GetGlobal(ctx context.Context) (*domain.GlobalAggregate, error)

	// GetHook retrieves a hook aggregate by hook address.
	GetHook(ctx context.Context, id string) (*domain.HookAggregate, error)

	// GetPool retrieves a pool aggregate by pool id.
	GetPool(ctx context.Context, id string) (*domain.PoolAggregate, error)

	// GetToken retrieves a token aggregate by token address.
	GetToken(ctx context.Context, id string) (*domain.TokenAggregate, error)

	// GetPoolParticipant retrieves a participant by poolID-address key.
	GetPoolParticipant(ctx context.Context, id string) (*domain.PoolParticipant, error)

	// GetHookParticipant retrieves a participant by hookID-address key.
	GetHookParticipant(ctx context.Context, id string) (*domain.HookParticipant, error)

	// GetTick retrieves a boundary tick by poolID#tickIdx key.
	GetTick(ctx context.Context, id string) (*domain.Tick, error)

	// GetPoolSnapshot retrieves a period snapshot by granularity and
	// parentID-periodIndex key.
	GetPoolSnapshot(ctx context.Context, g domain.Granularity, id string) (*domain.PoolSnapshot, error)

	// GetTokenSnapshot retrieves a period snapshot by granularity and
	// parentID-periodIndex key.
	GetTokenSnapshot(ctx context.Context, g domain.Granularity, id string) (*domain.TokenSnapshot, error)

	// GetHookDaySnapshot retrieves a hook day snapshot by
	// hookID-dayIndex key.
	GetHookDaySnapshot(ctx context.Context, id string) (*domain.HookDaySnapshot, error)

	// GetGlobalDaySnapshot retrieves a global day snapshot by day index key.
	GetGlobalDaySnapshot(ctx context.Context, id string) (*domain.GlobalDaySnapshot, error)

	// GetTransaction retrieves a transaction record by hash.
	GetTransaction(ctx context.Context, id string) (*domain.TransactionRecord, error)

	// Commit persists every entity in the working set as one atomic unit.
	// Activity records are append-only: committing a working set holding a
	// swap or modify-liquidity record whose key already exists returns
	// ErrDuplicateKey and persists nothing.
	Commit(ctx context.Context, ws *WorkingSet) error
}

// SnapshotArchive is an append-only analytics sink for period snapshots
// and activity rows. Archive failures must not stall event processing.
type SnapshotArchive interface {
	// Archive appends the working set's snapshots and activity records.
	Archive(ctx context.Context, ws *WorkingSet) error
}
