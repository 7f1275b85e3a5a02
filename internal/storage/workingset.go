package storage

import (
	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
)

// snapshotKey namespaces period snapshots by granularity so that a day
// and an hour bucket with the same numeric index never collide.
func snapshotKey(g domain.Granularity, id string) string {
	return string(g) + ":" + id
}

// WorkingSet collects every entity mutated while processing one event.
// The pipeline loads copies from the store, registers them here, mutates
// them in place, and commits the whole set atomically.
type WorkingSet struct {
	Global           *domain.GlobalAggregate
	Hooks            map[string]*domain.HookAggregate
	Pools            map[string]*domain.PoolAggregate
	Tokens           map[string]*domain.TokenAggregate
	PoolParticipants map[string]*domain.PoolParticipant
	HookParticipants map[string]*domain.HookParticipant
	Ticks            map[string]*domain.Tick

	PoolSnapshots      map[string]*domain.PoolSnapshot
	TokenSnapshots     map[string]*domain.TokenSnapshot
	HookDaySnapshots   map[string]*domain.HookDaySnapshot
	GlobalDaySnapshots map[string]*domain.GlobalDaySnapshot

	Transactions      map[string]*domain.TransactionRecord
	Swaps             []*domain.SwapRecord
	ModifyLiquidities []*domain.ModifyLiquidityRecord

	// EthPriceUSD is the native asset's USD price in effect for this
	// event, threaded explicitly instead of living in ambient state. It
	// is refreshed by the swap handler and persisted with the global
	// record.
	EthPriceUSD decimal.Decimal
}

// NewWorkingSet returns an empty working set.
func NewWorkingSet() *WorkingSet {
	return &WorkingSet{
		Hooks:              make(map[string]*domain.HookAggregate),
		Pools:              make(map[string]*domain.PoolAggregate),
		Tokens:             make(map[string]*domain.TokenAggregate),
		PoolParticipants:   make(map[string]*domain.PoolParticipant),
		HookParticipants:   make(map[string]*domain.HookParticipant),
		Ticks:              make(map[string]*domain.Tick),
		PoolSnapshots:      make(map[string]*domain.PoolSnapshot),
		TokenSnapshots:     make(map[string]*domain.TokenSnapshot),
		HookDaySnapshots:   make(map[string]*domain.HookDaySnapshot),
		GlobalDaySnapshots: make(map[string]*domain.GlobalDaySnapshot),
		Transactions:       make(map[string]*domain.TransactionRecord),
	}
}

// PutPoolSnapshot registers a snapshot under its granularity-scoped key.
func (ws *WorkingSet) PutPoolSnapshot(s *domain.PoolSnapshot) {
	ws.PoolSnapshots[snapshotKey(s.Granularity, s.ID)] = s
}

// PoolSnapshot returns a registered snapshot, or nil.
func (ws *WorkingSet) PoolSnapshot(g domain.Granularity, id string) *domain.PoolSnapshot {
	return ws.PoolSnapshots[snapshotKey(g, id)]
}

// PutTokenSnapshot registers a snapshot under its granularity-scoped key.
func (ws *WorkingSet) PutTokenSnapshot(s *domain.TokenSnapshot) {
	ws.TokenSnapshots[snapshotKey(s.Granularity, s.ID)] = s
}

// TokenSnapshot returns a registered snapshot, or nil.
func (ws *WorkingSet) TokenSnapshot(g domain.Granularity, id string) *domain.TokenSnapshot {
	return ws.TokenSnapshots[snapshotKey(g, id)]
}
