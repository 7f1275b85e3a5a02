// Package pipeline orchestrates event processing: entity resolution,
// oracle queries, ledger and participant mutation, period rollups and
// the atomic commit of each event's working set.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/ledger"
	"dex-hook-stats/internal/observability"
	"dex-hook-stats/internal/oracle"
	"dex-hook-stats/internal/participants"
	"dex-hook-stats/internal/rollup"
	"dex-hook-stats/internal/storage"
)

// MissingEntityError marks an event skipped because a required entity is
// absent. It is terminal: the event is never reprocessed.
type MissingEntityError struct {
	Kind string // "pool", "hook", "token", "global", "pool state"
	ID   string
}

func (e *MissingEntityError) Error() string {
	return fmt.Sprintf("missing %s %q: event skipped", e.Kind, e.ID)
}

// Unwrap ties the error into the storage not-found taxonomy.
func (e *MissingEntityError) Unwrap() error { return storage.ErrNotFound }

// Processor applies events to the aggregate hierarchy one at a time.
type Processor struct {
	store   storage.EntityStore
	archive storage.SnapshotArchive // optional analytics sink
	oracle  oracle.Oracle
	tracker *participants.Tracker
	rollups *rollup.Manager
	metrics *observability.Metrics // optional
	cfg     oracle.PricingConfig

	// SkippedEvents counts events terminated by a missing entity, the
	// dominant failure mode, so operators can observe it even without
	// the metrics endpoint.
	SkippedEvents int64
}

// Options configures a Processor.
type Options struct {
	Store   storage.EntityStore
	Archive storage.SnapshotArchive
	Oracle  oracle.Oracle
	Metrics *observability.Metrics
	Pricing oracle.PricingConfig
}

// New creates a Processor.
func New(opts Options) *Processor {
	return &Processor{
		store:   opts.Store,
		archive: opts.Archive,
		oracle:  opts.Oracle,
		tracker: participants.NewTracker(opts.Store),
		rollups: rollup.NewManager(opts.Store),
		metrics: opts.Metrics,
		cfg:     opts.Pricing,
	}
}

// workingState is the per-event load of the entity hierarchy.
type workingState struct {
	ws     *storage.WorkingSet
	global *domain.GlobalAggregate
	hook   *domain.HookAggregate
	pool   *domain.PoolAggregate
	token0 *domain.TokenAggregate
	token1 *domain.TokenAggregate
}

// loadWorkingState resolves the pool and all its ancestors. Any absent
// entity yields a MissingEntityError; nothing is mutated on that path.
func (p *Processor) loadWorkingState(ctx context.Context, poolID string) (*workingState, error) {
	pool, err := p.store.GetPool(ctx, poolID)
	if err != nil {
		return nil, p.missing(err, "pool", poolID)
	}

	global, err := p.store.GetGlobal(ctx)
	if err != nil {
		return nil, p.missing(err, "global", domain.GlobalAggregateID)
	}

	hook, err := p.store.GetHook(ctx, pool.HookID)
	if err != nil {
		return nil, p.missing(err, "hook", pool.HookID)
	}

	token0, err := p.store.GetToken(ctx, pool.Token0)
	if err != nil {
		return nil, p.missing(err, "token", pool.Token0)
	}

	token1, err := p.store.GetToken(ctx, pool.Token1)
	if err != nil {
		return nil, p.missing(err, "token", pool.Token1)
	}

	ws := storage.NewWorkingSet()
	ws.Global = global
	ws.Hooks[hook.ID] = hook
	ws.Pools[pool.ID] = pool
	ws.Tokens[token0.ID] = token0
	ws.Tokens[token1.ID] = token1
	ws.EthPriceUSD = global.EthPriceUSD

	return &workingState{
		ws:     ws,
		global: global,
		hook:   hook,
		pool:   pool,
		token0: token0,
		token1: token1,
	}, nil
}

// missing converts a store lookup failure into the skip taxonomy, or
// passes infrastructure errors through.
func (p *Processor) missing(err error, kind, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &MissingEntityError{Kind: kind, ID: id}
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

// recordSkip counts and logs a terminal skip.
func (p *Processor) recordSkip(me *MissingEntityError) {
	p.SkippedEvents++
	p.metrics.RecordSkipped(me.Kind)
	log.Printf("[pipeline] %v", me)
}

// reportAlarms surfaces negative-TVL conditions. Processing continues
// with the computed values; halting would stall the whole stream.
func (p *Processor) reportAlarms(alarms []ledger.NegativeTVL) {
	for _, a := range alarms {
		p.metrics.RecordNegativeTVL(a.Level)
		log.Printf("[ledger] ALARM %s", a)
	}
}

// loadOrCreateTransaction resolves the transaction record for an event.
func (p *Processor) loadOrCreateTransaction(ctx context.Context, ws *storage.WorkingSet, coords domain.EventCoords, timestamp int64) (*domain.TransactionRecord, error) {
	if tx, ok := ws.Transactions[coords.TxHash]; ok {
		return tx, nil
	}
	tx, err := p.store.GetTransaction(ctx, coords.TxHash)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound):
		tx = &domain.TransactionRecord{
			ID:          coords.TxHash,
			BlockNumber: coords.BlockNumber,
			Timestamp:   timestamp,
		}
	default:
		return nil, fmt.Errorf("get transaction %s: %w", coords.TxHash, err)
	}
	ws.Transactions[tx.ID] = tx
	return tx, nil
}

// commit persists the working set and forwards it to the analytics
// archive. Archive failures are logged, never fatal.
func (p *Processor) commit(ctx context.Context, ws *storage.WorkingSet, kind string) error {
	start := time.Now()
	if err := p.store.Commit(ctx, ws); err != nil {
		return fmt.Errorf("commit %s working set: %w", kind, err)
	}
	p.metrics.ObserveCommit(kind, time.Since(start).Seconds())
	p.metrics.RecordCommitted(kind)

	if p.archive != nil {
		if err := p.archive.Archive(ctx, ws); err != nil {
			if p.metrics != nil {
				p.metrics.ArchiveErrors.Inc()
			}
			log.Printf("[archive] non-fatal: %v", err)
		}
	}
	return nil
}
