package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/storage"
)

// fixture is the JSON shape of an offline run: the genesis entity set
// plus the ordered event log to replay over it.
type fixture struct {
	EthPriceUSD string          `json:"eth_price_usd"`
	Tokens      []fixtureToken  `json:"tokens"`
	Hooks       []fixtureHook   `json:"hooks"`
	Pools       []fixturePool   `json:"pools"`
	Events      []fixtureEvent  `json:"events"`
}

type fixtureToken struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Decimals   int32  `json:"decimals"`
	DerivedETH string `json:"derived_eth"`
}

type fixtureHook struct {
	ID                 string `json:"id"`
	CreatedAtTimestamp int64  `json:"created_at_timestamp"`
}

type fixturePool struct {
	ID                 string `json:"id"`
	Token0             string `json:"token0"`
	Token1             string `json:"token1"`
	HookID             string `json:"hook_id"`
	FeeTier            int64  `json:"fee_tier"`
	Tick               *int32 `json:"tick"`
	SqrtPriceX96       string `json:"sqrt_price_x96"`
	Liquidity          string `json:"liquidity"`
	CreatedAtTimestamp int64  `json:"created_at_timestamp"`
}

type fixtureEvent struct {
	Kind         string `json:"kind"`
	PoolID       string `json:"pool_id"`
	Sender       string `json:"sender"`
	Origin       string `json:"origin"`
	Amount0      string `json:"amount0,omitempty"`
	Amount1      string `json:"amount1,omitempty"`
	Liquidity    string `json:"liquidity,omitempty"`
	SqrtPriceX96 string `json:"sqrt_price_x96,omitempty"`
	Tick         *int32 `json:"tick,omitempty"`
	Delta        string `json:"liquidity_delta,omitempty"`
	TickLower    int32  `json:"tick_lower,omitempty"`
	TickUpper    int32  `json:"tick_upper,omitempty"`
	Timestamp    int64  `json:"timestamp"`
	BlockNumber  int64  `json:"block_number"`
	TxIndex      int    `json:"tx_index"`
	LogIndex     int    `json:"log_index"`
	TxHash       string `json:"tx_hash"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// seedEntities commits the fixture's genesis entity set so that every
// event finds its pool, hook and token records.
func seedEntities(ctx context.Context, store storage.EntityStore, f *fixture) (map[string]decimal.Decimal, error) {
	ws := storage.NewWorkingSet()

	ethPrice, err := parseFixtureDec(f.EthPriceUSD, "eth_price_usd")
	if err != nil {
		return nil, err
	}
	global := domain.NewGlobalAggregate()
	global.EthPriceUSD = ethPrice
	ws.Global = global
	ws.EthPriceUSD = ethPrice

	derived := make(map[string]decimal.Decimal, len(f.Tokens))
	for _, ft := range f.Tokens {
		token := domain.NewTokenAggregate(ft.ID, ft.Symbol, ft.Decimals)
		if ft.DerivedETH != "" {
			d, err := parseFixtureDec(ft.DerivedETH, "token "+ft.ID+" derived_eth")
			if err != nil {
				return nil, err
			}
			token.DerivedETH = d
			derived[ft.ID] = d
		}
		ws.Tokens[token.ID] = token
	}

	for _, fh := range f.Hooks {
		ws.Hooks[fh.ID] = domain.NewHookAggregate(fh.ID, fh.CreatedAtTimestamp)
	}
	if _, ok := ws.Hooks[domain.ZeroHookID]; !ok {
		ws.Hooks[domain.ZeroHookID] = domain.NewHookAggregate(domain.ZeroHookID, 0)
	}

	for _, fp := range f.Pools {
		hookID := fp.HookID
		if hookID == "" {
			hookID = domain.ZeroHookID
		}
		pool := domain.NewPoolAggregate(fp.ID, fp.Token0, fp.Token1, hookID, fp.FeeTier, fp.CreatedAtTimestamp)
		pool.Tick = fp.Tick
		if fp.SqrtPriceX96 != "" {
			if pool.SqrtPriceX96, err = parseFixtureBig(fp.SqrtPriceX96, "pool "+fp.ID+" sqrt_price_x96"); err != nil {
				return nil, err
			}
		}
		if fp.Liquidity != "" {
			if pool.Liquidity, err = parseFixtureBig(fp.Liquidity, "pool "+fp.ID+" liquidity"); err != nil {
				return nil, err
			}
		}
		hook, ok := ws.Hooks[hookID]
		if !ok {
			return nil, fmt.Errorf("pool %s references unknown hook %s", fp.ID, hookID)
		}
		hook.PoolCount = domain.AddInt(hook.PoolCount, 1)
		ws.Pools[pool.ID] = pool
	}

	if err := store.Commit(ctx, ws); err != nil {
		return nil, fmt.Errorf("seed entities: %w", err)
	}
	return derived, nil
}

// decodeEvents converts fixture events into the domain union.
func decodeEvents(f *fixture) ([]*domain.Event, error) {
	events := make([]*domain.Event, 0, len(f.Events))
	for i, fe := range f.Events {
		ev, err := decodeFixtureEvent(&fe)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeFixtureEvent(fe *fixtureEvent) (*domain.Event, error) {
	coords := domain.EventCoords{
		BlockNumber: fe.BlockNumber,
		TxIndex:     fe.TxIndex,
		LogIndex:    fe.LogIndex,
		TxHash:      fe.TxHash,
	}

	switch domain.EventKind(fe.Kind) {
	case domain.EventKindSwap:
		if fe.Tick == nil {
			return nil, fmt.Errorf("swap event missing tick")
		}
		amount0, err := parseFixtureBig(fe.Amount0, "amount0")
		if err != nil {
			return nil, err
		}
		amount1, err := parseFixtureBig(fe.Amount1, "amount1")
		if err != nil {
			return nil, err
		}
		liquidity, err := parseFixtureBig(fe.Liquidity, "liquidity")
		if err != nil {
			return nil, err
		}
		sqrtPrice, err := parseFixtureBig(fe.SqrtPriceX96, "sqrt_price_x96")
		if err != nil {
			return nil, err
		}
		return &domain.Event{
			Kind: domain.EventKindSwap,
			Swap: &domain.SwapEvent{
				PoolID:       fe.PoolID,
				Sender:       fe.Sender,
				Origin:       fe.Origin,
				Amount0:      amount0,
				Amount1:      amount1,
				Liquidity:    liquidity,
				Tick:         *fe.Tick,
				SqrtPriceX96: sqrtPrice,
				Timestamp:    fe.Timestamp,
				Coords:       coords,
			},
		}, nil

	case domain.EventKindModifyLiquidity:
		delta, err := parseFixtureBig(fe.Delta, "liquidity_delta")
		if err != nil {
			return nil, err
		}
		return &domain.Event{
			Kind: domain.EventKindModifyLiquidity,
			ModifyLiquidity: &domain.ModifyLiquidityEvent{
				PoolID:         fe.PoolID,
				Sender:         fe.Sender,
				Origin:         fe.Origin,
				LiquidityDelta: delta,
				TickLower:      fe.TickLower,
				TickUpper:      fe.TickUpper,
				Timestamp:      fe.Timestamp,
				Coords:         coords,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", fe.Kind)
}

func parseFixtureBig(s, field string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing %s", field)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}

func parseFixtureDec(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, s)
	}
	return d, nil
}
