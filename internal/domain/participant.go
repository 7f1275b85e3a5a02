package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PoolParticipantID builds the composite key for a pool participant.
func PoolParticipantID(poolID, address string) string {
	return poolID + "-" + address
}

// HookParticipantID builds the composite key for a hook participant.
func HookParticipantID(hookID, address string) string {
	return hookID + "-" + address
}

// PoolParticipant tracks one address's locked balances within one pool.
type PoolParticipant struct {
	ID                        string // poolID-address
	PoolID                    string
	Address                   string
	FirstInteractionTimestamp int64
	TotalValueLockedToken0    decimal.Decimal
	TotalValueLockedToken1    decimal.Decimal
}

// NewPoolParticipant returns a zero-balance participant record.
func NewPoolParticipant(poolID, address string, ts int64) *PoolParticipant {
	return &PoolParticipant{
		ID:                        PoolParticipantID(poolID, address),
		PoolID:                    poolID,
		Address:                   address,
		FirstInteractionTimestamp: ts,
	}
}

// HasPosition reports whether the participant currently has a non-zero
// locked balance in either token leg.
func (p *PoolParticipant) HasPosition() bool {
	return p.TotalValueLockedToken0.IsPositive() || p.TotalValueLockedToken1.IsPositive()
}

// HookParticipant tracks one address's presence under one hook.
// ActivePoolCount counts the pools under the hook where the address
// currently provides liquidity; the hook-level unique-LP counter moves
// only on zero crossings of this count.
type HookParticipant struct {
	ID                        string // hookID-address
	HookID                    string
	Address                   string
	FirstInteractionTimestamp int64
	ActivePoolCount           *big.Int
}

// NewHookParticipant returns a fresh hook participant record.
func NewHookParticipant(hookID, address string, ts int64) *HookParticipant {
	return &HookParticipant{
		ID:                        HookParticipantID(hookID, address),
		HookID:                    hookID,
		Address:                   address,
		FirstInteractionTimestamp: ts,
		ActivePoolCount:           BigZero(),
	}
}
