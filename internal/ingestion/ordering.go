package ingestion

import (
	"errors"
	"sort"

	"dex-hook-stats/internal/domain"
)

// ErrInvalidOrdering is returned when events are not properly ordered.
var ErrInvalidOrdering = errors.New("events are not in deterministic order")

// SortEvents orders events by (block ASC, tx_index ASC, log_index ASC).
// This provides deterministic ordering based on chain order.
func SortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool {
		return CompareCoords(events[i].Coords(), events[j].Coords()) < 0
	})
}

// ValidateOrdering checks that events are strictly ordered with no
// duplicate coordinates. Returns ErrInvalidOrdering if not.
func ValidateOrdering(events []*domain.Event) error {
	for i := 1; i < len(events); i++ {
		if CompareCoords(events[i-1].Coords(), events[i].Coords()) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// CompareCoords returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (block ASC, tx_index ASC, log_index ASC)
func CompareCoords(a, b domain.EventCoords) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.TxIndex != b.TxIndex {
		if a.TxIndex < b.TxIndex {
			return -1
		}
		return 1
	}
	if a.LogIndex != b.LogIndex {
		if a.LogIndex < b.LogIndex {
			return -1
		}
		return 1
	}
	return 0
}
