// Package ingestion pulls decoded pool manager events from external
// sources, enforces deterministic chain ordering and feeds them through
// the processing pipeline one at a time.
package ingestion

import (
	"context"
	"io"

	"dex-hook-stats/internal/domain"
)

// EventSource provides decoded events in chain order. Next blocks until
// an event is available, the source is exhausted (io.EOF) or ctx is
// cancelled.
type EventSource interface {
	Next(ctx context.Context) (*domain.Event, error)
}

// SliceSource replays a fixed slice of events, sorting it once into
// deterministic order. Used by the offline aggregator and in tests.
type SliceSource struct {
	events []*domain.Event
	pos    int
}

// NewSliceSource creates a source over the given events.
func NewSliceSource(events []*domain.Event) *SliceSource {
	sorted := make([]*domain.Event, len(events))
	copy(sorted, events)
	SortEvents(sorted)
	return &SliceSource{events: sorted}
}

var _ EventSource = (*SliceSource)(nil)

// Next returns the next event or io.EOF when the slice is exhausted.
func (s *SliceSource) Next(ctx context.Context) (*domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}
