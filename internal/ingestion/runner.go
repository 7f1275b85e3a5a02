package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/observability"
	"dex-hook-stats/internal/oracle"
	"dex-hook-stats/internal/pipeline"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
)

// Runner pulls events from a source and applies them through the
// processor one at a time, preserving chain order.
type Runner struct {
	source    EventSource
	processor *pipeline.Processor
	metrics   *observability.Metrics

	maxRetries int
	retryDelay time.Duration

	lastCoords *domain.EventCoords
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source    EventSource
	Processor *pipeline.Processor
	Metrics   *observability.Metrics
	// MaxRetries bounds retries of a retryable failure per event.
	// Default: 3.
	MaxRetries int
	// RetryDelay is the initial backoff delay. Default: 500ms.
	RetryDelay time.Duration
}

// RunResult summarizes a completed run.
type RunResult struct {
	Processed int64 // events applied and committed
	Skipped   int64 // events dropped for missing entities or ordering
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := opts.RetryDelay
	if retryDelay == 0 {
		retryDelay = defaultRetryDelay
	}
	return &Runner{
		source:     opts.Source,
		processor:  opts.Processor,
		metrics:    opts.Metrics,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Run consumes the source until exhaustion (io.EOF), cancellation or an
// unrecoverable error. Events that arrive out of order relative to the
// last applied event are dropped; replaying them would double-count.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	res := &RunResult{}
	for {
		ev, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, fmt.Errorf("next event: %w", err)
		}

		coords := ev.Coords()
		if r.lastCoords != nil && CompareCoords(*r.lastCoords, coords) >= 0 {
			log.Printf("[runner] dropping out-of-order event %s/%d (block %d)",
				coords.TxHash, coords.LogIndex, coords.BlockNumber)
			if r.metrics != nil {
				r.metrics.RecordError("out_of_order")
			}
			res.Skipped++
			continue
		}

		if err := r.apply(ctx, ev); err != nil {
			var me *pipeline.MissingEntityError
			if errors.As(err, &me) {
				// Terminal skip; the processor already counted it.
				res.Skipped++
				r.lastCoords = &coords
				continue
			}
			return res, err
		}
		res.Processed++
		r.lastCoords = &coords
	}
}

// apply dispatches one event, retrying retryable infrastructure
// failures with exponential backoff.
func (r *Runner) apply(ctx context.Context, ev *domain.Event) error {
	var lastErr error
	for attempt := 0; attempt < r.maxRetries; attempt++ {
		var err error
		switch ev.Kind {
		case domain.EventKindSwap:
			err = r.processor.ProcessSwap(ctx, ev.Swap)
		case domain.EventKindModifyLiquidity:
			err = r.processor.ProcessModifyLiquidity(ctx, ev.ModifyLiquidity)
		default:
			return fmt.Errorf("unknown event kind %q", ev.Kind)
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, oracle.ErrUnavailable) {
			return err
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if r.metrics != nil {
			r.metrics.OracleRetries.Inc()
		}
		delay := r.retryDelay * time.Duration(1<<attempt)
		log.Printf("[runner] retry %d/%d for event %s after %v: %v",
			attempt+1, r.maxRetries, ev.Coords().TxHash, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("event %s: retries exhausted: %w", ev.Coords().TxHash, lastErr)
}
