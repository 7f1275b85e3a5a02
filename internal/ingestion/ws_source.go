package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/gorilla/websocket"

	"dex-hook-stats/internal/domain"
	"dex-hook-stats/internal/observability"
)

// WSSourceConfig configures WebSocket source behavior.
type WSSourceConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// Buffer is the capacity of the decoded event channel.
	Buffer int
}

// DefaultWSSourceConfig returns default WebSocket source configuration.
func DefaultWSSourceConfig() WSSourceConfig {
	return WSSourceConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		Buffer:            256,
	}
}

// eventFrame is the wire representation of a decoded event. Unbounded
// integers travel as decimal strings.
type eventFrame struct {
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

// WSEventSource streams decoded events from a WebSocket feed. It dials
// on Run, reads JSON frames and reconnects with exponential backoff on
// connection errors.
type WSEventSource struct {
	endpoint string
	config   WSSourceConfig
	metrics  *observability.Metrics

	events chan *domain.Event
}

// NewWSEventSource creates a WebSocket-backed event source. Run must be
// started before Next yields events.
func NewWSEventSource(endpoint string, config WSSourceConfig, metrics *observability.Metrics) *WSEventSource {
	return &WSEventSource{
		endpoint: endpoint,
		config:   config,
		metrics:  metrics,
		events:   make(chan *domain.Event, config.Buffer),
	}
}

var _ EventSource = (*WSEventSource)(nil)

// Next returns the next decoded event from the feed.
func (s *WSEventSource) Next(ctx context.Context) (*domain.Event, error) {
	select {
	case ev, ok := <-s.events:
		if !ok {
			return nil, fmt.Errorf("event source closed")
		}
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run owns the connection lifecycle until ctx is cancelled. The event
// channel is closed on return.
func (s *WSEventSource) Run(ctx context.Context) error {
	defer close(s.events)

	delay := s.config.ReconnectDelay
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := s.dial(ctx)
		if err != nil {
			log.Printf("[ws] dial %s failed, retrying in %v: %v", s.endpoint, delay, err)
			if s.metrics != nil {
				s.metrics.SourceReconnect.Inc()
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > s.config.MaxReconnectDelay {
				delay = s.config.MaxReconnectDelay
			}
			continue
		}

		// Connected; reset backoff and read until the connection dies.
		delay = s.config.ReconnectDelay
		err = s.readLoop(ctx, conn)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[ws] connection lost, reconnecting: %v", err)
		if s.metrics != nil {
			s.metrics.SourceReconnect.Inc()
		}
	}
}

func (s *WSEventSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

func (s *WSEventSource) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		if s.config.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame eventFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			// A malformed frame is a feed bug, not a connection fault.
			log.Printf("[ws] dropping malformed frame: %v", err)
			continue
		}
		ev, err := decodeFrame(&frame)
		if err != nil {
			log.Printf("[ws] dropping frame %s/%d: %v", frame.TxHash, frame.LogIndex, err)
			continue
		}
		if s.metrics != nil {
			s.metrics.EventsReceived.Inc()
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// decodeFrame converts a wire frame into the domain event union.
func decodeFrame(f *eventFrame) (*domain.Event, error) {
	coords := domain.EventCoords{
		BlockNumber: f.BlockNumber,
		TxIndex:     f.TxIndex,
		LogIndex:    f.LogIndex,
		TxHash:      f.TxHash,
	}

	switch domain.EventKind(f.Kind) {
	case domain.EventKindSwap:
		amount0, err := parseBig(f.Amount0, "amount0")
		if err != nil {
			return nil, err
		}
		amount1, err := parseBig(f.Amount1, "amount1")
		if err != nil {
			return nil, err
		}
		liquidity, err := parseBig(f.Liquidity, "liquidity")
		if err != nil {
			return nil, err
		}
		sqrtPrice, err := parseBig(f.SqrtPriceX96, "sqrt_price_x96")
		if err != nil {
			return nil, err
		}
		if f.Tick == nil {
			return nil, fmt.Errorf("swap frame missing tick")
		}
		return &domain.Event{
			Kind: domain.EventKindSwap,
			Swap: &domain.SwapEvent{
				PoolID:       f.PoolID,
				Sender:       f.Sender,
				Origin:       f.Origin,
				Amount0:      amount0,
				Amount1:      amount1,
				Liquidity:    liquidity,
				Tick:         *f.Tick,
				SqrtPriceX96: sqrtPrice,
				Timestamp:    f.Timestamp,
				Coords:       coords,
			},
		}, nil

	case domain.EventKindModifyLiquidity:
		delta, err := parseBig(f.Delta, "liquidity_delta")
		if err != nil {
			return nil, err
		}
		return &domain.Event{
			Kind: domain.EventKindModifyLiquidity,
			ModifyLiquidity: &domain.ModifyLiquidityEvent{
				PoolID:         f.PoolID,
				Sender:         f.Sender,
				Origin:         f.Origin,
				LiquidityDelta: delta,
				TickLower:      f.TickLower,
				TickUpper:      f.TickUpper,
				Timestamp:      f.Timestamp,
				Coords:         coords,
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", f.Kind)
}

func parseBig(s, field string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("missing %s", field)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s %q", field, s)
	}
	return v, nil
}
