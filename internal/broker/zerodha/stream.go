package zerodha

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"scalp-terminal/internal/logger"
)

// Stream keeps a last-price cache fed by the Kite websocket so mark-to-market
// refreshes avoid a REST round trip per tick.
type Stream struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string

	mu        sync.RWMutex
	last      map[uint32]decimal.Decimal
	idToToken map[string]uint32

	subscribe []uint32
	started   bool
}

func NewStream(p Params) *Stream {
	return &Stream{
		apiKey:      p.APIKey,
		accessToken: p.AccessToken,
		last:        make(map[uint32]decimal.Decimal),
		idToToken:   make(map[string]uint32),
	}
}

// Start connects the websocket and subscribes the given instrument tokens in
// LTP mode. Subscription happens in the connect callback so a reconnect
// resubscribes automatically.
func (s *Stream) Start(ctx context.Context, tokens map[string]uint32) error {
	if s.started {
		return nil
	}

	s.mu.Lock()
	s.subscribe = s.subscribe[:0]
	for id, token := range tokens {
		s.idToToken[id] = token
		s.subscribe = append(s.subscribe, token)
	}
	s.mu.Unlock()

	s.ticker = kiteticker.New(s.apiKey, s.accessToken)
	s.ticker.OnConnect(s.onConnect)
	s.ticker.OnError(s.onError)
	s.ticker.OnClose(s.onClose)
	s.ticker.OnReconnect(s.onReconnect)
	s.ticker.OnNoReconnect(s.onNoReconnect)
	s.ticker.OnTick(s.onTick)
	s.ticker.OnOrderUpdate(s.onOrderUpdate)

	go func() {
		logger.Info(ctx, "Starting Kite ticker stream", "instruments", len(tokens))
		s.ticker.Serve()
	}()

	s.started = true
	return nil
}

func (s *Stream) Stop(ctx context.Context) {
	if s.ticker != nil {
		logger.Info(ctx, "Stopping Kite ticker stream")
		s.ticker.Stop()
		s.started = false
	}
}

// Last returns the cached last traded price for an instrument id.
func (s *Stream) Last(instrumentID string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.idToToken[instrumentID]
	if !ok {
		return decimal.Zero, false
	}
	px, ok := s.last[token]
	if !ok || !px.IsPositive() {
		return decimal.Zero, false
	}
	return px, true
}

func (s *Stream) onConnect() {
	logger.Info(context.Background(), "Ticker connected")

	s.mu.RLock()
	tokens := make([]uint32, len(s.subscribe))
	copy(tokens, s.subscribe)
	s.mu.RUnlock()

	if err := s.ticker.Subscribe(tokens); err != nil {
		logger.ErrorWithErr(context.Background(), "Ticker subscribe failed", err)
		return
	}
	if err := s.ticker.SetMode(kiteticker.ModeLTP, tokens); err != nil {
		logger.ErrorWithErr(context.Background(), "Ticker mode change failed", err)
	}
}

func (s *Stream) onError(err error) {
	logger.ErrorWithErr(context.Background(), "Ticker error", err)
}

func (s *Stream) onClose(code int, reason string) {
	logger.Warn(context.Background(), "Ticker connection closed", "code", code, "reason", reason)
}

func (s *Stream) onReconnect(attempt int, delay time.Duration) {
	logger.Info(context.Background(), "Ticker reconnecting", "attempt", attempt, "delay", delay)
}

func (s *Stream) onNoReconnect(attempt int) {
	logger.Warn(context.Background(), "Ticker gave up reconnecting", "attempts", attempt)
}

func (s *Stream) onTick(tick models.Tick) {
	if tick.LastPrice <= 0 {
		return
	}
	s.mu.Lock()
	s.last[tick.InstrumentToken] = decimal.NewFromFloat(tick.LastPrice)
	s.mu.Unlock()
}

func (s *Stream) onOrderUpdate(order kiteconnect.Order) {
	logger.Debug(context.Background(), "Order update", "order_id", order.OrderID, "status", order.Status)
}
