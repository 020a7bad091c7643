package zerodha

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/types"
)

const (
	confirmPollInterval = 200 * time.Millisecond
	confirmTimeout      = 5 * time.Second
)

type Params struct {
	APIKey      string
	AccessToken string
}

// Client talks to the Kite Connect REST API for quotes, order routing and
// instrument metadata.
type Client struct {
	kc     *kiteconnect.Client
	stream *Stream
}

var _ interfaces.QuoteProvider = (*Client)(nil)

func NewClient(p Params) *Client {
	kc := kiteconnect.New(p.APIKey)
	kc.SetAccessToken(p.AccessToken)
	return &Client{kc: kc}
}

// AttachStream serves LTP reads from the websocket cache, falling back to a
// REST round trip when the cache has no price yet.
func (c *Client) AttachStream(s *Stream) {
	c.stream = s
}

// VerifySession confirms the access token is still valid and returns the
// authenticated user id. Kite tokens expire daily, so this runs at startup.
func (c *Client) VerifySession(ctx context.Context) (string, error) {
	profile, err := c.kc.GetUserProfile()
	if err != nil {
		return "", fmt.Errorf("kite session check failed: %w", err)
	}
	logger.Info(ctx, "Kite session verified", "user_id", profile.UserID, "user_name", profile.UserName)
	return profile.UserID, nil
}

func (c *Client) Depth(ctx context.Context, inst types.Instrument) (types.Depth, error) {
	timer := logger.StartOperation(ctx, "kite_quote", "instrument", inst.ID())

	quotes, err := c.kc.GetQuote(inst.ID())
	if err != nil {
		timer.EndWithError(err)
		return types.Depth{}, fmt.Errorf("quote fetch for %s failed: %w", inst.ID(), err)
	}
	q, ok := quotes[inst.ID()]
	if !ok {
		timer.EndWithError(interfaces.ErrDepthUnavailable)
		return types.Depth{}, fmt.Errorf("%w: no quote for %s", interfaces.ErrDepthUnavailable, inst.ID())
	}

	var d types.Depth
	for _, lv := range q.Depth.Buy {
		if lv.Price <= 0 || lv.Quantity == 0 {
			continue
		}
		d.Bids = append(d.Bids, types.DepthLevel{Price: decimal.NewFromFloat(lv.Price), Quantity: int(lv.Quantity)})
	}
	for _, lv := range q.Depth.Sell {
		if lv.Price <= 0 || lv.Quantity == 0 {
			continue
		}
		d.Asks = append(d.Asks, types.DepthLevel{Price: decimal.NewFromFloat(lv.Price), Quantity: int(lv.Quantity)})
	}

	timer.End("bids", len(d.Bids), "asks", len(d.Asks))
	return d, nil
}

func (c *Client) LTP(ctx context.Context, inst types.Instrument) (decimal.Decimal, error) {
	if c.stream != nil {
		if px, ok := c.stream.Last(inst.ID()); ok {
			return px, nil
		}
	}

	quotes, err := c.kc.GetLTP(inst.ID())
	if err != nil {
		return decimal.Zero, fmt.Errorf("ltp fetch for %s failed: %w", inst.ID(), err)
	}
	q, ok := quotes[inst.ID()]
	if !ok || q.LastPrice <= 0 {
		return decimal.Zero, fmt.Errorf("no last price for %s", inst.ID())
	}
	return decimal.NewFromFloat(q.LastPrice), nil
}

// PlaceMarketOrder sends a regular market order sized in lots and returns the
// broker order id.
func (c *Client) PlaceMarketOrder(ctx context.Context, inst types.Instrument, side types.Side, lots int) (string, error) {
	units := lots * inst.LotSize
	tx := kiteconnect.TransactionTypeBuy
	if side == types.Sell {
		tx = kiteconnect.TransactionTypeSell
	}

	timer := logger.StartOperation(ctx, "kite_place_order",
		"instrument", inst.ID(), "side", string(side), "lots", lots, "units", units)

	resp, err := c.kc.PlaceOrder(kiteconnect.VarietyRegular, kiteconnect.OrderParams{
		Exchange:        inst.Exchange,
		Tradingsymbol:   inst.Symbol,
		Product:         inst.Product,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: tx,
		Quantity:        units,
		Validity:        kiteconnect.ValidityDay,
	})
	if err != nil {
		timer.EndWithError(err)
		return "", fmt.Errorf("order placement for %s failed: %w", inst.ID(), err)
	}

	timer.End("order_id", resp.OrderID)
	return resp.OrderID, nil
}

// ConfirmFill polls the order history until the exchange reports the order
// COMPLETE, then returns the average fill price and filled quantity in units.
func (c *Client) ConfirmFill(ctx context.Context, orderID string) (decimal.Decimal, int, error) {
	deadline := time.Now().Add(confirmTimeout)
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		history, err := c.kc.GetOrderHistory(orderID)
		if err != nil {
			logger.Warn(ctx, "Order history poll failed", "order_id", orderID, "error", err)
		} else if len(history) > 0 {
			last := history[len(history)-1]
			switch last.Status {
			case kiteconnect.OrderStatusComplete:
				if last.AveragePrice <= 0 {
					return decimal.Zero, 0, fmt.Errorf("order %s complete with no average price", orderID)
				}
				return decimal.NewFromFloat(last.AveragePrice), int(last.FilledQuantity), nil
			case kiteconnect.OrderStatusRejected, kiteconnect.OrderStatusCancelled:
				return decimal.Zero, 0, fmt.Errorf("order %s %s", orderID, last.Status)
			}
		}

		if time.Now().After(deadline) {
			return decimal.Zero, 0, fmt.Errorf("order %s not confirmed within %s", orderID, confirmTimeout)
		}
		select {
		case <-ctx.Done():
			return decimal.Zero, 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ResolveTokens looks up websocket instrument tokens from the exchange
// instrument dump, one fetch per distinct exchange.
func (c *Client) ResolveTokens(ctx context.Context, instruments []types.Instrument) (map[string]uint32, error) {
	byExchange := make(map[string][]types.Instrument)
	for _, inst := range instruments {
		byExchange[inst.Exchange] = append(byExchange[inst.Exchange], inst)
	}

	tokens := make(map[string]uint32, len(instruments))
	for exchange, insts := range byExchange {
		dump, err := c.kc.GetInstrumentsByExchange(exchange)
		if err != nil {
			return nil, fmt.Errorf("instrument dump for %s failed: %w", exchange, err)
		}
		for _, inst := range insts {
			for _, row := range dump {
				if row.Tradingsymbol != inst.Symbol {
					continue
				}
				tokens[inst.ID()] = uint32(row.InstrumentToken)
				if int(row.LotSize) != inst.LotSize {
					logger.Warn(ctx, "Configured lot size differs from exchange",
						"instrument", inst.ID(), "configured", inst.LotSize, "exchange_lot_size", int(row.LotSize))
				}
				break
			}
			if _, ok := tokens[inst.ID()]; !ok {
				return nil, fmt.Errorf("instrument %s not found on %s", inst.ID(), exchange)
			}
		}
	}

	logger.Info(ctx, "Resolved instrument tokens", "count", len(tokens))
	return tokens, nil
}
