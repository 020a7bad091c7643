package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a fill.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL.
func (s Side) Sign() int {
	if s == Buy {
		return 1
	}
	return -1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Source tags where a fill came from.
type Source string

const (
	SourcePaper Source = "PAPER"
	SourceReal  Source = "REAL"
)

// Instrument is the immutable identity of a tradable contract.
// Referenced everywhere else by its ID.
type Instrument struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Exchange string `yaml:"exchange" json:"exchange"`
	LotSize  int    `yaml:"lot_size" json:"lotSize"`
	Product  string `yaml:"product" json:"product"`
}

// ID returns the exchange-qualified identifier, e.g. "NFO:NIFTY24AUGFUT".
func (i Instrument) ID() string { return i.Exchange + ":" + i.Symbol }

func (i Instrument) String() string {
	return fmt.Sprintf("%s (lot %d, %s)", i.ID(), i.LotSize, i.Product)
}

// Fill is one atomic execution event. Quantity is in lots.
type Fill struct {
	InstrumentID string
	Side         Side
	Quantity     int
	Price        decimal.Decimal
	Time         time.Time
	Source       Source
	OrderID      string
}

// DepthLevel is one price level of a market depth snapshot.
type DepthLevel struct {
	Price    decimal.Decimal
	Quantity int
}

// Depth holds best-first bid and ask levels from a quote.
type Depth struct {
	Bids []DepthLevel
	Asks []DepthLevel
}

// BestBid returns the top bid level, if any.
func (d Depth) BestBid() (DepthLevel, bool) {
	if len(d.Bids) == 0 {
		return DepthLevel{}, false
	}
	return d.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (d Depth) BestAsk() (DepthLevel, bool) {
	if len(d.Asks) == 0 {
		return DepthLevel{}, false
	}
	return d.Asks[0], true
}

// Trade is a completed round trip between one entry lot segment and one
// exit fill. Immutable once emitted. Qty is the matched lot count; EntryQty
// is the original size of the lot the trade closed against, so Qty <= EntryQty.
type Trade struct {
	ID              string
	InstrumentID    string
	EntryTime       time.Time
	EntryPrice      decimal.Decimal
	EntryQty        int
	ExitTime        time.Time
	ExitPrice       decimal.Decimal
	Qty             int
	PnL             decimal.Decimal
	PnLPercent      decimal.Decimal
	DurationSeconds int64
	Turnover        decimal.Decimal
	Source          Source
}

// SessionStats is the running aggregate over the session's trades.
// A zero-pnl trade counts toward TotalTrades only.
type SessionStats struct {
	NetPnL        decimal.Decimal
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalTurnover decimal.Decimal
}

// WinRate returns winning trades as a percentage of total, 0 when empty.
func (s SessionStats) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades) * 100
}

// AvgPnL returns net pnl per trade, zero when no trades.
func (s SessionStats) AvgPnL() decimal.Decimal {
	if s.TotalTrades == 0 {
		return decimal.Zero
	}
	return s.NetPnL.Div(decimal.NewFromInt(int64(s.TotalTrades)))
}

// LotView is a read-only copy of one open lot.
type LotView struct {
	Quantity  int
	Remaining int
	Price     decimal.Decimal
	Time      time.Time
}

// PositionSnapshot is a read-only view of one instrument's position.
// AveragePrice is weighted by remaining lot quantity; zero when flat.
type PositionSnapshot struct {
	Instrument   Instrument
	NetQuantity  int
	AveragePrice decimal.Decimal
	Lots         []LotView
	RealizedPnL  decimal.Decimal
}

// Flat reports whether the position holds no lots.
func (p PositionSnapshot) Flat() bool { return p.NetQuantity == 0 }

// OrderRecord is one line of session order history, kept for display.
type OrderRecord struct {
	Time         time.Time
	InstrumentID string
	Side         Side
	Quantity     int
	Price        decimal.Decimal
	OrderID      string
	Source       Source
}

// Mark is the latest mark-to-market reading for an instrument.
type Mark struct {
	InstrumentID  string
	LastPrice     decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Time          time.Time
}
