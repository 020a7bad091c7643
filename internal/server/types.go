package server

import (
	"time"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/types"
)

var ist = time.FixedZone("IST", 19800)

type StateResponse struct {
	Mode             string         `json:"mode"`
	ActiveInstrument string         `json:"activeInstrument"`
	Positions        []PositionInfo `json:"positions"`
	Stats            StatsInfo      `json:"stats"`
	Marks            []MarkInfo     `json:"marks"`
	Orders           []OrderInfo    `json:"orders"`
	RecentEvents     []EventInfo    `json:"recentEvents"`
	Timestamp        int64          `json:"timestamp"`
}

type PositionInfo struct {
	Instrument  string    `json:"instrument"`
	NetQty      int       `json:"netQty"`
	AvgPrice    float64   `json:"avgPrice"`
	RealizedPnL float64   `json:"realizedPnl"`
	Lots        []LotInfo `json:"lots"`
}

type LotInfo struct {
	Qty       int     `json:"qty"`
	Remaining int     `json:"remaining"`
	Price     float64 `json:"price"`
	Time      string  `json:"time"`
}

type StatsInfo struct {
	NetPnL        float64 `json:"netPnl"`
	TotalTrades   int     `json:"totalTrades"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
	WinRate       float64 `json:"winRate"`
	TotalTurnover float64 `json:"totalTurnover"`
}

type MarkInfo struct {
	Instrument    string  `json:"instrument"`
	LastPrice     float64 `json:"lastPrice"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
	Time          string  `json:"time"`
}

type OrderInfo struct {
	OrderID    string  `json:"orderId"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	Lots       int     `json:"lots"`
	Price      float64 `json:"price"`
	Source     string  `json:"source"`
	Time       string  `json:"time"`
}

type TradeInfo struct {
	ID              string  `json:"id"`
	Instrument      string  `json:"instrument"`
	EntryTime       string  `json:"entryTime"`
	EntryPrice      float64 `json:"entryPrice"`
	ExitTime        string  `json:"exitTime"`
	ExitPrice       float64 `json:"exitPrice"`
	Qty             int     `json:"qty"`
	PnL             float64 `json:"pnl"`
	PnLPercent      float64 `json:"pnlPercent"`
	DurationSeconds int64   `json:"durationSeconds"`
	Turnover        float64 `json:"turnover"`
	Source          string  `json:"source"`
}

type EventInfo struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

type ExportResponse struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WSEvent is the envelope for every broadcast frame.
type WSEvent struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func istTime(t time.Time) string {
	return t.In(ist).Format("2006-01-02 15:04:05")
}

func toPositionInfo(p types.PositionSnapshot) PositionInfo {
	lots := make([]LotInfo, len(p.Lots))
	for i, lo := range p.Lots {
		lots[i] = LotInfo{
			Qty:       lo.Quantity,
			Remaining: lo.Remaining,
			Price:     money(lo.Price),
			Time:      istTime(lo.Time),
		}
	}
	return PositionInfo{
		Instrument:  p.Instrument.ID(),
		NetQty:      p.NetQuantity,
		AvgPrice:    money(p.AveragePrice),
		RealizedPnL: money(p.RealizedPnL),
		Lots:        lots,
	}
}

func toStatsInfo(s types.SessionStats) StatsInfo {
	return StatsInfo{
		NetPnL:        money(s.NetPnL),
		TotalTrades:   s.TotalTrades,
		WinningTrades: s.WinningTrades,
		LosingTrades:  s.LosingTrades,
		WinRate:       s.WinRate(),
		TotalTurnover: money(s.TotalTurnover),
	}
}

func toMarkInfo(m types.Mark) MarkInfo {
	return MarkInfo{
		Instrument:    m.InstrumentID,
		LastPrice:     money(m.LastPrice),
		UnrealizedPnL: money(m.UnrealizedPnL),
		Time:          istTime(m.Time),
	}
}

func toOrderInfo(o types.OrderRecord) OrderInfo {
	return OrderInfo{
		OrderID:    o.OrderID,
		Instrument: o.InstrumentID,
		Side:       string(o.Side),
		Lots:       o.Quantity,
		Price:      money(o.Price),
		Source:     string(o.Source),
		Time:       istTime(o.Time),
	}
}

func toTradeInfo(t types.Trade) TradeInfo {
	return TradeInfo{
		ID:              t.ID,
		Instrument:      t.InstrumentID,
		EntryTime:       istTime(t.EntryTime),
		EntryPrice:      money(t.EntryPrice),
		ExitTime:        istTime(t.ExitTime),
		ExitPrice:       money(t.ExitPrice),
		Qty:             t.Qty,
		PnL:             money(t.PnL),
		PnLPercent:      money(t.PnLPercent),
		DurationSeconds: t.DurationSeconds,
		Turnover:        money(t.Turnover),
		Source:          string(t.Source),
	}
}

func toEventInfo(e logger.Entry) EventInfo {
	return EventInfo{
		Time:    istTime(e.Time),
		Level:   e.Level,
		Message: e.Message,
	}
}
