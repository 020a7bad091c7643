// Package ledger is the position and trade-matching core of the terminal.
// It ingests fills, maintains FIFO-ordered open lots per instrument, emits a
// completed Trade for every matched lot segment, and keeps session statistics
// in lockstep with the positions. It never talks to a broker or quote source;
// fills arrive fully priced.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/id"
	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/types"
)

// lot is one open entry. remaining only ever decreases; the lot is dropped
// from the queue when it reaches zero.
type lot struct {
	qty       int
	remaining int
	price     decimal.Decimal
	at        time.Time
}

// position holds the signed state for one instrument. Every lot in the queue
// carries the same sign as netQty; the queue is empty exactly when flat.
type position struct {
	instrument types.Instrument
	netQty     int
	lots       []lot
	realized   decimal.Decimal
}

// Ledger owns every position and the session aggregator. One mutex serializes
// all mutation; the lock is never held across broker or quote I/O because the
// ledger performs none.
type Ledger struct {
	mu        sync.Mutex
	positions map[string]*position
	agg       sessionAggregator
	trades    []types.Trade
}

// New returns an empty ledger. Instruments must be registered before fills
// for them can be applied.
func New() *Ledger {
	return &Ledger{positions: make(map[string]*position)}
}

// Register makes an instrument known to the ledger, creating a flat position
// for it. Registering the same instrument again is a no-op.
func (l *Ledger) Register(inst types.Instrument) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.positions[inst.ID()]; ok {
		return
	}
	l.positions[inst.ID()] = &position{instrument: inst}
}

// ApplyFill applies one fill and returns the trades it closed, oldest lot
// first. A fill in the direction of the current position (or into a flat one)
// opens a new lot and returns no trades. An opposing fill consumes open lots
// front-to-back; if it outlasts the queue the remainder opens a position in
// the other direction. Validation happens before any mutation, so a returned
// error means the ledger is untouched. Emitted trades are recorded in the
// session aggregate before ApplyFill returns.
func (l *Ledger) ApplyFill(ctx context.Context, f types.Fill) ([]types.Trade, error) {
	if f.Quantity <= 0 {
		return nil, fmt.Errorf("quantity %d: %w", f.Quantity, ErrInvalidFill)
	}
	if !f.Price.IsPositive() {
		return nil, fmt.Errorf("price %s: %w", f.Price, ErrInvalidFill)
	}
	if f.Side != types.Buy && f.Side != types.Sell {
		return nil, fmt.Errorf("side %q: %w", f.Side, ErrInvalidFill)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[f.InstrumentID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", f.InstrumentID, ErrUnknownInstrument)
	}

	dir := f.Side.Sign()
	if p.netQty == 0 || sign(p.netQty) == dir {
		p.lots = append(p.lots, lot{qty: f.Quantity, remaining: f.Quantity, price: f.Price, at: f.Time})
		p.netQty += dir * f.Quantity
		logger.Debug(ctx, "Lot opened",
			"instrument", f.InstrumentID,
			"side", string(f.Side),
			"qty", f.Quantity,
			"price", f.Price.String(),
			"net_qty", p.netQty,
		)
		return nil, nil
	}

	trades := l.closeAgainst(ctx, p, f)
	return trades, nil
}

// closeAgainst consumes open lots with an opposing fill, emitting one trade
// per matched lot segment and opening the remainder in the fill's direction
// when the queue runs dry. Caller holds the mutex.
func (l *Ledger) closeAgainst(ctx context.Context, p *position, f types.Fill) []types.Trade {
	short := p.netQty < 0
	posSign := sign(p.netQty)
	remaining := f.Quantity

	trades := make([]types.Trade, 0, 1)
	for remaining > 0 && len(p.lots) > 0 {
		front := &p.lots[0]
		match := remaining
		if front.remaining < match {
			match = front.remaining
		}

		t := makeTrade(p, *front, f, match, short)
		trades = append(trades, t)
		l.trades = append(l.trades, t)
		l.agg.record(t)
		p.realized = p.realized.Add(t.PnL)

		front.remaining -= match
		p.netQty -= posSign * match
		remaining -= match
		if front.remaining == 0 {
			p.lots = p.lots[1:]
		}

		logger.Info(ctx, "Trade closed",
			"instrument", t.InstrumentID,
			"qty", t.Qty,
			"entry_price", t.EntryPrice.String(),
			"exit_price", t.ExitPrice.String(),
			"pnl", t.PnL.StringFixed(2),
			"net_qty", p.netQty,
		)
	}

	if remaining > 0 {
		// Reversal: the queue emptied with fill quantity left over.
		p.lots = append(p.lots, lot{qty: remaining, remaining: remaining, price: f.Price, at: f.Time})
		p.netQty = f.Side.Sign() * remaining
		logger.Info(ctx, "Position reversed",
			"instrument", f.InstrumentID,
			"side", string(f.Side),
			"qty", remaining,
			"price", f.Price.String(),
			"net_qty", p.netQty,
		)
	}

	return trades
}

// makeTrade builds the immutable trade record for one matched segment.
// pnl is (exit - entry) * qty * lot_size for a long being sold, negated for a
// short being bought back. pnl_percent guards the zero denominator.
func makeTrade(p *position, entry lot, f types.Fill, match int, short bool) types.Trade {
	units := decimal.NewFromInt(int64(match * p.instrument.LotSize))

	pnl := f.Price.Sub(entry.price).Mul(units)
	if short {
		pnl = pnl.Neg()
	}
	turnover := entry.price.Add(f.Price).Mul(units)

	pnlPct := decimal.Zero
	if entryValue := entry.price.Mul(units); !entryValue.IsZero() {
		pnlPct = pnl.Div(entryValue).Mul(decimal.NewFromInt(100))
	}

	return types.Trade{
		ID:              id.New(),
		InstrumentID:    f.InstrumentID,
		EntryTime:       entry.at,
		EntryPrice:      entry.price,
		EntryQty:        entry.qty,
		ExitTime:        f.Time,
		ExitPrice:       f.Price,
		Qty:             match,
		PnL:             pnl,
		PnLPercent:      pnlPct,
		DurationSeconds: int64(f.Time.Sub(entry.at).Seconds()),
		Turnover:        turnover,
		Source:          f.Source,
	}
}

// Snapshot returns a read-only view of one instrument's position. The second
// return is false for instruments never registered.
func (l *Ledger) Snapshot(instrumentID string) (types.PositionSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[instrumentID]
	if !ok {
		return types.PositionSnapshot{}, false
	}
	return snapshotOf(p), true
}

// Positions returns snapshots for every registered instrument, sorted by id.
func (l *Ledger) Positions() []types.PositionSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.PositionSnapshot, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, snapshotOf(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Instrument.ID() < out[j].Instrument.ID()
	})
	return out
}

func snapshotOf(p *position) types.PositionSnapshot {
	lots := make([]types.LotView, len(p.lots))
	weighted := decimal.Zero
	total := 0
	for i, lo := range p.lots {
		lots[i] = types.LotView{Quantity: lo.qty, Remaining: lo.remaining, Price: lo.price, Time: lo.at}
		weighted = weighted.Add(lo.price.Mul(decimal.NewFromInt(int64(lo.remaining))))
		total += lo.remaining
	}

	avg := decimal.Zero
	if total > 0 {
		avg = weighted.Div(decimal.NewFromInt(int64(total)))
	}

	return types.PositionSnapshot{
		Instrument:   p.instrument,
		NetQuantity:  p.netQty,
		AveragePrice: avg,
		Lots:         lots,
		RealizedPnL:  p.realized,
	}
}

// Trades returns a copy of every trade emitted this session, in emission order.
func (l *Ledger) Trades() []types.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Stats returns the session aggregate.
func (l *Ledger) Stats() types.SessionStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.agg.snapshot()
}

// ResetInstrument clears a flat position. It fails with ErrOpenPosition while
// any lots are open, and with ErrUnknownInstrument for unregistered ids.
// Session trades and statistics are untouched.
func (l *Ledger) ResetInstrument(instrumentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[instrumentID]
	if !ok {
		return fmt.Errorf("%s: %w", instrumentID, ErrUnknownInstrument)
	}
	if p.netQty != 0 {
		return fmt.Errorf("%s has net quantity %d: %w", instrumentID, p.netQty, ErrOpenPosition)
	}
	l.positions[instrumentID] = &position{instrument: p.instrument}
	return nil
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
