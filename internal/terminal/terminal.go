package terminal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/id"
	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/journal"
	"scalp-terminal/internal/ledger"
	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/server"
	"scalp-terminal/internal/tradelog"
	"scalp-terminal/internal/trace"
	"scalp-terminal/internal/types"
)

// Options configures a trading session.
type Options struct {
	Mode        types.Source
	Instruments []types.Instrument
	Active      types.Instrument
	MTMInterval time.Duration
	ExportDir   string
}

// Session owns one sitting at the terminal: the ledger, the fill source, the
// order history and the mark-to-market state. All session mutations funnel
// through it.
type Session struct {
	id      string
	opts    Options
	ledger  *ledger.Ledger
	source  interfaces.FillSource
	quotes  interfaces.QuoteProvider
	journal journal.Journal
	srv     *server.Server

	mu     sync.Mutex
	active types.Instrument
	orders []types.OrderRecord
	marks  map[string]types.Mark
}

var _ server.StateSource = (*Session)(nil)

func NewSession(opts Options, src interfaces.FillSource, quotes interfaces.QuoteProvider, jr journal.Journal) *Session {
	l := ledger.New()
	for _, inst := range opts.Instruments {
		l.Register(inst)
	}
	return &Session{
		id:      id.New(),
		opts:    opts,
		ledger:  l,
		source:  src,
		quotes:  quotes,
		journal: jr,
		active:  opts.Active,
		marks:   make(map[string]types.Mark),
	}
}

// ID returns the session's ULID, minted at construction.
func (s *Session) ID() string { return s.id }

// AttachServer enables dashboard broadcasts. Must be called before Run.
func (s *Session) AttachServer(srv *server.Server) {
	s.srv = srv
}

func (s *Session) Mode() types.Source { return s.opts.Mode }

func (s *Session) ActiveInstrument() types.Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) Positions() []types.PositionSnapshot { return s.ledger.Positions() }
func (s *Session) Stats() types.SessionStats           { return s.ledger.Stats() }
func (s *Session) Trades() []types.Trade               { return s.ledger.Trades() }

func (s *Session) Orders() []types.OrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.OrderRecord, len(s.orders))
	copy(out, s.orders)
	return out
}

func (s *Session) Marks() []types.Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Mark, 0, len(s.marks))
	for _, m := range s.marks {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out
}

// Trade places a market order on the active instrument, applies the fill and
// returns it along with any round trips it closed.
func (s *Session) Trade(ctx context.Context, side types.Side, lots int) (types.Fill, []types.Trade, error) {
	return s.trade(ctx, s.ActiveInstrument(), side, lots)
}

func (s *Session) trade(ctx context.Context, inst types.Instrument, side types.Side, lots int) (types.Fill, []types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "terminal.trade")
	defer span.End()

	// Quote and broker I/O stays outside every lock; only the confirmed
	// fill enters the ledger.
	fill, err := s.source.Execute(ctx, inst, side, lots)
	if err != nil {
		return types.Fill{}, nil, err
	}

	closed, err := s.ledger.ApplyFill(ctx, fill)
	if err != nil {
		return types.Fill{}, nil, err
	}

	s.recordOrder(fill)
	logger.Fill(ctx, fill.InstrumentID, string(fill.Side), fill.Quantity, fill.Price.StringFixed(2), fill.OrderID)

	if err := s.journal.RecordFill(ctx, fill); err != nil {
		logger.ErrorWithErr(ctx, "Journal fill write failed", err, "order_id", fill.OrderID)
	}
	if err := tradelog.Append(tradelog.FillEntry{
		Instrument: fill.InstrumentID,
		Side:       string(fill.Side),
		OrderID:    fill.OrderID,
		Source:     string(fill.Source),
		Qty:        fill.Quantity,
		Price:      fill.Price.StringFixed(2),
	}); err != nil {
		logger.ErrorWithErr(ctx, "Trade log append failed", err)
	}

	for _, tr := range closed {
		if err := s.journal.RecordTrade(ctx, tr); err != nil {
			logger.ErrorWithErr(ctx, "Journal trade write failed", err, "trade_id", tr.ID)
		}
		if err := tradelog.AppendTrade(tradelog.TradeEntry{
			Instrument:      tr.InstrumentID,
			TradeID:         tr.ID,
			Qty:             tr.Qty,
			EntryPrice:      tr.EntryPrice.StringFixed(2),
			ExitPrice:       tr.ExitPrice.StringFixed(2),
			PnL:             tr.PnL.StringFixed(2),
			PnLPercent:      tr.PnLPercent.StringFixed(2),
			DurationSeconds: tr.DurationSeconds,
		}); err != nil {
			logger.ErrorWithErr(ctx, "Trade log append failed", err)
		}
	}

	if s.srv != nil {
		s.srv.Broadcast("fill", map[string]any{
			"instrument": fill.InstrumentID,
			"side":       string(fill.Side),
			"qty":        fill.Quantity,
			"price":      fill.Price.Round(2).InexactFloat64(),
			"orderId":    fill.OrderID,
		})
		for _, tr := range closed {
			s.srv.Broadcast("trade", map[string]any{
				"instrument": tr.InstrumentID,
				"qty":        tr.Qty,
				"pnl":        tr.PnL.Round(2).InexactFloat64(),
			})
		}
	}

	return fill, closed, nil
}

func (s *Session) recordOrder(f types.Fill) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, types.OrderRecord{
		Time:         f.Time,
		InstrumentID: f.InstrumentID,
		Side:         f.Side,
		Quantity:     f.Quantity,
		Price:        f.Price,
		OrderID:      f.OrderID,
		Source:       f.Source,
	})
}

// CloseAll flattens the active instrument with one opposite-side market
// order sized to the full net position.
func (s *Session) CloseAll(ctx context.Context) (types.Fill, []types.Trade, error) {
	inst := s.ActiveInstrument()
	snap, ok := s.ledger.Snapshot(inst.ID())
	if !ok {
		return types.Fill{}, nil, fmt.Errorf("instrument %s not registered", inst.ID())
	}
	if snap.Flat() {
		return types.Fill{}, nil, errors.New("position already flat")
	}

	side := types.Sell
	lots := snap.NetQuantity
	if lots < 0 {
		side = types.Buy
		lots = -lots
	}
	return s.trade(ctx, inst, side, lots)
}

// ChangeInstrument switches the active instrument. The current position must
// be flat, and its lot bookkeeping is cleared on the way out.
func (s *Session) ChangeInstrument(ctx context.Context, ref string) error {
	next, ok := s.lookup(ref)
	if !ok {
		return fmt.Errorf("unknown instrument %q", ref)
	}

	current := s.ActiveInstrument()
	if next.ID() == current.ID() {
		return nil
	}
	if err := s.ledger.ResetInstrument(current.ID()); err != nil {
		return fmt.Errorf("close %s before switching: %w", current.ID(), err)
	}

	s.mu.Lock()
	s.active = next
	s.mu.Unlock()

	logger.Session(ctx, "instrument_changed", "from", current.ID(), "to", next.ID())
	if err := tradelog.AppendEvent(tradelog.EventEntry{Event: "instrument_changed", Detail: current.ID() + " -> " + next.ID()}); err != nil {
		logger.ErrorWithErr(ctx, "Trade log append failed", err)
	}
	if s.srv != nil {
		s.srv.Broadcast("state", nil)
	}
	return nil
}

// NextInstrument cycles to the next configured instrument.
func (s *Session) NextInstrument(ctx context.Context) error {
	current := s.ActiveInstrument()
	insts := s.opts.Instruments
	for i, inst := range insts {
		if inst.ID() == current.ID() {
			return s.ChangeInstrument(ctx, insts[(i+1)%len(insts)].ID())
		}
	}
	return s.ChangeInstrument(ctx, insts[0].ID())
}

func (s *Session) lookup(ref string) (types.Instrument, bool) {
	for _, inst := range s.opts.Instruments {
		if inst.ID() == ref || inst.Symbol == ref {
			return inst, true
		}
	}
	return types.Instrument{}, false
}

// ExportTrades writes the session history to a timestamped CSV and returns
// the path and row count.
func (s *Session) ExportTrades(ctx context.Context) (string, int, error) {
	trades := s.ledger.Trades()
	path, err := journal.Export(s.opts.ExportDir, s.opts.Mode, trades)
	if err != nil {
		return "", 0, err
	}

	logger.Export(ctx, path, len(trades))
	if err := tradelog.AppendEvent(tradelog.EventEntry{Event: "export", Detail: fmt.Sprintf("%d trades -> %s", len(trades), path)}); err != nil {
		logger.ErrorWithErr(ctx, "Trade log append failed", err)
	}
	return path, len(trades), nil
}

// RunMTM refreshes marks on the configured interval until the context ends.
func (s *Session) RunMTM(ctx context.Context) {
	ticker := time.NewTicker(s.opts.MTMInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshMarks(ctx)
		}
	}
}

// refreshMarks quotes the active instrument plus every instrument holding a
// position, entirely outside the session and ledger locks.
func (s *Session) refreshMarks(ctx context.Context) {
	active := s.ActiveInstrument()
	targets := map[string]types.Instrument{active.ID(): active}
	for _, snap := range s.ledger.Positions() {
		if !snap.Flat() {
			targets[snap.Instrument.ID()] = snap.Instrument
		}
	}

	now := time.Now()
	for id, inst := range targets {
		ltp, err := s.quotes.LTP(ctx, inst)
		if err != nil {
			logger.Warn(ctx, "Mark refresh failed", "instrument", id, "error", err)
			continue
		}

		var unrealized decimal.Decimal
		if snap, ok := s.ledger.Snapshot(id); ok && !snap.Flat() {
			units := decimal.NewFromInt(int64(snap.NetQuantity * inst.LotSize))
			unrealized = ltp.Sub(snap.AveragePrice).Mul(units)
		}

		s.mu.Lock()
		s.marks[id] = types.Mark{InstrumentID: id, LastPrice: ltp, UnrealizedPnL: unrealized, Time: now}
		s.mu.Unlock()
	}

	if s.srv != nil {
		s.srv.Broadcast("mark", nil)
	}
}

// Close exports the history if any trades completed and closes the journal.
func (s *Session) Close(ctx context.Context) error {
	if len(s.ledger.Trades()) > 0 {
		if path, rows, err := s.ExportTrades(ctx); err != nil {
			logger.ErrorWithErr(ctx, "Final export failed", err)
		} else {
			logger.Session(ctx, "final_export", "path", path, "rows", rows)
		}
	}

	stats := s.ledger.Stats()
	logger.Session(ctx, "session_ended",
		"session_id", s.id,
		"net_pnl", stats.NetPnL.StringFixed(2),
		"trades", stats.TotalTrades,
	)
	return s.journal.Close()
}
