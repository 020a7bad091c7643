package ledger

import (
	"github.com/shopspring/decimal"

	"scalp-terminal/internal/types"
)

// sessionAggregator keeps O(1) running totals over the trade stream. It is
// owned by the Ledger and only touched under the Ledger's mutex, so a trade
// is never visible without its contribution to the aggregate.
type sessionAggregator struct {
	netPnL        decimal.Decimal
	totalTrades   int
	winningTrades int
	losingTrades  int
	totalTurnover decimal.Decimal
}

// record folds one trade into the totals. Wins require pnl strictly above
// zero and losses strictly below; a scratch counts toward the total only.
func (a *sessionAggregator) record(t types.Trade) {
	a.netPnL = a.netPnL.Add(t.PnL)
	a.totalTrades++
	switch {
	case t.PnL.IsPositive():
		a.winningTrades++
	case t.PnL.IsNegative():
		a.losingTrades++
	}
	a.totalTurnover = a.totalTurnover.Add(t.Turnover)
}

// snapshot returns an independent copy of the totals.
func (a *sessionAggregator) snapshot() types.SessionStats {
	return types.SessionStats{
		NetPnL:        a.netPnL,
		TotalTrades:   a.totalTrades,
		WinningTrades: a.winningTrades,
		LosingTrades:  a.losingTrades,
		TotalTurnover: a.totalTurnover,
	}
}
