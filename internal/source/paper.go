package source

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/types"
)

// Paper simulates immediate market-order fills at the touch of the book: buys
// lift the best ask, sells hit the best bid. No slippage model beyond that,
// and no fill at all when the needed side of the book is empty.
type Paper struct {
	quotes interfaces.QuoteProvider
	seq    atomic.Int64
}

var _ interfaces.FillSource = (*Paper)(nil)

func NewPaper(quotes interfaces.QuoteProvider) *Paper {
	return &Paper{quotes: quotes}
}

func (p *Paper) Execute(ctx context.Context, inst types.Instrument, side types.Side, lots int) (types.Fill, error) {
	if lots <= 0 {
		return types.Fill{}, fmt.Errorf("lots must be positive, got %d", lots)
	}

	depth, err := p.quotes.Depth(ctx, inst)
	if err != nil {
		return types.Fill{}, err
	}

	var level types.DepthLevel
	var ok bool
	if side == types.Buy {
		level, ok = depth.BestAsk()
	} else {
		level, ok = depth.BestBid()
	}
	if !ok {
		return types.Fill{}, fmt.Errorf("%w: no quotes opposite %s for %s", interfaces.ErrDepthUnavailable, string(side), inst.ID())
	}

	return types.Fill{
		InstrumentID: inst.ID(),
		Side:         side,
		Quantity:     lots,
		Price:        level.Price,
		Time:         time.Now(),
		Source:       types.SourcePaper,
		OrderID:      fmt.Sprintf("PAPER%06d", p.seq.Add(1)),
	}, nil
}
