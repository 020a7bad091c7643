package source

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/types"
)

var srcInst = types.Instrument{Symbol: "NIFTY24AUGFUT", Exchange: "NFO", LotSize: 25, Product: "NRML"}

type fakeQuotes struct {
	depth types.Depth
	err   error
}

func (f *fakeQuotes) Depth(ctx context.Context, inst types.Instrument) (types.Depth, error) {
	return f.depth, f.err
}

func (f *fakeQuotes) LTP(ctx context.Context, inst types.Instrument) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("not implemented")
}

func twoSidedBook() types.Depth {
	return types.Depth{
		Bids: []types.DepthLevel{{Price: decimal.RequireFromString("99.95"), Quantity: 100}},
		Asks: []types.DepthLevel{{Price: decimal.RequireFromString("100.05"), Quantity: 100}},
	}
}

func TestPaperBuyLiftsBestAsk(t *testing.T) {
	p := NewPaper(&fakeQuotes{depth: twoSidedBook()})

	fill, err := p.Execute(context.Background(), srcInst, types.Buy, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !fill.Price.Equal(decimal.RequireFromString("100.05")) {
		t.Errorf("Expected fill at best ask 100.05, got %s", fill.Price)
	}
	if fill.Quantity != 2 {
		t.Errorf("Expected quantity 2, got %d", fill.Quantity)
	}
	if fill.Side != types.Buy {
		t.Errorf("Expected side BUY, got %s", fill.Side)
	}
	if fill.Source != types.SourcePaper {
		t.Errorf("Expected paper source, got %s", fill.Source)
	}
	if fill.InstrumentID != srcInst.ID() {
		t.Errorf("Expected instrument %s, got %s", srcInst.ID(), fill.InstrumentID)
	}
	if fill.OrderID != "PAPER000001" {
		t.Errorf("Expected order id PAPER000001, got %s", fill.OrderID)
	}
}

func TestPaperSellHitsBestBid(t *testing.T) {
	p := NewPaper(&fakeQuotes{depth: twoSidedBook()})

	fill, err := p.Execute(context.Background(), srcInst, types.Sell, 1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !fill.Price.Equal(decimal.RequireFromString("99.95")) {
		t.Errorf("Expected fill at best bid 99.95, got %s", fill.Price)
	}
}

func TestPaperOrderIDsAreSequential(t *testing.T) {
	p := NewPaper(&fakeQuotes{depth: twoSidedBook()})
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		fill, err := p.Execute(ctx, srcInst, types.Buy, 1)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		want := fmt.Sprintf("PAPER%06d", i)
		if fill.OrderID != want {
			t.Errorf("Expected order id %s, got %s", want, fill.OrderID)
		}
	}
}

func TestPaperFailsOnEmptyBookSide(t *testing.T) {
	book := types.Depth{
		Bids: []types.DepthLevel{{Price: decimal.RequireFromString("99.95"), Quantity: 100}},
	}
	p := NewPaper(&fakeQuotes{depth: book})

	_, err := p.Execute(context.Background(), srcInst, types.Buy, 1)
	if !errors.Is(err, interfaces.ErrDepthUnavailable) {
		t.Fatalf("Expected ErrDepthUnavailable, got %v", err)
	}

	// The populated side still works.
	if _, err := p.Execute(context.Background(), srcInst, types.Sell, 1); err != nil {
		t.Errorf("Expected sell against populated bids to succeed, got %v", err)
	}
}

func TestPaperPropagatesQuoteError(t *testing.T) {
	quoteErr := errors.New("exchange down")
	p := NewPaper(&fakeQuotes{err: quoteErr})

	_, err := p.Execute(context.Background(), srcInst, types.Buy, 1)
	if !errors.Is(err, quoteErr) {
		t.Fatalf("Expected quote error to propagate, got %v", err)
	}
}

func TestPaperRejectsNonPositiveLots(t *testing.T) {
	p := NewPaper(&fakeQuotes{depth: twoSidedBook()})

	if _, err := p.Execute(context.Background(), srcInst, types.Buy, 0); err == nil {
		t.Error("Expected error for zero lots, got nil")
	}
	if _, err := p.Execute(context.Background(), srcInst, types.Buy, -2); err == nil {
		t.Error("Expected error for negative lots, got nil")
	}
}
