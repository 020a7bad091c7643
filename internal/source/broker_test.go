package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/types"
)

type fakePlacer struct {
	orderID    string
	placeErr   error
	price      decimal.Decimal
	units      int
	confirmErr error

	placedSide types.Side
	placedLots int
}

func (f *fakePlacer) PlaceMarketOrder(ctx context.Context, inst types.Instrument, side types.Side, lots int) (string, error) {
	f.placedSide = side
	f.placedLots = lots
	return f.orderID, f.placeErr
}

func (f *fakePlacer) ConfirmFill(ctx context.Context, orderID string) (decimal.Decimal, int, error) {
	return f.price, f.units, f.confirmErr
}

func TestBrokerExecuteConfirmedFill(t *testing.T) {
	placer := &fakePlacer{
		orderID: "240823000001",
		price:   decimal.RequireFromString("101.50"),
		units:   50,
	}
	b := NewBroker(placer)

	fill, err := b.Execute(context.Background(), srcInst, types.Sell, 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if placer.placedSide != types.Sell || placer.placedLots != 2 {
		t.Errorf("Expected SELL 2 lots placed, got %s %d", placer.placedSide, placer.placedLots)
	}
	if fill.Quantity != 2 {
		t.Errorf("Expected 2 lots from 50 units at lot size 25, got %d", fill.Quantity)
	}
	if !fill.Price.Equal(decimal.RequireFromString("101.50")) {
		t.Errorf("Expected confirmed average price 101.50, got %s", fill.Price)
	}
	if fill.Source != types.SourceReal {
		t.Errorf("Expected real source, got %s", fill.Source)
	}
	if fill.OrderID != "240823000001" {
		t.Errorf("Expected broker order id passthrough, got %s", fill.OrderID)
	}
}

func TestBrokerExecutePlacementError(t *testing.T) {
	placeErr := errors.New("rms rejection")
	b := NewBroker(&fakePlacer{placeErr: placeErr})

	_, err := b.Execute(context.Background(), srcInst, types.Buy, 1)
	if !errors.Is(err, placeErr) {
		t.Fatalf("Expected placement error to propagate, got %v", err)
	}
}

func TestBrokerExecuteConfirmError(t *testing.T) {
	confirmErr := errors.New("timed out")
	b := NewBroker(&fakePlacer{orderID: "240823000002", confirmErr: confirmErr})

	_, err := b.Execute(context.Background(), srcInst, types.Buy, 1)
	if !errors.Is(err, confirmErr) {
		t.Fatalf("Expected confirm error to propagate, got %v", err)
	}
	if !strings.Contains(err.Error(), "240823000002") {
		t.Errorf("Expected error to name the placed order, got %q", err.Error())
	}
}

func TestBrokerExecuteBelowOneLot(t *testing.T) {
	b := NewBroker(&fakePlacer{orderID: "240823000003", price: decimal.NewFromInt(100), units: 10})

	if _, err := b.Execute(context.Background(), srcInst, types.Buy, 1); err == nil {
		t.Error("Expected error when filled units are below one lot, got nil")
	}
}
