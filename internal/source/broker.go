package source

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/types"
)

// OrderPlacer is the slice of the broker client order routing needs.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, inst types.Instrument, side types.Side, lots int) (string, error)
	ConfirmFill(ctx context.Context, orderID string) (decimal.Decimal, int, error)
}

// Broker routes market orders to the live broker and waits for the exchange
// confirmation before reporting a fill.
type Broker struct {
	client OrderPlacer
}

var _ interfaces.FillSource = (*Broker)(nil)

func NewBroker(client OrderPlacer) *Broker {
	return &Broker{client: client}
}

func (b *Broker) Execute(ctx context.Context, inst types.Instrument, side types.Side, lots int) (types.Fill, error) {
	if lots <= 0 {
		return types.Fill{}, fmt.Errorf("lots must be positive, got %d", lots)
	}

	orderID, err := b.client.PlaceMarketOrder(ctx, inst, side, lots)
	if err != nil {
		return types.Fill{}, err
	}

	price, units, err := b.client.ConfirmFill(ctx, orderID)
	if err != nil {
		return types.Fill{}, fmt.Errorf("order %s placed but not confirmed: %w", orderID, err)
	}

	filledLots := units / inst.LotSize
	if filledLots <= 0 {
		return types.Fill{}, fmt.Errorf("order %s filled %d units, below one lot of %d", orderID, units, inst.LotSize)
	}

	return types.Fill{
		InstrumentID: inst.ID(),
		Side:         side,
		Quantity:     filledLots,
		Price:        price,
		Time:         time.Now(),
		Source:       types.SourceReal,
		OrderID:      orderID,
	}, nil
}
