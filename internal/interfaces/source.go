package interfaces

import (
	"context"

	"scalp-terminal/internal/types"
)

// FillSource produces confirmed fills for market orders. In PAPER mode fills
// are simulated at the touch of the book, in REAL mode they come back from
// the broker.
type FillSource interface {
	Execute(ctx context.Context, inst types.Instrument, side types.Side, lots int) (types.Fill, error)
}
