package interfaces

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"scalp-terminal/internal/types"
)

// ErrDepthUnavailable is returned when a quote carries no usable book side
// for the requested fill.
var ErrDepthUnavailable = errors.New("market depth unavailable")

type QuoteProvider interface {
	Depth(ctx context.Context, inst types.Instrument) (types.Depth, error)
	LTP(ctx context.Context, inst types.Instrument) (decimal.Decimal, error)
}
