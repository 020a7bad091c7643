package sourceobs

import (
	"context"

	"scalp-terminal/internal/interfaces"
	"scalp-terminal/internal/logger"
	"scalp-terminal/internal/trace"
	"scalp-terminal/internal/types"
)

// observableSource wraps a FillSource with logging and tracing
type observableSource struct {
	source interfaces.FillSource
}

// Compile-time interface check
var _ interfaces.FillSource = (*observableSource)(nil)

// Wrap wraps a fill source with observability middleware
func Wrap(source interfaces.FillSource) interfaces.FillSource {
	return &observableSource{
		source: source,
	}
}

// Execute places a market order with observability
func (ob *observableSource) Execute(ctx context.Context, inst types.Instrument, side types.Side, lots int) (types.Fill, error) {
	ctx, span := trace.StartSpan(ctx, "source.Execute")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Executing market order",
		"instrument", inst.ID(),
		"side", string(side),
		"lots", lots,
	)

	fill, err := ob.source.Execute(ctx, inst, side, lots)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Order execution failed", err,
			"instrument", inst.ID(),
			"side", string(side),
			"lots", lots,
		)
		return types.Fill{}, err
	}

	logger.InfoSkip(ctx, 1, "Order filled",
		"instrument", inst.ID(),
		"side", string(side),
		"lots", fill.Quantity,
		"price", fill.Price.String(),
		"order_id", fill.OrderID,
	)
	return fill, nil
}
