package journal

import (
	"context"
	"fmt"

	"scalp-terminal/internal/types"
)

// Journal keeps a durable append-only record of fills and completed round
// trips. It is write-only during a session: the ledger never reads it back,
// restarts begin flat.
type Journal interface {
	RecordFill(ctx context.Context, f types.Fill) error
	RecordTrade(ctx context.Context, t types.Trade) error
	Close() error
}

// Noop discards everything.
type Noop struct{}

var _ Journal = Noop{}

func (Noop) RecordFill(context.Context, types.Fill) error   { return nil }
func (Noop) RecordTrade(context.Context, types.Trade) error { return nil }
func (Noop) Close() error                                   { return nil }

// Open returns the journal for a configured driver.
func Open(driver, path string) (Journal, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(path)
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown journal driver %q", driver)
	}
}
