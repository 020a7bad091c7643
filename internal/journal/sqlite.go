package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"scalp-terminal/internal/id"
	"scalp-terminal/internal/types"
)

// SQLite appends every fill and completed trade to a local database file.
type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(ctx context.Context, f types.Fill) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO fills (id, instrument, side, qty, price, source, order_id, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.New(), f.InstrumentID, string(f.Side), f.Quantity, f.Price.String(),
		string(f.Source), f.OrderID, f.Time)
	return err
}

func (j *SQLite) RecordTrade(ctx context.Context, t types.Trade) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO trades (id, instrument, entry_time, entry_price, entry_qty,
		                     exit_time, exit_price, qty, pnl, pnl_percent,
		                     duration_seconds, turnover, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.InstrumentID, t.EntryTime, t.EntryPrice.String(), t.EntryQty,
		t.ExitTime, t.ExitPrice.String(), t.Qty, t.PnL.String(), t.PnLPercent.String(),
		t.DurationSeconds, t.Turnover.String(), string(t.Source))
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
